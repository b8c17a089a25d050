package types

import "fmt"

const (
	UnknownTime  = "Unknown Time"
	UnknownValue = "Unknown Value"
)

// Reading is one timestamped value recorded for an item.
type Reading struct {
	ItemID    string `json:"id"`
	Timestamp string `json:"timestamp"`
	Value     string `json:"value"`
}

// ItemConfig is the descriptive sidecar of an item. Nil fields are unset.
type ItemConfig struct {
	Ime      *string `json:"ime,omitempty"`
	Lokacija *string `json:"lokacija,omitempty"`
	Komentar *string `json:"komentar,omitempty"`
}

func (c ItemConfig) IsEmpty() bool {
	return c.Ime == nil && c.Lokacija == nil && c.Komentar == nil
}

// Merge returns c with every non-nil field of patch applied.
func (c ItemConfig) Merge(patch ItemConfig) ItemConfig {
	if patch.Ime != nil {
		c.Ime = patch.Ime
	}
	if patch.Lokacija != nil {
		c.Lokacija = patch.Lokacija
	}
	if patch.Komentar != nil {
		c.Komentar = patch.Komentar
	}
	return c
}

// ItemSummary joins the latest reading of an item with its config.
type ItemSummary struct {
	ID        string `json:"id"`
	Ime       string `json:"ime"`
	Kolicina  string `json:"kolicina"`
	Lokacija  string `json:"lokacija"`
	Komentar  string `json:"komentar"`
	Timestamp string `json:"timestamp"`
}

func DefaultIme(id string) string      { return fmt.Sprintf("Izdelek %s", id) }
func DefaultLokacija(id string) string { return fmt.Sprintf("L %s", id) }
func DefaultKomentar(id string) string { return fmt.Sprintf("Podatki iz senzorja %s", id) }

// NewItemSummary fills unset config fields and a missing reading with defaults.
func NewItemSummary(id string, latest *Reading, cfg ItemConfig) ItemSummary {
	s := ItemSummary{
		ID:        id,
		Ime:       valueOr(cfg.Ime, DefaultIme(id)),
		Lokacija:  valueOr(cfg.Lokacija, DefaultLokacija(id)),
		Komentar:  valueOr(cfg.Komentar, DefaultKomentar(id)),
		Kolicina:  UnknownValue,
		Timestamp: UnknownTime,
	}
	if latest != nil {
		s.Timestamp = latest.Timestamp
		s.Kolicina = latest.Value
	}
	return s
}

func valueOr(p *string, fallback string) string {
	if p == nil {
		return fallback
	}
	return *p
}
