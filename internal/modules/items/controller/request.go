package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"skladi/internal/modules/items/types"
)

var errEmptyBody = errors.New("empty request body")

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after JSON body")
	}
	return nil
}

// parseConfigPatch reads a non-empty JSON object whose known fields are
// strings or null. Unknown fields are ignored.
func parseConfigPatch(w http.ResponseWriter, r *http.Request) (types.ItemConfig, error) {
	var fields map[string]json.RawMessage
	if err := decodeJSONBody(w, r, &fields); err != nil || len(fields) == 0 {
		return types.ItemConfig{}, errEmptyBody
	}

	var patch types.ItemConfig
	for name, dst := range map[string]**string{
		"ime":      &patch.Ime,
		"lokacija": &patch.Lokacija,
		"komentar": &patch.Komentar,
	} {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return types.ItemConfig{}, fmt.Errorf("%q must be a string", name)
		}
	}
	return patch, nil
}
