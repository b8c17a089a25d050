package repository

import (
	"testing"

	"skladi/internal/modules/items/types"
)

func ptr(s string) *string { return &s }

// testItemRepository exercises the behavior every backend must share.
func testItemRepository(t *testing.T, newRepo func(t *testing.T) ItemRepository) {
	t.Run("latest reading of unknown item is nil", func(t *testing.T) {
		repo := newRepo(t)
		got, err := repo.LatestReading("nope")
		if err != nil {
			t.Fatalf("LatestReading: %v", err)
		}
		if got != nil {
			t.Fatalf("LatestReading = %+v, want nil", got)
		}
	})

	t.Run("append then latest returns newest", func(t *testing.T) {
		repo := newRepo(t)
		for _, rd := range []types.Reading{
			{ItemID: "s1", Timestamp: "2024-05-01 10:00:00", Value: "1"},
			{ItemID: "s1", Timestamp: "2024-05-01 10:00:01", Value: "2"},
			{ItemID: "s2", Timestamp: "2024-05-01 10:00:02", Value: "9"},
		} {
			if err := repo.AppendReading(rd); err != nil {
				t.Fatalf("AppendReading(%+v): %v", rd, err)
			}
		}

		got, err := repo.LatestReading("s1")
		if err != nil {
			t.Fatalf("LatestReading: %v", err)
		}
		want := types.Reading{ItemID: "s1", Timestamp: "2024-05-01 10:00:01", Value: "2"}
		if got == nil || *got != want {
			t.Fatalf("LatestReading = %+v, want %+v", got, want)
		}
	})

	t.Run("values with commas survive", func(t *testing.T) {
		repo := newRepo(t)
		if err := repo.AppendReading(types.Reading{ItemID: "s1", Timestamp: "2024-05-01 10:00:00", Value: "1,5"}); err != nil {
			t.Fatalf("AppendReading: %v", err)
		}
		got, err := repo.LatestReading("s1")
		if err != nil {
			t.Fatalf("LatestReading: %v", err)
		}
		if got == nil || got.Value != "1,5" {
			t.Fatalf("LatestReading = %+v, want value 1,5", got)
		}
	})

	t.Run("item ids list every series once", func(t *testing.T) {
		repo := newRepo(t)
		for _, id := range []string{"a", "b", "a"} {
			if err := repo.AppendReading(types.Reading{ItemID: id, Timestamp: "t", Value: "v"}); err != nil {
				t.Fatalf("AppendReading: %v", err)
			}
		}
		ids, err := repo.ItemIDs()
		if err != nil {
			t.Fatalf("ItemIDs: %v", err)
		}
		seen := map[string]int{}
		for _, id := range ids {
			seen[id]++
		}
		if len(ids) != 2 || seen["a"] != 1 || seen["b"] != 1 {
			t.Fatalf("ItemIDs = %v, want a and b once", ids)
		}
	})

	t.Run("config of unconfigured item is empty", func(t *testing.T) {
		repo := newRepo(t)
		cfg, err := repo.GetConfig("s1")
		if err != nil {
			t.Fatalf("GetConfig: %v", err)
		}
		if !cfg.IsEmpty() {
			t.Fatalf("GetConfig = %+v, want empty", cfg)
		}
	})

	t.Run("merge accumulates fields and nil keeps prior", func(t *testing.T) {
		repo := newRepo(t)
		if _, err := repo.MergeConfig("s1", types.ItemConfig{Ime: ptr("X")}); err != nil {
			t.Fatalf("MergeConfig ime: %v", err)
		}
		if _, err := repo.MergeConfig("s1", types.ItemConfig{Lokacija: ptr("Y")}); err != nil {
			t.Fatalf("MergeConfig lokacija: %v", err)
		}
		merged, err := repo.MergeConfig("s1", types.ItemConfig{Ime: nil, Komentar: ptr("Z")})
		if err != nil {
			t.Fatalf("MergeConfig komentar: %v", err)
		}

		for name, got := range map[string]*string{"ime": merged.Ime, "lokacija": merged.Lokacija, "komentar": merged.Komentar} {
			if got == nil {
				t.Fatalf("%s unset after merges: %+v", name, merged)
			}
		}
		if *merged.Ime != "X" || *merged.Lokacija != "Y" || *merged.Komentar != "Z" {
			t.Fatalf("merged = ime %q lokacija %q komentar %q", *merged.Ime, *merged.Lokacija, *merged.Komentar)
		}

		stored, err := repo.GetConfig("s1")
		if err != nil {
			t.Fatalf("GetConfig: %v", err)
		}
		if stored.Ime == nil || *stored.Ime != "X" || stored.Komentar == nil || *stored.Komentar != "Z" {
			t.Fatalf("stored config = %+v", stored)
		}
	})

	t.Run("empty id is rejected", func(t *testing.T) {
		repo := newRepo(t)
		if err := repo.AppendReading(types.Reading{ItemID: "", Timestamp: "t", Value: "v"}); err == nil {
			t.Fatal("AppendReading with empty id succeeded")
		}
	})

	t.Run("ping", func(t *testing.T) {
		repo := newRepo(t)
		if err := repo.Ping(); err != nil {
			t.Fatalf("Ping: %v", err)
		}
	})
}
