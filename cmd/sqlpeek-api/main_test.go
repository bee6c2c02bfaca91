package main

import (
	"slices"
	"testing"

	"github.com/sqlpeek/sqlpeek/internal/config"
	"github.com/sqlpeek/sqlpeek/internal/query"
)

func TestEngineAdaptersOmitLocalEnginesByDefault(t *testing.T) {
	cfg, err := config.Load("sqlpeek-api", func(string) (string, bool) { return "", false })
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	kinds := adapterKinds(engineAdapters(cfg))
	if slices.Contains(kinds, query.KindSQLite) || slices.Contains(kinds, query.KindDuckDB) {
		t.Fatalf("kinds = %v, want no local engines", kinds)
	}
	if !slices.Contains(kinds, query.KindPostgreSQL) {
		t.Fatalf("kinds = %v, want postgresql", kinds)
	}
}

func TestEngineAdaptersIncludeLocalEnginesWhenEnabled(t *testing.T) {
	cfg, err := config.Load("sqlpeek-api", func(key string) (string, bool) {
		if key == "SQLPEEK_LOCAL_ENGINES_ENABLED" {
			return "true", true
		}
		return "", false
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	kinds := adapterKinds(engineAdapters(cfg))
	if !slices.Contains(kinds, query.KindSQLite) || !slices.Contains(kinds, query.KindDuckDB) {
		t.Fatalf("kinds = %v, want local engines", kinds)
	}
}

func adapterKinds(adapters []query.Adapter) []query.EngineKind {
	kinds := make([]query.EngineKind, 0, len(adapters))
	for _, adapter := range adapters {
		kinds = append(kinds, adapter.Kind())
	}
	return kinds
}
