package migrations

import (
	"strings"
	"testing"
)

func TestMigrationsRegistered(t *testing.T) {
	sorted := Migrations.Sorted()
	if len(sorted) != 1 {
		t.Fatalf("expected 1 migration, got %d", len(sorted))
	}
	if sorted[0].Name != "2024110101" {
		t.Fatalf("unexpected migration name %q", sorted[0].Name)
	}
	if !strings.Contains(createCountryDatasetsSQL, "country_datasets") {
		t.Fatalf("expected embedded DDL for country_datasets")
	}
}
