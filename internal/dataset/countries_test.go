package dataset

import (
	"errors"
	"testing"

	"voyageur-express/internal/domain"
)

func TestBuiltInDatasetIsValid(t *testing.T) {
	all := Countries()
	if len(all) != 34 {
		t.Fatalf("expected 34 countries, got %d", len(all))
	}
	if err := Validate(all); err != nil {
		t.Fatalf("validate: %v", err)
	}
	for _, c := range all {
		if c.Continent == World || !ValidContinent(c.Continent) {
			t.Fatalf("country %s has unexpected continent %q", c.Code, c.Continent)
		}
	}
}

func TestCountriesReturnsCopy(t *testing.T) {
	a := Countries()
	a[0].Name = "Changed"
	if Countries()[0].Name != "France" {
		t.Fatalf("expected dataset to be read-only")
	}
}

func TestByContinent(t *testing.T) {
	all := Countries()
	if got := ByContinent(all, World); len(got) != len(all) {
		t.Fatalf("expected world to select all, got %d", len(got))
	}
	oceania := ByContinent(all, "Oceania")
	if len(oceania) != 2 || oceania[0].Code != "AU" || oceania[1].Code != "NZ" {
		t.Fatalf("unexpected oceania filter: %+v", oceania)
	}
	if got := ByContinent(all, "Atlantis"); len(got) != 0 {
		t.Fatalf("expected no countries, got %d", len(got))
	}
}

func TestValidateRejectsBrokenInvariants(t *testing.T) {
	dup := []domain.Country{{Code: "FR", X: 1, Y: 1}, {Code: "FR", X: 2, Y: 2}}
	if err := Validate(dup); !errors.Is(err, domain.ErrInvalidDataset) {
		t.Fatalf("expected invalid dataset for duplicate, got %v", err)
	}
	off := []domain.Country{{Code: "XX", X: 101, Y: 1}}
	if err := Validate(off); !errors.Is(err, domain.ErrInvalidDataset) {
		t.Fatalf("expected invalid dataset for coordinates, got %v", err)
	}
}
