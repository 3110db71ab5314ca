// Package dataset holds the built-in country table used by the map and the
// question generator.
package dataset

import (
	"fmt"

	"voyageur-express/internal/domain"
)

// Version identifies the coordinate calibration of Countries.
const Version = "2024-11"

// World is the continent wildcard selecting every country.
const World = "World"

// Continents lists the accepted continent filters, World first.
var Continents = []string{World, "Europe", "North America", "South America", "Asia", "Africa", "Oceania"}

// Countries returns a fresh copy of the built-in dataset in map order.
func Countries() []domain.Country {
	out := make([]domain.Country, len(countries))
	copy(out, countries)
	return out
}

var countries = []domain.Country{
	// Europe
	{Name: "France", Code: "FR", Capital: "Paris", Flag: "🇫🇷", X: 48, Y: 46, Continent: "Europe", Monument: "Eiffel Tower"},
	{Name: "Germany", Code: "DE", Capital: "Berlin", Flag: "🇩🇪", X: 52, Y: 42, Continent: "Europe", Monument: "Brandenburg Gate"},
	{Name: "Italy", Code: "IT", Capital: "Rome", Flag: "🇮🇹", X: 50, Y: 55, Continent: "Europe", Monument: "Colosseum"},
	{Name: "Spain", Code: "ES", Capital: "Madrid", Flag: "🇪🇸", X: 45, Y: 52, Continent: "Europe", Monument: "Sagrada Familia"},
	{Name: "United Kingdom", Code: "GB", Capital: "London", Flag: "🇬🇧", X: 46, Y: 41, Continent: "Europe", Monument: "Big Ben"},
	{Name: "Russia", Code: "RU", Capital: "Moscow", Flag: "🇷🇺", X: 75, Y: 38, Continent: "Europe", Monument: "Red Square"},
	{Name: "Norway", Code: "NO", Capital: "Oslo", Flag: "🇳🇴", X: 50, Y: 30, Continent: "Europe"},
	{Name: "Sweden", Code: "SE", Capital: "Stockholm", Flag: "🇸🇪", X: 53, Y: 32, Continent: "Europe"},
	{Name: "Greece", Code: "GR", Capital: "Athens", Flag: "🇬🇷", X: 55, Y: 58, Continent: "Europe", Monument: "Parthenon"},
	{Name: "Poland", Code: "PL", Capital: "Warsaw", Flag: "🇵🇱", X: 54, Y: 43, Continent: "Europe"},

	// North America
	{Name: "United States", Code: "US", Capital: "Washington", Flag: "🇺🇸", X: 25, Y: 52, Continent: "North America", Monument: "Statue of Liberty"},
	{Name: "Canada", Code: "CA", Capital: "Ottawa", Flag: "🇨🇦", X: 25, Y: 35, Continent: "North America", Monument: "Niagara Falls"},
	{Name: "Mexico", Code: "MX", Capital: "Mexico City", Flag: "🇲🇽", X: 22, Y: 62, Continent: "North America", Monument: "Chichen Itza"},

	// South America
	{Name: "Brazil", Code: "BR", Capital: "Brasília", Flag: "🇧🇷", X: 35, Y: 78, Continent: "South America", Monument: "Christ the Redeemer"},
	{Name: "Argentina", Code: "AR", Capital: "Buenos Aires", Flag: "🇦🇷", X: 32, Y: 88, Continent: "South America"},
	{Name: "Chile", Code: "CL", Capital: "Santiago", Flag: "🇨🇱", X: 30, Y: 85, Continent: "South America"},
	{Name: "Peru", Code: "PE", Capital: "Lima", Flag: "🇵🇪", X: 28, Y: 80, Continent: "South America", Monument: "Machu Picchu"},
	{Name: "Colombia", Code: "CO", Capital: "Bogotá", Flag: "🇨🇴", X: 28, Y: 72, Continent: "South America"},

	// Asia
	{Name: "China", Code: "CN", Capital: "Beijing", Flag: "🇨🇳", X: 77, Y: 48, Continent: "Asia", Monument: "Great Wall"},
	{Name: "Japan", Code: "JP", Capital: "Tokyo", Flag: "🇯🇵", X: 87, Y: 52, Continent: "Asia", Monument: "Mount Fuji"},
	{Name: "India", Code: "IN", Capital: "New Delhi", Flag: "🇮🇳", X: 72, Y: 62, Continent: "Asia", Monument: "Taj Mahal"},
	{Name: "South Korea", Code: "KR", Capital: "Seoul", Flag: "🇰🇷", X: 83, Y: 53, Continent: "Asia"},
	{Name: "Thailand", Code: "TH", Capital: "Bangkok", Flag: "🇹🇭", X: 75, Y: 68, Continent: "Asia"},
	{Name: "Indonesia", Code: "ID", Capital: "Jakarta", Flag: "🇮🇩", X: 78, Y: 78, Continent: "Asia"},
	{Name: "Iran", Code: "IR", Capital: "Tehran", Flag: "🇮🇷", X: 67, Y: 55, Continent: "Asia"},
	{Name: "Turkey", Code: "TR", Capital: "Ankara", Flag: "🇹🇷", X: 58, Y: 54, Continent: "Asia"},

	// Africa
	{Name: "Egypt", Code: "EG", Capital: "Cairo", Flag: "🇪🇬", X: 58, Y: 62, Continent: "Africa", Monument: "Pyramids of Giza"},
	{Name: "South Africa", Code: "ZA", Capital: "Cape Town", Flag: "🇿🇦", X: 60, Y: 90, Continent: "Africa"},
	{Name: "Nigeria", Code: "NG", Capital: "Abuja", Flag: "🇳🇬", X: 48, Y: 70, Continent: "Africa"},
	{Name: "Kenya", Code: "KE", Capital: "Nairobi", Flag: "🇰🇪", X: 62, Y: 78, Continent: "Africa", Monument: "Kilimanjaro"},
	{Name: "Morocco", Code: "MA", Capital: "Rabat", Flag: "🇲🇦", X: 45, Y: 58, Continent: "Africa"},
	{Name: "Algeria", Code: "DZ", Capital: "Algiers", Flag: "🇩🇿", X: 48, Y: 60, Continent: "Africa"},

	// Oceania
	{Name: "Australia", Code: "AU", Capital: "Canberra", Flag: "🇦🇺", X: 85, Y: 88, Continent: "Oceania", Monument: "Sydney Opera House"},
	{Name: "New Zealand", Code: "NZ", Capital: "Wellington", Flag: "🇳🇿", X: 92, Y: 92, Continent: "Oceania"},
}

// ValidContinent reports whether continent is one of Continents.
func ValidContinent(continent string) bool {
	for _, c := range Continents {
		if c == continent {
			return true
		}
	}
	return false
}

// ByContinent filters countries to one continent, keeping dataset order.
// World returns the input unchanged.
func ByContinent(all []domain.Country, continent string) []domain.Country {
	if continent == World {
		return all
	}
	out := make([]domain.Country, 0, len(all))
	for _, c := range all {
		if c.Continent == continent {
			out = append(out, c)
		}
	}
	return out
}

// Validate checks that codes are unique and coordinates lie on the map.
func Validate(all []domain.Country) error {
	seen := make(map[string]struct{}, len(all))
	for _, c := range all {
		if c.Code == "" {
			return fmt.Errorf("%w: country %q has no code", domain.ErrInvalidDataset, c.Name)
		}
		if _, ok := seen[c.Code]; ok {
			return fmt.Errorf("%w: duplicate code %s", domain.ErrInvalidDataset, c.Code)
		}
		seen[c.Code] = struct{}{}
		if c.X < 0 || c.X > 100 || c.Y < 0 || c.Y > 100 {
			return fmt.Errorf("%w: %s position (%g,%g) outside the map", domain.ErrInvalidDataset, c.Code, c.X, c.Y)
		}
	}
	return nil
}
