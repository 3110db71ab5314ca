package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"voyageur-express/internal/app"
	"voyageur-express/internal/dataset"
	"voyageur-express/internal/domain"
	"voyageur-express/internal/infra/memory"
)

func newTestServer(t *testing.T, countries []domain.Country, rules app.Rules, checks map[string]Checker) (*httptest.Server, *memory.CompletionLog) {
	t.Helper()
	completions := memory.NewCompletionLog(10)
	repo := memory.NewCountryRepository(memory.NewStaticCountryLoader(map[string][]domain.Country{
		dataset.Version: countries,
	}), time.Minute)
	service := app.NewGameService(memory.NewSessionStore(), repo, completions, app.WithRules(rules))

	server := httptest.NewServer(NewRouter(RouterConfig{
		Service:     service,
		Completions: completions,
		Checks:      checks,
	}))
	t.Cleanup(server.Close)
	return server, completions
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestContinentsAndCountries(t *testing.T) {
	server, _ := newTestServer(t, dataset.Countries(), app.DefaultRules(), nil)

	var continents []string
	if status := getJSON(t, server.URL+"/api/continents", &continents); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if len(continents) != 7 || continents[0] != dataset.World {
		t.Fatalf("unexpected continents %v", continents)
	}

	var countries []domain.Country
	if status := getJSON(t, server.URL+"/api/countries?continent=Oceania", &countries); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if len(countries) != 2 || countries[0].Code != "AU" {
		t.Fatalf("unexpected countries %+v", countries)
	}

	var all []domain.Country
	getJSON(t, server.URL+"/api/countries", &all)
	if len(all) != len(dataset.Countries()) {
		t.Fatalf("expected full dataset, got %d", len(all))
	}

	var body map[string]string
	if status := getJSON(t, server.URL+"/api/countries?continent=Atlantis", &body); status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if body["error"] == "" {
		t.Fatalf("expected error message")
	}
}

func TestCompletionsEndpoint(t *testing.T) {
	server, completions := newTestServer(t, dataset.Countries(), app.DefaultRules(), nil)
	ctx := context.Background()
	for _, score := range []int{300, 900} {
		if err := completions.Publish(ctx, domain.Completion{Type: domain.CompletionType, Score: score}); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	var recent []domain.Completion
	if status := getJSON(t, server.URL+"/api/completions?limit=1", &recent); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if len(recent) != 1 || recent[0].Score != 900 {
		t.Fatalf("expected newest completion, got %+v", recent)
	}

	if status := getJSON(t, server.URL+"/api/completions?limit=abc", nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", status)
	}
}

func TestHealthReportsFailingDependency(t *testing.T) {
	checks := map[string]Checker{
		"redis":    CheckFunc(func(context.Context) error { return nil }),
		"postgres": CheckFunc(func(context.Context) error { return errors.New("down") }),
	}
	server, _ := newTestServer(t, dataset.Countries(), app.DefaultRules(), checks)

	var body struct {
		Checks map[string]string `json:"checks"`
	}
	if status := getJSON(t, server.URL+"/healthz", &body); status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", status)
	}
	if body.Checks["redis"] != "ok" || body.Checks["postgres"] != "error" {
		t.Fatalf("unexpected checks %+v", body.Checks)
	}
}

func TestHealthWithoutDependencies(t *testing.T) {
	server, _ := newTestServer(t, dataset.Countries(), app.DefaultRules(), nil)
	if status := getJSON(t, server.URL+"/healthz", nil); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
}
