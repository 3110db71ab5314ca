package cli

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"voyageur-express/internal/config"
	"voyageur-express/internal/dataset"
)

func TestRootRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"start", "migrate", "seed"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("expected %s subcommand, got %v", name, err)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil || root.PersistentFlags().Lookup("port") == nil {
		t.Fatalf("expected --config and --port flags")
	}
}

func TestMigrateRequiresPostgres(t *testing.T) {
	if err := runMigrationsWithConfig(context.Background(), config.Config{}, zap.NewNop()); err == nil {
		t.Fatalf("expected error without postgres url")
	}
}

func TestDatasetVersionFallsBackToBuiltIn(t *testing.T) {
	if got := datasetVersion(config.Config{}); got != dataset.Version {
		t.Fatalf("expected %s, got %s", dataset.Version, got)
	}
	cfg := config.Config{Dataset: config.DatasetConfig{Version: "2025-01"}}
	if got := datasetVersion(cfg); got != "2025-01" {
		t.Fatalf("expected configured version, got %s", got)
	}
}
