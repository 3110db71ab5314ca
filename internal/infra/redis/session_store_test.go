package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"voyageur-express/internal/app"
	"voyageur-express/internal/dataset"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)
	session := app.NewSession("s-1", dataset.Countries(), app.DefaultRules())

	store.Put(session)
	if !mr.Exists("voyageur:session:s-1") {
		t.Fatalf("expected redis key to be set")
	}
	if got, ok := store.Get("s-1"); !ok || got != session {
		t.Fatalf("expected local session")
	}

	store.Delete("s-1")
	if mr.Exists("voyageur:session:s-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get("s-1"); ok {
		t.Fatalf("expected session forgotten")
	}
}

func TestSessionStoreGetRefreshesLiveness(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)
	store.Put(app.NewSession("s-1", dataset.Countries(), app.DefaultRules()))

	mr.FastForward(50 * time.Second)
	if _, ok := store.Get("s-1"); !ok {
		t.Fatalf("expected session")
	}
	mr.FastForward(50 * time.Second)

	live, err := store.Live(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("live: %v", err)
	}
	if !live {
		t.Fatalf("expected liveness refreshed by Get")
	}

	mr.FastForward(2 * time.Minute)
	if live, _ := store.Live(context.Background(), "s-1"); live {
		t.Fatalf("expected idle session marker to expire")
	}
}
