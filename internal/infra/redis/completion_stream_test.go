package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"voyageur-express/internal/domain"
)

func TestCompletionStreamPublishesAndKeepsHistory(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	stream := NewCompletionStream(client, "", 2)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, DefaultCompletionChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	for _, score := range []int{100, 200, 300} {
		err := stream.Publish(ctx, domain.Completion{
			Type:    domain.CompletionType,
			BlockID: domain.BlockID,
			Score:   score,
		})
		if err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	var got domain.Completion
	if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if got.Type != "BLOCK_COMPLETION" || got.Score != 100 {
		t.Fatalf("unexpected pushed completion %+v", got)
	}

	recent, err := stream.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || recent[0].Score != 300 || recent[1].Score != 200 {
		t.Fatalf("expected capped newest-first history, got %+v", recent)
	}

	one, err := stream.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(one) != 1 || one[0].Score != 300 {
		t.Fatalf("expected only the newest, got %+v", one)
	}
}
