package voicestate_test

import (
	"context"
	"testing"

	"github.com/glizzus/voicelink/internal/voicestate"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := voicestate.NewMemoryStore()

	steps := []struct {
		name      string
		userID    string
		channelID string
		wantID    string
		wantOK    bool
	}{
		{name: "join", userID: "alice", channelID: "general", wantID: "general", wantOK: true},
		{name: "move", userID: "alice", channelID: "music", wantID: "music", wantOK: true},
		{name: "other user untouched", userID: "bob", channelID: "general", wantID: "general", wantOK: true},
		{name: "leave", userID: "alice", channelID: "", wantID: "", wantOK: false},
	}

	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			if err := store.Record(ctx, step.userID, step.channelID); err != nil {
				t.Fatalf("Record() returned error: %v", err)
			}
			got, ok, err := store.Lookup(ctx, step.userID)
			if err != nil {
				t.Fatalf("Lookup() returned error: %v", err)
			}
			if got != step.wantID || ok != step.wantOK {
				t.Errorf("Lookup(%q) = %q, %t; want %q, %t", step.userID, got, ok, step.wantID, step.wantOK)
			}
		})
	}
}
