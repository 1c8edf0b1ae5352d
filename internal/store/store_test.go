package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikeymath/mathgame/internal/api"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	u, err := s.CreateUser(context.Background(), "Friend")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := s.AppendEvent(context.Background(), u.ID, api.EventInput{EventType: api.EventLoggedIn}, time.Now()); err != nil {
		t.Fatalf("append: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	ev, err := s.AppendEvent(context.Background(), u.ID, api.EventInput{EventType: api.EventLoggedIn}, time.Now())
	if err != nil {
		t.Fatalf("append after reopen: %v", err)
	}
	if ev.ID != 2 {
		t.Errorf("event id after reopen = %d, want 2", ev.ID)
	}
}

func TestSequenceCounter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 5; want++ {
		got, err := s.seq.Next(ctx)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if got != want {
			t.Errorf("seq = %d, want %d", got, want)
		}
	}
}

func TestEvents_AppendAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u, err := s.CreateUser(ctx, "Friend")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	other, err := s.CreateUser(ctx, "Other")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	inputs := []api.EventInput{
		{EventType: api.EventDisplayedProblem, Value: "7"},
		{EventType: api.EventAnsweredProblem, Value: "3"},
		{EventType: api.EventAnsweredProblem, Value: "4"},
	}
	for i, in := range inputs {
		if _, err := s.AppendEvent(ctx, u.ID, in, base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if _, err := s.AppendEvent(ctx, other.ID, api.EventInput{EventType: api.EventLoggedIn}, base); err != nil {
		t.Fatalf("append other: %v", err)
	}

	all, err := s.ListEvents(ctx, u.ID, QueryOpts{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].Value != "7" || all[2].Value != "4" {
		t.Errorf("events not oldest first: %+v", all)
	}
	if !all[1].Timestamp.Equal(base.Add(time.Second)) {
		t.Errorf("timestamp = %v", all[1].Timestamp)
	}

	last, err := s.ListEvents(ctx, u.ID, QueryOpts{Limit: 2})
	if err != nil {
		t.Fatalf("list limit: %v", err)
	}
	if len(last) != 2 || last[0].Value != "3" || last[1].Value != "4" {
		t.Errorf("limit kept wrong events: %+v", last)
	}

	answers, err := s.ListEvents(ctx, u.ID, QueryOpts{Types: []string{api.EventAnsweredProblem}, From: base.Add(2 * time.Second)})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(answers) != 1 || answers[0].Value != "4" {
		t.Errorf("filtered = %+v", answers)
	}
}

func TestListEvents_EmptyIsNotNil(t *testing.T) {
	s := openTestStore(t)
	events, err := s.ListEvents(context.Background(), 99, QueryOpts{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if events == nil {
		t.Error("expected empty slice, got nil")
	}
}

func TestGameState_SaveAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u, _ := s.CreateUser(ctx, "Friend")

	if _, err := s.GameState(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing gamestate err = %v, want ErrNotFound", err)
	}

	gs := api.GameState{UserID: u.ID, ProblemID: 3, VideoID: 10, Solved: 1, Target: 5}
	if err := s.SaveGameState(ctx, gs); err != nil {
		t.Fatalf("save: %v", err)
	}
	gs.Solved = 2
	if err := s.SaveGameState(ctx, gs); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.GameState(ctx, u.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != gs {
		t.Errorf("got %+v, want %+v", got, gs)
	}
}

func TestContent_DisableAndAssign(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u, _ := s.CreateUser(ctx, "Friend")

	for i := uint32(1); i <= 3; i++ {
		if err := s.SaveVideo(ctx, api.Video{ID: i, Title: "v", URL: "https://example.com"}); err != nil {
			t.Fatalf("save video: %v", err)
		}
		if err := s.SaveProblem(ctx, api.Problem{ID: i, Expression: "1+1", Answer: "2"}); err != nil {
			t.Fatalf("save problem: %v", err)
		}
	}
	if err := s.AssignVideos(ctx, u.ID, 1, 2, 3, 2); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := s.DisableVideo(ctx, 2); err != nil {
		t.Fatalf("disable video: %v", err)
	}
	if err := s.DisableProblem(ctx, 1); err != nil {
		t.Fatalf("disable problem: %v", err)
	}

	vids, err := s.EnabledVideoIDs(ctx, u.ID)
	if err != nil {
		t.Fatalf("enabled videos: %v", err)
	}
	if len(vids) != 2 || vids[0] != 1 || vids[1] != 3 {
		t.Errorf("enabled videos = %v, want [1 3]", vids)
	}
	probs, err := s.EnabledProblemIDs(ctx)
	if err != nil {
		t.Fatalf("enabled problems: %v", err)
	}
	if len(probs) != 2 || probs[0] != 2 {
		t.Errorf("enabled problems = %v, want [2 3]", probs)
	}

	// Disabled rows can still be fetched by id.
	if _, err := s.Problem(ctx, 1); err != nil {
		t.Errorf("disabled problem fetch: %v", err)
	}
	if _, err := s.Video(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing video err = %v, want ErrNotFound", err)
	}
}
