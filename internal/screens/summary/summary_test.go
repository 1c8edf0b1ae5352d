package summary

import (
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/mikeymath/mathgame/internal/router"
	"github.com/mikeymath/mathgame/internal/session"
)

func testSummary() session.Summary {
	return session.Summary{
		Duration:       15*time.Minute + 7*time.Second,
		Submissions:    10,
		ProblemsSolved: 9,
		VideosWatched:  2,
		Accuracy:       0.9,
	}
}

func TestSummaryScreen_Title(t *testing.T) {
	s := New(testSummary())
	if s.Title() != "Session Summary" {
		t.Errorf("expected 'Session Summary', got %q", s.Title())
	}
}

func TestSummaryScreen_View(t *testing.T) {
	view := New(testSummary()).View(100, 30)

	for _, want := range []string{"Great work!", "15:07", "Solved: 9", "90%", "2 videos watched"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestSummaryScreen_EmptySession(t *testing.T) {
	view := New(session.Summary{}).View(100, 30)
	if !strings.Contains(view, "See you next time!") {
		t.Error("expected empty-session headline")
	}
	if !strings.Contains(view, "No videos this time") {
		t.Error("expected no-videos line")
	}
}

func TestSummaryScreen_EnterPops(t *testing.T) {
	s := New(testSummary())
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Error("expected PopScreenMsg")
	}
}
