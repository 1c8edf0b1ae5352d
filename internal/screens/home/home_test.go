package home

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/mikeymath/mathgame/internal/router"
	"github.com/mikeymath/mathgame/internal/screen"
)

type stubScreen struct{ title string }

func (s *stubScreen) Init() tea.Cmd                           { return nil }
func (s *stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (s *stubScreen) View(int, int) string                    { return s.title }
func (s *stubScreen) Title() string                           { return s.title }

func factory(title string) func() screen.Screen {
	return func() screen.Screen { return &stubScreen{title: title} }
}

func TestHomeScreen_MenuPushesScreens(t *testing.T) {
	h := New(Options{Play: factory("Play"), Companion: factory("Companion")})

	_, cmd := h.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a command")
	}
	push, ok := cmd().(router.PushScreenMsg)
	if !ok || push.Screen.Title() != "Play" {
		t.Fatalf("expected push of Play, got %#v", cmd())
	}

	_, cmd = h.Update(tea.KeyPressMsg{Code: '2', Text: "2"})
	push, ok = cmd().(router.PushScreenMsg)
	if !ok || push.Screen.Title() != "Companion" {
		t.Errorf("expected push of Companion")
	}
}

func TestHomeScreen_NilFactoryHidesEntry(t *testing.T) {
	h := New(Options{Companion: factory("Companion")})
	labels := h.menu.Labels()
	if len(labels) != 2 || labels[0] != "COMPANION" {
		t.Errorf("labels = %v", labels)
	}
}

func TestHomeScreen_NoticeFromHomeMsg(t *testing.T) {
	h := New(Options{Play: factory("Play"), Learner: "learner 7"})
	if !strings.Contains(h.View(120, 40), "learner 7") {
		t.Error("expected learner label")
	}

	msg := "Add at least 3 videos via playlists in Settings to play."
	h.Update(router.HomeMsg{Notice: msg})
	if h.Notice() != msg {
		t.Fatalf("notice = %q", h.Notice())
	}
	if !strings.Contains(h.View(120, 40), "Add at least 3 videos") {
		t.Error("expected notice in view")
	}

	h.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	if h.Notice() != "" {
		t.Error("key press should dismiss the notice")
	}
}

func TestHomeScreen_CompactTitle(t *testing.T) {
	h := New(Options{Play: factory("Play")})
	if !strings.Contains(h.View(80, 18), titleCompact) {
		t.Error("expected compact title on a small terminal")
	}
}
