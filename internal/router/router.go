package router

import (
	tea "charm.land/bubbletea/v2"

	"github.com/mikeymath/mathgame/internal/screen"
)

// PushScreenMsg requests the router to push a new screen onto the stack.
type PushScreenMsg struct {
	Screen screen.Screen
}

// PopScreenMsg requests the router to pop the current screen off the stack.
type PopScreenMsg struct{}

// ReplaceScreenMsg swaps the active screen for another.
type ReplaceScreenMsg struct {
	Screen screen.Screen
}

// HomeMsg unwinds the stack to the landing screen and hands it Notice.
// Screens send it when the server refuses the session.
type HomeMsg struct {
	Notice string
}

// Router manages a stack of screens.
type Router struct {
	stack []screen.Screen
}

// New creates a new Router with the given initial screen.
func New(initial screen.Screen) *Router {
	return &Router{
		stack: []screen.Screen{initial},
	}
}

// Push adds a screen on top of the stack and calls its Init().
func (r *Router) Push(s screen.Screen) tea.Cmd {
	r.stack = append(r.stack, s)
	return s.Init()
}

// Pop removes the top screen. No-op if stack depth would become 0.
func (r *Router) Pop() tea.Cmd {
	if len(r.stack) <= 1 {
		return nil
	}
	dispose(r.stack[len(r.stack)-1])
	r.stack = r.stack[:len(r.stack)-1]
	return nil
}

// Replace disposes the active screen and puts s in its place.
func (r *Router) Replace(s screen.Screen) tea.Cmd {
	if len(r.stack) == 0 {
		r.stack = append(r.stack, s)
		return s.Init()
	}
	dispose(r.stack[len(r.stack)-1])
	r.stack[len(r.stack)-1] = s
	return s.Init()
}

// Home pops every screen above the root, then forwards msg to the root.
func (r *Router) Home(msg HomeMsg) tea.Cmd {
	for len(r.stack) > 1 {
		dispose(r.stack[len(r.stack)-1])
		r.stack = r.stack[:len(r.stack)-1]
	}
	root, cmd := r.stack[0].Update(msg)
	r.stack[0] = root
	return cmd
}

// DisposeAll tears down every screen. Used on program exit.
func (r *Router) DisposeAll() {
	for i := len(r.stack) - 1; i >= 0; i-- {
		dispose(r.stack[i])
	}
}

// Active returns the top screen on the stack.
func (r *Router) Active() screen.Screen {
	if len(r.stack) == 0 {
		return nil
	}
	return r.stack[len(r.stack)-1]
}

// Depth returns the number of screens on the stack.
func (r *Router) Depth() int {
	return len(r.stack)
}

// Update forwards a message to the active screen and handles navigation messages.
func (r *Router) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case PushScreenMsg:
		return r.Push(msg.Screen)
	case PopScreenMsg:
		return r.Pop()
	case ReplaceScreenMsg:
		return r.Replace(msg.Screen)
	case HomeMsg:
		return r.Home(msg)
	}

	active := r.Active()
	if active == nil {
		return nil
	}

	updated, cmd := active.Update(msg)
	r.stack[len(r.stack)-1] = updated
	return cmd
}

// View renders the active screen.
func (r *Router) View(width, height int) string {
	active := r.Active()
	if active == nil {
		return ""
	}
	return active.View(width, height)
}

func dispose(s screen.Screen) {
	if d, ok := s.(screen.Disposer); ok {
		d.Dispose()
	}
}
