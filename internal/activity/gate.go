package activity

import "sync"

// Gate tracks whether the host terminal currently has input focus.
//
// The terminal reports focus and blur transitions (tea.FocusMsg/tea.BlurMsg);
// the app root forwards them with SetFocused. Consumers either poll Focused
// or Subscribe to transitions.
type Gate struct {
	mu       sync.Mutex
	focused  bool
	nextID   int
	subs     map[int]func(focused bool)
	disposed bool
}

// NewGate creates a gate with the given initial focus state.
func NewGate(focused bool) *Gate {
	return &Gate{
		focused: focused,
		subs:    make(map[int]func(bool)),
	}
}

// Focused reports the current focus state. A disposed gate is never focused.
func (g *Gate) Focused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.focused && !g.disposed
}

// SetFocused records a focus transition and notifies subscribers when the
// state actually changes. No-op after Dispose.
func (g *Gate) SetFocused(focused bool) {
	g.mu.Lock()
	if g.disposed || g.focused == focused {
		g.mu.Unlock()
		return
	}
	g.focused = focused
	subs := make([]func(bool), 0, len(g.subs))
	for _, fn := range g.subs {
		subs = append(subs, fn)
	}
	g.mu.Unlock()

	for _, fn := range subs {
		fn(focused)
	}
}

// Subscribe registers fn for focus transitions and returns the unsubscribe
// handle. The handle is safe to call more than once.
func (g *Gate) Subscribe(fn func(focused bool)) (unsubscribe func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.disposed {
		return func() {}
	}

	id := g.nextID
	g.nextID++
	g.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.subs, id)
			g.mu.Unlock()
		})
	}
}

// Subscribers returns the number of live subscriptions.
func (g *Gate) Subscribers() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subs)
}

// Dispose drops every subscription. The gate stays unfocused afterwards.
func (g *Gate) Dispose() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.disposed = true
	g.subs = make(map[int]func(bool))
}
