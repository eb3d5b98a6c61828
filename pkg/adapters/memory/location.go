package memory

import (
	"context"
	"sync"
)

// Location implements ports.Location in memory: a single mutable URL
// with subscriber notification. It stands in for a browser address bar
// in tests, CLIs and server-side sessions.
type Location struct {
	mu       sync.Mutex
	url      string
	history  []string
	watchers []chan string
}

// NewLocation creates a location seeded with an initial URL ("" is fine).
func NewLocation(initial string) *Location {
	l := &Location{url: initial}
	if initial != "" {
		l.history = []string{initial}
	}
	return l
}

// Current returns the present URL.
func (l *Location) Current() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.url, nil
}

// Push appends a new URL to history and notifies watchers.
func (l *Location) Push(url string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.url = url
	l.history = append(l.history, url)
	l.notifyLocked(url)
	return nil
}

// Replace swaps the current URL without growing history and notifies
// watchers.
func (l *Location) Replace(url string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.url = url
	if n := len(l.history); n > 0 {
		l.history[n-1] = url
	} else {
		l.history = []string{url}
	}
	l.notifyLocked(url)
	return nil
}

// Back pops one history entry, like a browser back button, and notifies
// watchers of the URL it lands on.
func (l *Location) Back() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.history) < 2 {
		return "", false
	}
	l.history = l.history[:len(l.history)-1]
	url := l.history[len(l.history)-1]
	l.url = url
	l.notifyLocked(url)
	return url, true
}

// History returns a copy of the history stack, oldest first.
func (l *Location) History() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.history...)
}

// Watch subscribes to URL changes until ctx is canceled.
func (l *Location) Watch(ctx context.Context) (<-chan string, error) {
	ch := make(chan string, 8)
	l.mu.Lock()
	l.watchers = append(l.watchers, ch)
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, w := range l.watchers {
			if w == ch {
				l.watchers = append(l.watchers[:i], l.watchers[i+1:]...)
				break
			}
		}
		// Closed under the lock so notifyLocked can never send on a
		// closed channel.
		close(ch)
	}()
	return ch, nil
}

// notifyLocked fans a URL out without blocking on slow subscribers.
// Callers hold l.mu.
func (l *Location) notifyLocked(url string) {
	for _, w := range l.watchers {
		select {
		case w <- url:
		default:
		}
	}
}
