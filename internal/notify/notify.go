// Package notify holds transient toast and push-banner state. Display is a
// collaborator's concern; this package only tracks what is currently shown
// and expires it after a fixed window.
package notify

import (
	"sync"
	"time"
)

// Notifier is what mutation operations use to surface feedback.
type Notifier interface {
	// Toast shows a short confirmation with a message and a sub line.
	Toast(message, sub string)
	// Push shows a simulated push banner with a title and body.
	Push(title, body string)
}

// Toast is a bottom-of-screen confirmation.
type Toast struct {
	Message string `json:"message"`
	Sub     string `json:"sub"`
}

// Push is a simulated push-notification banner.
type Push struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Sink receives every notification as it is raised, e.g. to broadcast it
// over SSE. kind is "toast" or "push".
type Sink func(kind string, payload any)

const (
	defaultToastTTL = 3 * time.Second
	defaultPushTTL  = 10 * time.Second
)

// Center implements Notifier with auto-dismiss timers. Each banner carries a
// generation counter: a timer that fires after a newer banner replaced the
// one it was armed for is a verified no-op, so stale dismissals never clear
// fresh state.
type Center struct {
	mu       sync.Mutex
	toastTTL time.Duration
	pushTTL  time.Duration
	sink     Sink

	toast    *Toast
	toastGen uint64
	push     *Push
	pushGen  uint64

	prefs Prefs
}

// NewCenter creates a Center. Non-positive TTLs use the defaults
// (3s for toasts, 10s for push banners). sink may be nil.
func NewCenter(toastTTL, pushTTL time.Duration, sink Sink) *Center {
	if toastTTL <= 0 {
		toastTTL = defaultToastTTL
	}
	if pushTTL <= 0 {
		pushTTL = defaultPushTTL
	}
	return &Center{toastTTL: toastTTL, pushTTL: pushTTL, sink: sink, prefs: DefaultPrefs()}
}

// Toast replaces the active toast and arms its dismissal timer.
func (c *Center) Toast(message, sub string) {
	c.mu.Lock()
	c.toastGen++
	gen := c.toastGen
	c.toast = &Toast{Message: message, Sub: sub}
	sink := c.sink
	c.mu.Unlock()

	if sink != nil {
		sink("toast", Toast{Message: message, Sub: sub})
	}

	time.AfterFunc(c.toastTTL, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.toastGen == gen {
			c.toast = nil
		}
	})
}

// Push replaces the active push banner and arms its dismissal timer.
// A disabled push preference suppresses the banner entirely.
func (c *Center) Push(title, body string) {
	c.mu.Lock()
	if !c.prefs.PushEnabled {
		c.mu.Unlock()
		return
	}
	c.pushGen++
	gen := c.pushGen
	c.push = &Push{Title: title, Body: body}
	sink := c.sink
	c.mu.Unlock()

	if sink != nil {
		sink("push", Push{Title: title, Body: body})
	}

	time.AfterFunc(c.pushTTL, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.pushGen == gen {
			c.push = nil
		}
	})
}

// ActiveToast returns the toast currently shown, if any.
func (c *Center) ActiveToast() (Toast, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.toast == nil {
		return Toast{}, false
	}
	return *c.toast, true
}

// ActivePush returns the push banner currently shown, if any.
func (c *Center) ActivePush() (Push, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.push == nil {
		return Push{}, false
	}
	return *c.push, true
}

// DismissToast clears the active toast immediately.
func (c *Center) DismissToast() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toastGen++
	c.toast = nil
}

// DismissPush clears the active push banner immediately.
func (c *Center) DismissPush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pushGen++
	c.push = nil
}

// Nop discards all notifications. Useful for the MCP entry point and tests
// that do not assert on feedback.
type Nop struct{}

func (Nop) Toast(string, string) {}
func (Nop) Push(string, string)  {}

var (
	_ Notifier = (*Center)(nil)
	_ Notifier = Nop{}
)
