package app

import (
	"sync"
	"time"

	"community_chat_client/internal/notify/domain"
	"community_chat_client/pkg/logger"

	"go.uber.org/zap"
)

// Visibility reports whether the client surface is in the foreground.
// It is consulted at the instant an event is dispatched, never cached.
type Visibility interface {
	Visible() bool
}

// Toaster renders a transient in-app notice
type Toaster interface {
	Toast(n domain.Notification)
}

// AudioPlayer plays the short foreground cue. Failures are swallowed.
type AudioPlayer interface {
	Play() error
}

// SystemNotifier is the OS-level notification capability. The durable
// background implementation outlives the client surface; the null one
// is foreground-only, so the core stays testable without a real OS
// notification surface.
type SystemNotifier interface {
	// Granted whether the user previously granted permission
	Granted() bool
	// Notify issues the notification. Equal tags group/replace rather
	// than stack at the OS level.
	Notify(n domain.Notification, tag string) error
}

const defaultDedupWindow = 2 * time.Second

// Options definition dispatcher wiring
type Options struct {
	SessionUserID string

	Visibility Visibility
	Toaster    Toaster
	Audio      AudioPlayer
	// Background is the durable delivery context, Direct the in-page
	// fallback used when background permission is absent.
	Background SystemNotifier
	Direct     SystemNotifier

	DedupWindow time.Duration
	Log         *logger.LogInfo
}

// Dispatcher decides, per inbound notification-worthy event, between
// an in-app toast, an OS-level notification, or nothing. It is an
// explicitly owned object: construct one per session, Close it on
// sign-out. The mute flag and the dedup set are session-wide and read
// fresh on every event.
type Dispatcher struct {
	opts   Options
	window time.Duration

	mu     sync.Mutex
	muted  bool
	recent map[string]*time.Timer
	closed bool
}

// NewDispatcher create a Dispatcher for one signed-in session
func NewDispatcher(opts Options) *Dispatcher {
	window := opts.DedupWindow
	if window <= 0 {
		window = defaultDedupWindow
	}
	return &Dispatcher{
		opts:   opts,
		window: window,
		recent: make(map[string]*time.Timer),
	}
}

// SetMuted flips the session-wide mute switch. Takes effect for the
// very next event, the flag is never captured at subscribe time.
func (d *Dispatcher) SetMuted(muted bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.muted = muted
}

// Muted current value of the mute switch
func (d *Dispatcher) Muted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.muted
}

// Dispatch runs one notification through mute, dedup and the
// foreground/background decision. Returns whether anything visible
// happened.
func (d *Dispatcher) Dispatch(n domain.Notification) bool {
	// locally-authored events never notify
	if d.opts.SessionUserID != "" && n.SenderID == d.opts.SessionUserID {
		return false
	}
	if d.Muted() {
		return false
	}
	if !d.record(domain.DeliveryKey(n.RoomID, n.Text)) {
		return false
	}

	if d.opts.Visibility == nil || d.opts.Visibility.Visible() {
		d.deliverForeground(n)
	} else {
		d.deliverBackground(n)
	}
	return true
}

// Notify is the fire-and-forget surface the rest of the application
// uses to raise a toast through the same mute/dedup machinery.
func (d *Dispatcher) Notify(title, message string, kind domain.Kind, image string) {
	d.Dispatch(domain.Notification{
		Title: title,
		Text:  message,
		Kind:  kind,
		Image: image,
	})
}

// Close stops the expiry timers and drops every further dispatch
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for key, t := range d.recent {
		t.Stop()
		delete(d.recent, key)
	}
}

func (d *Dispatcher) deliverForeground(n domain.Notification) {
	if d.opts.Audio != nil {
		if err := d.opts.Audio.Play(); err != nil {
			// best-effort cue, never surfaced
			d.opts.Log.Debug("audio cue failed", zap.Error(err))
		}
	}
	if d.opts.Toaster != nil {
		d.opts.Toaster.Toast(n)
	}
}

func (d *Dispatcher) deliverBackground(n domain.Notification) {
	tag := "room:" + n.RoomID

	target := d.opts.Direct
	if d.opts.Background != nil && d.opts.Background.Granted() {
		target = d.opts.Background
	}
	if target == nil {
		// no OS surface at all, degrade to the toast path
		d.deliverForeground(n)
		return
	}
	if err := target.Notify(n, tag); err != nil {
		d.opts.Log.Warn("system notification failed",
			zap.String("roomID", n.RoomID), zap.Error(err))
	}
}

// record inserts the dedup key unless it is already live; the entry
// auto-expires after the window.
func (d *Dispatcher) record(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	if _, ok := d.recent[key]; ok {
		return false
	}
	d.recent[key] = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		delete(d.recent, key)
		d.mu.Unlock()
	})
	return true
}
