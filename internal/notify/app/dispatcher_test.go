package app

import (
	"errors"
	"sync"
	"testing"
	"time"

	"community_chat_client/internal/notify/domain"
	"community_chat_client/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingToaster struct {
	mu   sync.Mutex
	seen []domain.Notification
}

func (r *recordingToaster) Toast(n domain.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, n)
}

func (r *recordingToaster) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

type recordingNotifier struct {
	granted bool
	err     error

	mu   sync.Mutex
	tags []string
}

func (r *recordingNotifier) Granted() bool { return r.granted }

func (r *recordingNotifier) Notify(n domain.Notification, tag string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tags = append(r.tags, tag)
	return r.err
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tags)
}

type countingAudio struct {
	plays int
	err   error
}

func (c *countingAudio) Play() error {
	c.plays++
	return c.err
}

func testLogger(t *testing.T) *logger.LogInfo {
	t.Helper()
	return logger.Initialize("test", t.TempDir())
}

func newTestDispatcher(t *testing.T, visible bool, window time.Duration) (*Dispatcher, *recordingToaster, *countingAudio, *recordingNotifier, *recordingNotifier) {
	t.Helper()
	toaster := &recordingToaster{}
	audio := &countingAudio{}
	background := &recordingNotifier{granted: true}
	direct := &recordingNotifier{}
	d := NewDispatcher(Options{
		SessionUserID: "alice",
		Visibility:    VisibilityFunc(func() bool { return visible }),
		Toaster:       toaster,
		Audio:         audio,
		Background:    background,
		Direct:        direct,
		DedupWindow:   window,
		Log:           testLogger(t),
	})
	t.Cleanup(d.Close)
	return d, toaster, audio, background, direct
}

func messageFrom(sender, room, text string) domain.Notification {
	return domain.Notification{
		RoomID:   room,
		SenderID: sender,
		Title:    sender,
		Text:     text,
		Kind:     domain.KindMessage,
	}
}

func TestDispatcher_ForegroundPlaysAndToasts(t *testing.T) {
	d, toaster, audio, background, direct := newTestDispatcher(t, true, time.Second)

	assert.True(t, d.Dispatch(messageFrom("bob", "alice_bob", "hi")))
	assert.Equal(t, 1, toaster.count())
	assert.Equal(t, 1, audio.plays)
	// no OS notification in the foreground, it would double-deliver
	assert.Equal(t, 0, background.count())
	assert.Equal(t, 0, direct.count())
}

func TestDispatcher_AudioFailureIsSwallowed(t *testing.T) {
	d, toaster, audio, _, _ := newTestDispatcher(t, true, time.Second)
	audio.err = errors.New("no output device")

	assert.True(t, d.Dispatch(messageFrom("bob", "alice_bob", "hi")))
	assert.Equal(t, 1, toaster.count())
}

func TestDispatcher_BackgroundUsesGrantedNotifier(t *testing.T) {
	d, toaster, _, background, direct := newTestDispatcher(t, false, time.Second)

	assert.True(t, d.Dispatch(messageFrom("bob", "alice_bob", "hi")))
	assert.Equal(t, 0, toaster.count())
	require.Equal(t, 1, background.count())
	assert.Equal(t, 0, direct.count())
	// tagged per room so the OS replaces instead of stacking
	assert.Equal(t, "room:alice_bob", background.tags[0])
}

func TestDispatcher_BackgroundFallsBackWithoutPermission(t *testing.T) {
	d, _, _, background, direct := newTestDispatcher(t, false, time.Second)
	background.granted = false

	assert.True(t, d.Dispatch(messageFrom("bob", "alice_bob", "hi")))
	assert.Equal(t, 0, background.count())
	assert.Equal(t, 1, direct.count())
}

func TestDispatcher_DedupWithinWindow(t *testing.T) {
	d, toaster, _, _, _ := newTestDispatcher(t, true, 80*time.Millisecond)

	// same (room, text) twice in close succession: one visible delivery
	assert.True(t, d.Dispatch(messageFrom("bob", "alice_bob", "hi")))
	assert.False(t, d.Dispatch(messageFrom("bob", "alice_bob", "hi")))
	assert.Equal(t, 1, toaster.count())

	// a different text is not a duplicate
	assert.True(t, d.Dispatch(messageFrom("bob", "alice_bob", "hi again")))
	assert.Equal(t, 2, toaster.count())

	// after expiry the same key delivers again
	time.Sleep(120 * time.Millisecond)
	assert.True(t, d.Dispatch(messageFrom("bob", "alice_bob", "hi")))
	assert.Equal(t, 3, toaster.count())
}

func TestDispatcher_MuteTakesEffectImmediately(t *testing.T) {
	d, toaster, audio, background, _ := newTestDispatcher(t, true, time.Second)

	d.SetMuted(true)
	assert.False(t, d.Dispatch(messageFrom("bob", "alice_bob", "one")))
	assert.Equal(t, 0, toaster.count())
	assert.Equal(t, 0, audio.plays)
	assert.Equal(t, 0, background.count())

	// unmuting applies to the very next event, nothing is re-subscribed
	d.SetMuted(false)
	assert.True(t, d.Dispatch(messageFrom("bob", "alice_bob", "two")))
	assert.Equal(t, 1, toaster.count())
}

func TestDispatcher_SkipsLocallyAuthored(t *testing.T) {
	d, toaster, _, _, _ := newTestDispatcher(t, true, time.Second)

	assert.False(t, d.Dispatch(messageFrom("alice", "alice_bob", "echo of my own send")))
	assert.Equal(t, 0, toaster.count())
}

func TestDispatcher_NotifySurface(t *testing.T) {
	d, toaster, _, _, _ := newTestDispatcher(t, true, time.Second)

	d.Notify("Tickets", "your order is confirmed", domain.KindInfo, "")
	require.Equal(t, 1, toaster.count())
	assert.Equal(t, domain.KindInfo, toaster.seen[0].Kind)

	// the app-facing surface shares the dedup machinery
	d.Notify("Tickets", "your order is confirmed", domain.KindInfo, "")
	assert.Equal(t, 1, toaster.count())
}

func TestDispatcher_CloseDropsEverything(t *testing.T) {
	d, toaster, _, _, _ := newTestDispatcher(t, true, time.Second)

	d.Close()
	assert.False(t, d.Dispatch(messageFrom("bob", "alice_bob", "hi")))
	assert.Equal(t, 0, toaster.count())
}
