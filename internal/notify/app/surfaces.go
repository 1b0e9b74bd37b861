package app

import (
	"fmt"
	"io"

	"community_chat_client/internal/notify/domain"
)

// VisibilityFunc adapts a plain func to the Visibility interface
type VisibilityFunc func() bool

// Visible call the wrapped func
func (f VisibilityFunc) Visible() bool { return f() }

// ConsoleToaster renders toasts as lines on a writer, the terminal
// client's in-app notice surface
type ConsoleToaster struct {
	Out io.Writer
}

// Toast print the notice
func (t *ConsoleToaster) Toast(n domain.Notification) {
	if n.Title != "" {
		fmt.Fprintf(t.Out, "[%s] %s: %s\n", n.Kind, n.Title, n.Text)
		return
	}
	fmt.Fprintf(t.Out, "[%s] %s\n", n.Kind, n.Text)
}

// BellAudio plays the foreground cue as a terminal bell
type BellAudio struct {
	Out io.Writer
}

// Play write the bell byte
func (b *BellAudio) Play() error {
	_, err := b.Out.Write([]byte("\a"))
	return err
}

// NullSystemNotifier is the foreground-only stub: permission is never
// granted and issuing is a silent no-op.
type NullSystemNotifier struct{}

// Granted always false
func (NullSystemNotifier) Granted() bool { return false }

// Notify no-op
func (NullSystemNotifier) Notify(domain.Notification, string) error { return nil }

// ConsoleSystemNotifier stands in for the OS notification surface on a
// terminal: it prints tagged lines. Permission is a construction-time
// fact, mirroring a grant that happened before this session.
type ConsoleSystemNotifier struct {
	Out        io.Writer
	Permission bool
}

// Granted whether permission was previously granted
func (c *ConsoleSystemNotifier) Granted() bool { return c.Permission }

// Notify print the tagged notification line
func (c *ConsoleSystemNotifier) Notify(n domain.Notification, tag string) error {
	_, err := fmt.Fprintf(c.Out, "[notify %s] %s: %s\n", tag, n.Title, n.Text)
	return err
}
