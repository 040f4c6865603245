// Package x11 owns the display-server connection: setup, extension
// initialization and the event pump the supervisor selects on.
package x11

import (
	"fmt"
	"log"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// Display wraps the X connection together with the default screen.
type Display struct {
	Conn   *xgb.Conn
	Screen *xproto.ScreenInfo
	Root   xproto.Window
}

// Connect establishes the X connection. Failure here is the one fatal
// startup error of the daemon.
func Connect() (*Display, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	return &Display{
		Conn:   conn,
		Screen: screen,
		Root:   screen.Root,
	}, nil
}

// Close shuts the connection down. Server-side resources (overlay
// window included) are reclaimed automatically on disconnect.
func (d *Display) Close() {
	d.Conn.Close()
}

// SelectRootEvents asks for core input and structure events on the
// root window. This is the pre-blank activity signal for the fallback
// idle path. Input mostly goes to the focused client rather than the
// root window, so the signal is best-effort; another client may also
// already own parts of the mask. Failures are reported but not fatal.
func (d *Display) SelectRootEvents() error {
	mask := uint32(xproto.EventMaskKeyPress |
		xproto.EventMaskKeyRelease |
		xproto.EventMaskButtonPress |
		xproto.EventMaskButtonRelease |
		xproto.EventMaskPointerMotion |
		xproto.EventMaskStructureNotify)

	return xproto.ChangeWindowAttributesChecked(d.Conn, d.Root,
		xproto.CwEventMask, []uint32{mask}).Check()
}

// Events starts the event pump. A goroutine blocks in WaitForEvent and
// forwards everything to the returned channel; the channel closes when
// the connection dies. This is the descriptor-multiplexed wait of the
// daemon: the supervisor selects on this channel with a computed
// timeout instead of polling.
func (d *Display) Events() <-chan xgb.Event {
	events := make(chan xgb.Event, 16)

	go func() {
		defer close(events)

		for {
			ev, err := d.Conn.WaitForEvent()
			if ev == nil && err == nil {
				log.Println("X connection closed")
				return
			}
			if err != nil {
				log.Printf("X event error: %v", err)
				continue
			}
			events <- ev
		}
	}()

	return events
}
