// Package overlay manages the fullscreen capture surface that absorbs
// the first input after a blank.
package overlay

import (
	"fmt"
	"log"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// Overlay owns at most one override-redirect window covering the whole
// screen. The window renders plain black; the panel is powered off
// while it is mapped, so its only job is to receive input.
type Overlay struct {
	conn   *xgb.Conn
	screen *xproto.ScreenInfo
	root   xproto.Window
	window xproto.Window
}

func New(conn *xgb.Conn, screen *xproto.ScreenInfo) *Overlay {
	return &Overlay{
		conn:   conn,
		screen: screen,
		root:   screen.Root,
	}
}

// Create maps the capture surface. No-op when one already exists. The
// window bypasses the window manager (override-redirect), selects key,
// button and motion events, and is raised and synced before Create
// returns so subsequent input is guaranteed to hit it.
func (o *Overlay) Create() error {
	if o.window != 0 {
		return nil
	}

	wid, err := xproto.NewWindowId(o.conn)
	if err != nil {
		return fmt.Errorf("failed to allocate window id: %w", err)
	}

	const copyFromParent = 0
	mask := uint32(xproto.CwBackPixel | xproto.CwOverrideRedirect | xproto.CwEventMask)
	values := []uint32{
		0x000000, // CwBackPixel - black, invisible while the panel is off
		1,        // CwOverrideRedirect - bypass window manager
		uint32(xproto.EventMaskKeyPress |
			xproto.EventMaskKeyRelease |
			xproto.EventMaskButtonPress |
			xproto.EventMaskButtonRelease |
			xproto.EventMaskPointerMotion),
	}

	err = xproto.CreateWindowChecked(o.conn,
		copyFromParent,
		wid,
		o.root,
		0, 0,
		o.screen.WidthInPixels, o.screen.HeightInPixels,
		0,
		xproto.WindowClassInputOutput,
		copyFromParent,
		mask,
		values).Check()
	if err != nil {
		return fmt.Errorf("failed to create overlay window: %w", err)
	}

	if err := xproto.MapWindowChecked(o.conn, wid).Check(); err != nil {
		// Unmapped window is useless for capture; clean it up and report.
		xproto.DestroyWindow(o.conn, wid)
		return fmt.Errorf("failed to map overlay window: %w", err)
	}

	if err := xproto.ConfigureWindowChecked(o.conn, wid,
		xproto.ConfigWindowStackMode,
		[]uint32{xproto.StackModeAbove}).Check(); err != nil {
		log.Printf("failed to raise overlay window: %v", err)
	}

	o.conn.Sync()
	o.window = wid

	log.Printf("Overlay created (id=%d, %dx%d) and mapped", wid,
		o.screen.WidthInPixels, o.screen.HeightInPixels)
	return nil
}

// Destroy unmaps and releases the capture surface. No-op when none
// exists. Errors are logged and swallowed; the handle is cleared
// regardless so the blanked/overlay invariant holds either way.
func (o *Overlay) Destroy() {
	if o.window == 0 {
		return
	}

	wid := o.window
	o.window = 0

	if err := xproto.UnmapWindowChecked(o.conn, wid).Check(); err != nil {
		log.Printf("failed to unmap overlay window: %v", err)
	}
	if err := xproto.DestroyWindowChecked(o.conn, wid).Check(); err != nil {
		log.Printf("failed to destroy overlay window: %v", err)
	}
	o.conn.Sync()

	log.Printf("Overlay destroyed (id=%d)", wid)
}

// Active reports whether the capture surface currently exists.
func (o *Overlay) Active() bool {
	return o.window != 0
}
