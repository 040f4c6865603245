package supervisor

import (
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// Kind is the closed set of input events the daemon cares about. The
// payload is irrelevant; only the kind matters.
type Kind int

const (
	Unknown Kind = iota
	KeyPress
	KeyRelease
	ButtonPress
	ButtonRelease
	PointerMotion
)

var kindNames = map[Kind]string{
	Unknown:       "Unknown",
	KeyPress:      "KeyPress",
	KeyRelease:    "KeyRelease",
	ButtonPress:   "ButtonPress",
	ButtonRelease: "ButtonRelease",
	PointerMotion: "PointerMotion",
}

func (k Kind) String() string {
	return kindNames[k]
}

// WakesFromBlank reports whether the kind qualifies as a wake trigger
// while the display is blanked. Every classified input event does: the
// overlay owns the whole screen during a blank, so anything it receives
// is a deliberate interaction.
func (k Kind) WakesFromBlank() bool {
	return k != Unknown
}

// Classify maps a wire event to its Kind. Everything outside the input
// set (expose, configure, randr noise) is Unknown and ignored.
func Classify(ev xgb.Event) Kind {
	switch ev.(type) {
	case xproto.KeyPressEvent:
		return KeyPress
	case xproto.KeyReleaseEvent:
		return KeyRelease
	case xproto.ButtonPressEvent:
		return ButtonPress
	case xproto.ButtonReleaseEvent:
		return ButtonRelease
	case xproto.MotionNotifyEvent:
		return PointerMotion
	}
	return Unknown
}
