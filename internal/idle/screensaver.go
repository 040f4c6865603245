package idle

import (
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/screensaver"
	"github.com/jezek/xgb/xproto"
)

// ScreenSaverSource queries the MIT-SCREEN-SAVER extension, the same
// counter xprintidle reads. The server resets it on any input from any
// device, so no event bookkeeping is needed while it works.
type ScreenSaverSource struct {
	conn *xgb.Conn
	root xproto.Drawable
}

// NewScreenSaverSource initializes the extension and performs one probe
// query. A nil Source and an error mean the capability is absent and
// the caller should start on the fallback path.
func NewScreenSaverSource(conn *xgb.Conn, root xproto.Window) (*ScreenSaverSource, error) {
	if err := screensaver.Init(conn); err != nil {
		return nil, fmt.Errorf("MIT-SCREEN-SAVER extension not available: %w", err)
	}

	s := &ScreenSaverSource{
		conn: conn,
		root: xproto.Drawable(root),
	}

	if _, err := s.SecondsIdle(); err != nil {
		return nil, fmt.Errorf("MIT-SCREEN-SAVER probe query failed: %w", err)
	}

	return s, nil
}

// SecondsIdle queries the server afresh; milliseconds to seconds.
func (s *ScreenSaverSource) SecondsIdle() (float64, error) {
	info, err := screensaver.QueryInfo(s.conn, s.root).Reply()
	if err != nil {
		return 0, err
	}
	return float64(info.MsSinceUserInput) / 1000.0, nil
}

func (s *ScreenSaverSource) Name() string {
	return "screensaver"
}
