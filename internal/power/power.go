// Package power issues display power transitions. Both drivers are
// fire-and-forget: failures are logged, never returned and never
// retried. The next blank/wake cycle is the natural retry point.
package power

import (
	"fmt"
	"log"
	"os/exec"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/dpms"
)

// Controller switches the physical display on and off.
type Controller interface {
	On()
	Off()
}

// XsetController shells out to xset, the external display-power
// collaborator the kiosk scripts already rely on.
type XsetController struct{}

func NewXsetController() *XsetController {
	return &XsetController{}
}

func (c *XsetController) On() {
	c.force("on")
}

func (c *XsetController) Off() {
	c.force("off")
}

func (c *XsetController) force(state string) {
	cmd := exec.Command("xset", "dpms", "force", state)
	if err := cmd.Run(); err != nil {
		log.Printf("xset dpms force %s failed: %v", state, err)
	}
}

// DPMSController drives the DPMS extension over the existing X
// connection, avoiding the subprocess per transition.
type DPMSController struct {
	conn *xgb.Conn
}

// NewDPMSController initializes the extension and verifies the display
// is DPMS capable.
func NewDPMSController(conn *xgb.Conn) (*DPMSController, error) {
	if err := dpms.Init(conn); err != nil {
		return nil, fmt.Errorf("DPMS extension not available: %w", err)
	}

	capable, err := dpms.Capable(conn).Reply()
	if err != nil || capable == nil || !capable.Capable {
		return nil, fmt.Errorf("display is not DPMS capable")
	}

	return &DPMSController{conn: conn}, nil
}

func (c *DPMSController) On() {
	c.force(dpms.DPMSModeOn, "on")
}

func (c *DPMSController) Off() {
	c.force(dpms.DPMSModeOff, "off")
}

func (c *DPMSController) force(level uint16, state string) {
	if err := dpms.ForceLevelChecked(c.conn, level).Check(); err != nil {
		log.Printf("DPMS force %s failed: %v", state, err)
	}
}
