// Package daemon tracks the background kioskidle process through a PID
// file.
package daemon

import (
	"fmt"
	"os"
	"strconv"
	"syscall"
)

// Daemon manages the PID file of a running kioskidle process.
type Daemon struct {
	pidFile string
}

func New(pidFile string) *Daemon {
	return &Daemon{pidFile: pidFile}
}

func (d *Daemon) WritePID() error {
	return os.WriteFile(d.pidFile, []byte(strconv.Itoa(os.Getpid())), 0644)
}

// ReadPID returns the recorded PID, 0 when no PID file exists.
func (d *Daemon) ReadPID() (int, error) {
	data, err := os.ReadFile(d.pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read PID file %s: %w", d.pidFile, err)
	}

	pid, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, fmt.Errorf("PID file %s holds no PID: %w", d.pidFile, err)
	}

	return pid, nil
}

func (d *Daemon) RemovePID() error {
	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove PID file %s: %w", d.pidFile, err)
	}
	return nil
}

// IsRunning probes the recorded PID with signal 0 and clears a stale
// PID file when the process is gone.
func (d *Daemon) IsRunning() (bool, int, error) {
	pid, err := d.ReadPID()
	if err != nil {
		return false, 0, err
	}
	if pid == 0 {
		return false, 0, nil
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false, 0, nil
	}
	if err := process.Signal(syscall.Signal(0)); err != nil {
		d.RemovePID()
		return false, 0, nil
	}

	return true, pid, nil
}

// Stop sends SIGTERM to the running supervisor and removes the PID
// file.
func (d *Daemon) Stop() error {
	running, pid, err := d.IsRunning()
	if err != nil {
		return fmt.Errorf("check daemon status: %w", err)
	}
	if !running {
		return fmt.Errorf("kioskidle daemon is not running or its PID file is stale")
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		if err.Error() == "os: process already finished" {
			_ = d.RemovePID()
			return fmt.Errorf("kioskidle daemon already terminated")
		}
		return fmt.Errorf("signal process %d: %w", pid, err)
	}

	return d.RemovePID()
}
