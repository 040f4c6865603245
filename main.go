package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kioskidle/internal/config"
	"kioskidle/internal/daemon"
	"kioskidle/internal/idle"
	"kioskidle/internal/journal"
	"kioskidle/internal/overlay"
	"kioskidle/internal/power"
	"kioskidle/internal/reporter"
	"kioskidle/internal/supervisor"
	"kioskidle/internal/web"
	"kioskidle/internal/x11"
	"kioskidle/version"
)

func main() {
	command := "run"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "run":
		runForeground()
	case "start":
		startDaemon(false)
	case "serve":
		startDaemon(true)
	case "stop":
		stopDaemon()
	case "status":
		showStatus()
	case "report":
		generateReport()
	case "clear":
		clearJournal()
	case "version":
		showVersion()
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`kioskidle - Screen-idle supervisor for kiosk displays

Blanks the display after a period of inactivity and swallows the first
touch/click/key that wakes it, so the wake-up tap never reaches the
kiosk application.

Usage:
  kioskidle <command> [options]

Commands:
  run                Run the supervisor in the foreground (default)
  start              Start the supervisor as a background daemon
  serve              Start the daemon with the REST control server
  stop               Stop the background daemon
  status             Show daemon status and last cycle
  report [period]    Cycle report (period: day, week, month; --json)
  clear              Clear the cycle journal
  version            Show version information
  help               Show this help message

Environment Variables:
  SCREEN_TIMEOUT           Idle timeout in seconds (<= 0 disables)
  SWALLOW_FIRST_TOUCH      Enable the swallow daemon (default true)
  KIOSK_IDLE_DEBUG         Per-event debug logging
  KIOSKIDLE_SETTLE_MS      Post-wake settle delay in milliseconds
  KIOSKIDLE_POWER_DRIVER   Display power driver: xset or dpms
  KIOSKIDLE_JOURNAL        Record blank/wake cycles to sqlite
  KIOSKIDLE_DB_PATH        Journal database path
  KIOSKIDLE_PID_FILE       PID file path
  KIOSKIDLE_REST_PORT      REST control server port (serve mode)
  KIOSKIDLE_REST_TOKEN     Bearer token for the REST server

Version: %s
`, version.Version)
}

func runForeground() {
	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if !cfg.Enabled() {
		logDisabled(cfg)
		return
	}

	runSupervisor(cfg, false)
}

func startDaemon(withWeb bool) {
	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if !cfg.Enabled() {
		logDisabled(cfg)
		return
	}

	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		log.Fatalf("Failed to check daemon status: %v", err)
	}
	if running {
		log.Fatalf("Daemon is already running (PID: %d)", pid)
	}

	if os.Getenv("KIOSKIDLE_DAEMON_CHILD") != "1" {
		daemonize(withWeb)
		return
	}

	logPath := fmt.Sprintf("/tmp/kioskidle-%d.log", os.Getuid())
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err == nil {
		log.SetOutput(logFile)
		defer logFile.Close()
	}

	if err := dm.WritePID(); err != nil {
		log.Fatalf("Failed to write PID file: %v", err)
	}
	defer dm.RemovePID()

	runSupervisor(cfg, withWeb)
}

func logDisabled(cfg *config.Config) {
	if cfg.Screen.Timeout <= 0 {
		log.Println("SCREEN_TIMEOUT <= 0; exiting (nothing to manage)")
		return
	}
	log.Println("SWALLOW_FIRST_TOUCH disabled; exiting")
}

// runSupervisor wires the display connection, idle clock, overlay,
// power driver and journal into the supervisor loop and runs it until
// a termination signal arrives.
func runSupervisor(cfg *config.Config, withWeb bool) {
	disp, err := x11.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to X server: %v", err)
	}
	defer disp.Close()

	log.Println("Connected to X server")

	clock := newClock(disp)
	ov := overlay.New(disp.Conn, disp.Screen)
	pw := newPowerController(cfg, disp)

	var recorder supervisor.Recorder = supervisor.NopRecorder{}
	var repo *journal.Repository
	if cfg.Journal.Enabled {
		db, err := journal.Connect(cfg.Journal.Path)
		if err != nil {
			log.Printf("Cycle journal unavailable, continuing without it: %v", err)
		} else if err := db.Initialize(); err != nil {
			log.Printf("Cycle journal unavailable, continuing without it: %v", err)
			db.Close()
		} else {
			defer db.Close()
			repo = journal.NewRepository(db)
			recorder = journal.NewCycleRecorder(repo)
		}
	}

	loop := supervisor.New(cfg, clock, ov, pw, disp.Events(), recorder)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	var webServer *web.Server
	if withWeb {
		handler := web.NewHandler(cfg, repo, pw, loop)
		webServer = web.NewServer(cfg, handler)
		go func() {
			if err := webServer.Start(); err != nil && err != http.ErrServerClosed {
				log.Printf("REST server error: %v", err)
			}
		}()
	}

	log.Printf("Configuration:\n%s", cfg.String())

	err = loop.Run(ctx)

	if webServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := webServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down REST server: %v", err)
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("CRITICAL: supervisor terminated: %v", err)
		os.Exit(1)
	}

	log.Println("Exiting on shutdown signal")
}

// newClock selects the idle source once at startup. Absence of the
// screensaver extension is a capability gap, not an error: the clock
// starts directly on the activity fallback, fed by core events
// observed on the root window and on the overlay.
func newClock(disp *x11.Display) *idle.Clock {
	src, err := idle.NewScreenSaverSource(disp.Conn, disp.Root)
	var clock *idle.Clock
	if err != nil {
		log.Printf("XScreenSaver extension NOT available; falling back to event-based idle timing: %v", err)
		clock = idle.NewClock(nil)
	} else {
		log.Println("XScreenSaver extension detected for idle timing")
		clock = idle.NewClock(src)
	}

	if err := disp.SelectRootEvents(); err != nil {
		log.Printf("Failed to select core events on root window: %v", err)
	}

	return clock
}

func newPowerController(cfg *config.Config, disp *x11.Display) power.Controller {
	if cfg.Power.Driver == "dpms" {
		pw, err := power.NewDPMSController(disp.Conn)
		if err != nil {
			log.Printf("DPMS driver unavailable, using xset: %v", err)
			return power.NewXsetController()
		}
		log.Println("Using in-process DPMS power driver")
		return pw
	}
	return power.NewXsetController()
}

func stopDaemon() {
	cfg := config.New()
	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		log.Fatalf("Failed to check daemon status: %v", err)
	}
	if !running {
		fmt.Println("Daemon is not running")
		return
	}
	fmt.Printf("Stopping daemon (PID: %d)...\n", pid)
	if err := dm.Stop(); err != nil {
		log.Fatalf("Failed to stop daemon: %v", err)
	}
	fmt.Println("Daemon stopped successfully")
}

func showStatus() {
	cfg := config.New()
	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		log.Fatalf("Failed to check daemon status: %v", err)
	}
	if !running {
		fmt.Println("Status: Not running")
	} else {
		fmt.Printf("Status: Running (PID: %d)\n", pid)
		fmt.Printf("Timeout: %v\n", cfg.Screen.Timeout)
		fmt.Printf("Power Driver: %s\n", cfg.Power.Driver)
	}

	if !cfg.Journal.Enabled {
		return
	}

	db, err := journal.Connect(cfg.Journal.Path)
	if err != nil {
		fmt.Printf("\nCould not open cycle journal: %v\n", err)
		return
	}
	defer db.Close()

	repo := journal.NewRepository(db)
	latest, err := repo.GetLatest()
	if err == nil && latest != nil {
		fmt.Printf("\nLast Cycle:\n")
		fmt.Printf("  Kind: %s\n", latest.Kind)
		fmt.Printf("  Time: %s\n", latest.Timestamp.Format(time.RFC3339))
		if latest.Trigger != "" {
			fmt.Printf("  Trigger: %s\n", latest.Trigger)
		}
	}
}

func generateReport() {
	periodType := "day"
	if len(os.Args) > 2 {
		periodType = os.Args[2]
	}
	jsonOutput := len(os.Args) > 3 && os.Args[3] == "--json"

	cfg := config.New()
	db, err := journal.Connect(cfg.Journal.Path)
	if err != nil {
		log.Fatalf("Failed to open cycle journal: %v", err)
	}
	defer db.Close()

	repo := journal.NewRepository(db)
	rep := reporter.New(repo)

	report, err := rep.GenerateReport(periodType, true)
	if err != nil {
		log.Fatalf("Failed to generate report: %v", err)
	}
	if jsonOutput {
		jsonStr, err := rep.FormatReportJSON(report)
		if err != nil {
			log.Fatalf("Failed to format JSON: %v", err)
		}
		fmt.Println(jsonStr)
	} else {
		fmt.Println(rep.FormatReportText(report))
	}
}

func clearJournal() {
	cfg := config.New()
	fmt.Print("This will delete all recorded cycles. Are you sure? (yes/no): ")
	var response string
	fmt.Scanln(&response)
	if response != "yes" && response != "y" {
		fmt.Println("Operation cancelled")
		return
	}
	db, err := journal.Connect(cfg.Journal.Path)
	if err != nil {
		log.Fatalf("Failed to open cycle journal: %v", err)
	}
	defer db.Close()
	repo := journal.NewRepository(db)
	if err := repo.Clear(); err != nil {
		log.Fatalf("Failed to clear journal: %v", err)
	}
	fmt.Println("Journal cleared successfully")
}

func daemonize(withWeb bool) {
	env := os.Environ()
	env = append(env, "KIOSKIDLE_DAEMON_CHILD=1")
	args := os.Args
	procAttr := &os.ProcAttr{
		Env:   env,
		Files: []*os.File{nil, nil, nil},
		Sys:   &syscall.SysProcAttr{Setsid: true},
	}
	process, err := os.StartProcess(args[0], args, procAttr)
	if err != nil {
		log.Fatalf("Failed to start daemon process: %v", err)
	}
	fmt.Printf("Daemon started successfully (PID: %d)\n", process.Pid)
	if withWeb {
		cfg := config.New()
		fmt.Printf("REST control server at: http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	}
	fmt.Printf("Logs: /tmp/kioskidle-%d.log\n", os.Getuid())
}

func showVersion() {
	fmt.Printf("version: %s\n", version.Version)
	fmt.Printf("built  : %s\n", version.Date)
}
