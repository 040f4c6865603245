package web

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"kioskidle/internal/config"
	"kioskidle/internal/journal"
	"kioskidle/internal/power"
	"kioskidle/internal/reporter"
)

// StatusSource exposes the read-only daemon state the API reports.
type StatusSource interface {
	Blanked() bool
}

// Handler serves the control API. The journal repo may be nil when the
// journal is disabled; journal-backed endpoints then return 404.
type Handler struct {
	config   *config.Config
	repo     *journal.Repository
	reporter *reporter.Reporter
	power    power.Controller
	status   StatusSource
}

func NewHandler(cfg *config.Config, repo *journal.Repository, pw power.Controller, status StatusSource) *Handler {
	h := &Handler{
		config: cfg,
		repo:   repo,
		power:  pw,
		status: status,
	}
	if repo != nil {
		h.reporter = reporter.New(repo)
	}
	return h
}

func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", h.handleStatus)
	mux.HandleFunc("/api/cycles", h.handleCycles)
	mux.HandleFunc("/api/report", h.handleReport)

	mux.HandleFunc("/display_on", h.handleDisplayOn)
	mux.HandleFunc("/display_off", h.handleDisplayOff)

	mux.HandleFunc("/health", h.handleHealth)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := map[string]interface{}{
		"running":      true,
		"blanked":      h.status.Blanked(),
		"timeout":      h.config.Screen.Timeout.String(),
		"settle_delay": h.config.Screen.SettleDelay.String(),
		"power_driver": h.config.Power.Driver,
		"journal":      h.repo != nil,
	}

	if h.repo != nil {
		if latest, err := h.repo.GetLatest(); err == nil && latest != nil {
			status["latest_cycle"] = map[string]interface{}{
				"kind":      latest.Kind,
				"timestamp": latest.Timestamp,
				"trigger":   latest.Trigger,
			}
		}
	}

	respondJSON(w, status)
}

func (h *Handler) handleCycles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.repo == nil {
		respondError(w, http.StatusNotFound, "cycle journal is disabled")
		return
	}

	periodType := r.URL.Query().Get("period")
	if periodType == "" {
		periodType = "day"
	}

	period, err := reporter.GetPeriod(periodType)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := h.repo.GetEventsSince(period.Start)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to fetch cycles: %v", err))
		return
	}

	respondJSON(w, events)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.reporter == nil {
		respondError(w, http.StatusNotFound, "cycle journal is disabled")
		return
	}

	periodType := r.URL.Query().Get("period")
	if periodType == "" {
		periodType = "day"
	}

	report, err := h.reporter.GenerateReport(periodType, false)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to generate report: %v", err))
		return
	}

	respondJSON(w, report)
}

// handleDisplayOn forces the panel on. Manual power changes do not
// touch the blank state machine; the daemon does not re-arm on them.
func (h *Handler) handleDisplayOn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	log.Println("[display_on] Called")
	h.power.On()
	respondJSON(w, map[string]interface{}{"success": true})
}

func (h *Handler) handleDisplayOff(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	log.Println("[display_off] Called")
	h.power.Off()
	respondJSON(w, map[string]interface{}{"success": true})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func respondError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   msg,
	})
}
