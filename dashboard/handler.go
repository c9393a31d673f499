// Package dashboard serves the Basic-auth protected operator surface: the
// stats view, ledger resets, and forced stats flushes.
package dashboard

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	gocmd "github.com/goliatone/go-command"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/maskia-arch/esimconnect/command"
	"github.com/maskia-arch/esimconnect/core"
	"github.com/maskia-arch/esimconnect/query"
)

//go:embed dashboard.html
var dashboardHTML string

var dashboardTemplate = template.Must(template.New("dashboard").Parse(dashboardHTML))

type dashboardView struct {
	TotalOrders int64
	TotalEsims  int64
	Errors      int64
	LastOrder   string
	Uptime      string
}

// Handler owns the /admin routes. Every route runs behind BasicAuth.
type Handler struct {
	Auth      BasicAuth
	Stats     *query.StatsSnapshotQuery
	Reset     *command.ResetFulfillmentCommand
	Flush     *command.FlushStatsCommand
	StartedAt time.Time
	Logger    core.Logger
	Now       func() time.Time
}

func NewHandler(
	auth BasicAuth,
	statsQuery *query.StatsSnapshotQuery,
	resetCmd *command.ResetFulfillmentCommand,
	flushCmd *command.FlushStatsCommand,
) (*Handler, error) {
	if statsQuery == nil {
		return nil, fmt.Errorf("dashboard: stats query is required")
	}
	if resetCmd == nil {
		return nil, fmt.Errorf("dashboard: reset command is required")
	}
	if flushCmd == nil {
		return nil, fmt.Errorf("dashboard: flush command is required")
	}
	return &Handler{
		Auth:      auth,
		Stats:     statsQuery,
		Reset:     resetCmd,
		Flush:     flushCmd,
		StartedAt: time.Now().UTC(),
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

// Register mounts the admin routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("/admin", h.Auth.Wrap(http.HandlerFunc(h.serveDashboard)))
	mux.Handle("/admin/fulfillments/reset", h.Auth.Wrap(http.HandlerFunc(h.serveReset)))
	mux.Handle("/admin/stats/flush", h.Auth.Wrap(http.HandlerFunc(h.serveFlush)))
}

func (h *Handler) serveDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot, err := h.Stats.Query(r.Context(), query.StatsSnapshotMessage{})
	if err != nil {
		h.logger().Error("loading stats snapshot", "error", err)
		http.Error(w, "Dashboard Error", http.StatusInternalServerError)
		return
	}

	view := dashboardView{
		TotalOrders: snapshot.TotalOrders,
		TotalEsims:  snapshot.TotalEsims,
		Errors:      snapshot.Errors,
		LastOrder:   "-",
		Uptime:      formatUptime(h.now().Sub(h.StartedAt)),
	}
	if snapshot.LastOrderAt != nil {
		view.LastOrder = snapshot.LastOrderAt.UTC().Format("2006-01-02 15:04")
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTemplate.Execute(w, view); err != nil {
		h.logger().Error("rendering dashboard", "error", err)
	}
}

func (h *Handler) serveReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	eventKey := strings.TrimSpace(r.FormValue("event_key"))
	err := h.Reset.Execute(r.Context(), command.ResetFulfillmentMessage{EventKey: eventKey})
	if err != nil {
		status := http.StatusInternalServerError
		mapped := core.MapError(err)
		if mapped != nil && mapped.Code >= http.StatusBadRequest && mapped.Code < http.StatusInternalServerError {
			status = mapped.Code
		}
		h.logger().Warn("fulfillment reset refused", "event_key", eventKey, "error", err)
		writeJSON(w, status, map[string]any{"error": err.Error()})
		return
	}

	h.logger().Info("fulfillment reset", "event_key", eventKey)
	writeJSON(w, http.StatusOK, map[string]any{"reset": eventKey})
}

func (h *Handler) serveFlush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	collector := gocmd.NewResult[command.FlushResult]()
	ctx := gocmd.ContextWithResult(r.Context(), collector)
	if err := h.Flush.Execute(ctx, command.FlushStatsMessage{}); err != nil {
		h.logger().Error("forced stats flush failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}

	written := 0
	if result, ok := collector.Load(); ok {
		written = result.Written
	}
	writeJSON(w, http.StatusOK, map[string]any{"written": written})
}

func (h *Handler) logger() core.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return glog.Ensure(nil)
}

func (h *Handler) now() time.Time {
	if h != nil && h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

func formatUptime(elapsed time.Duration) string {
	if elapsed < 0 {
		elapsed = 0
	}
	elapsed = elapsed.Round(time.Second)
	hours := int(elapsed.Hours())
	minutes := int(elapsed.Minutes()) % 60
	seconds := int(elapsed.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
