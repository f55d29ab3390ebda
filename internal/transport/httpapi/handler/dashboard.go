package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kislikjeka/walletsync/internal/platform/account"
	"github.com/kislikjeka/walletsync/internal/platform/dashboard"
	"github.com/kislikjeka/walletsync/pkg/logger"
)

// DashboardSource hands out the dashboard of an account
type DashboardSource interface {
	Get(address string) (*dashboard.Dashboard, error)
}

// DashboardHandler serves the balances and payment history of the caller
type DashboardHandler struct {
	dashboards DashboardSource
	logger     *logger.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboards DashboardSource, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboards: dashboards,
		logger:     log.WithComponent("http.dashboard"),
	}
}

// DashboardResponse is the combined view of assets and payments
type DashboardResponse struct {
	Account   string                        `json:"account"`
	Refreshed bool                          `json:"refreshed"`
	Assets    ResourceView[AssetResponse]   `json:"assets"`
	Payments  ResourceView[PaymentResponse] `json:"payments"`
}

// GetDashboard handles GET /dashboard. It runs a throttled FetchAll, so
// repeated polls are served from cache.
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	d, ok := resolveDashboard(w, r, h.dashboards, h.logger)
	if !ok {
		return
	}

	refreshed := d.FetchAll(r.Context())
	respondJSON(w, dashboardResponse(d, refreshed), http.StatusOK)
}

// Refresh handles POST /dashboard/refresh. With force=true cached data and the
// throttle are bypassed.
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	d, ok := resolveDashboard(w, r, h.dashboards, h.logger)
	if !ok {
		return
	}

	refreshed := true
	if r.URL.Query().Get("force") == "true" {
		d.ForceRefreshAll(r.Context())
	} else {
		refreshed = d.FetchAll(r.Context())
	}

	status := http.StatusOK
	if !refreshed {
		status = http.StatusAccepted
	}
	respondJSON(w, dashboardResponse(d, refreshed), status)
}

// ChangeEvent is the data of one server-sent state change
type ChangeEvent struct {
	Resource string `json:"resource"`
	Phase    string `json:"phase"`
}

const eventBuffer = 32

// Events handles GET /dashboard/events. It streams every state change of the
// caller's dashboard as a server-sent event named after the resource, until
// the client goes away. Events carry no payload; clients re-read the
// resource they care about.
func (h *DashboardHandler) Events(w http.ResponseWriter, r *http.Request) {
	d, ok := resolveDashboard(w, r, h.dashboards, h.logger)
	if !ok {
		return
	}

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not lift write deadline", "error", err)
	}

	changes, unsubscribe := d.Subscribe(eventBuffer)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	fmt.Fprint(w, ": subscribed\n\n")
	if err := rc.Flush(); err != nil {
		h.logger.Warn("event stream not supported", "error", err)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			data, err := json.Marshal(ChangeEvent{Resource: c.Resource, Phase: c.Phase.String()})
			if err != nil {
				h.logger.Error("failed to encode change event", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", c.Resource, data)
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

// resolveDashboard looks up the dashboard of the authenticated account
func resolveDashboard(w http.ResponseWriter, r *http.Request, src DashboardSource, log *logger.Logger) (*dashboard.Dashboard, bool) {
	address, ok := accountFrom(w, r)
	if !ok {
		return nil, false
	}

	d, err := src.Get(address)
	if err != nil {
		respondDomainError(w, r, log, err)
		return nil, false
	}
	return d, true
}

func dashboardResponse(d *dashboard.Dashboard, refreshed bool) DashboardResponse {
	return DashboardResponse{
		Account:   d.Address(),
		Refreshed: refreshed,
		Assets:    viewOf[account.AssetBalance](d.Assets(), assetResponse),
		Payments:  viewOf[account.PaymentRecord](d.Payments(), paymentResponse),
	}
}
