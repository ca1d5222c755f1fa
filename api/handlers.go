/*
handlers.go - HTTP API handlers for the billing engine

PURPOSE:
  Exposes the monthly fee computation via REST. Handles HTTP request and
  response shaping, JSON serialization, and delegates to the engine.

ENDPOINTS:
  Billing:
    GET  /api/billing/{year}/{month}                  Institution-wide result
    GET  /api/billing/{year}/{month}/households/{id}  One household
    GET  /api/billing/{year}/{month}/calendar         Resolved business days

  Roster (read-only; the admin CRUD owns writes upstream):
    GET  /api/households
    GET  /api/households/{id}
    GET  /api/pricing

  Operations:
    GET  /api/runs                                    Monthly close runs
    GET  /api/scenarios                               List demo scenarios
    POST /api/scenarios/load                          Load a demo scenario

ERROR HANDLING:
  Errors are returned as JSON with appropriate status:
  - 400: invalid year/month
  - 404: unknown household
  - 422: blocking configuration error (no active pricing config); the UI
         must show this as a failure, never as zero totals
  - 500: feed failures and everything else

SEE ALSO:
  - dto.go: response shapes
  - scenarios.go: demo datasets
  - server.go: router and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/comedor/billing-engine/billing"
	"github.com/comedor/billing-engine/store/sqlite"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Engine *billing.Engine
	Log    *zap.Logger

	currentScenario string
}

// NewHandler creates a handler over the given store.
func NewHandler(store *sqlite.Store, log *zap.Logger) *Handler {
	return &Handler{
		Store:  store,
		Engine: billing.NewEngine(store),
		Log:    log,
	}
}

// =============================================================================
// BILLING HANDLERS
// =============================================================================

// GetMonthlyBilling computes the institution-wide result for a month.
func (h *Handler) GetMonthlyBilling(w http.ResponseWriter, r *http.Request) {
	m, ok := h.monthParam(w, r)
	if !ok {
		return
	}

	result, err := h.Engine.ComputeMonth(r.Context(), m)
	if err != nil {
		h.writeBillingError(w, m, err)
		return
	}
	writeJSON(w, http.StatusOK, toInstitutionResultDTO(result))
}

// GetHouseholdBilling computes one household's result for a month.
func (h *Handler) GetHouseholdBilling(w http.ResponseWriter, r *http.Request) {
	m, ok := h.monthParam(w, r)
	if !ok {
		return
	}
	id := billing.HouseholdID(chi.URLParam(r, "id"))

	result, err := h.Engine.ComputeHousehold(r.Context(), m, id)
	if err != nil {
		h.writeBillingError(w, m, err)
		return
	}
	writeJSON(w, http.StatusOK, toHouseholdResultDTO(*result))
}

// GetCalendar returns the resolved business days for a month.
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.yearMonthParams(w, r)
	if !ok {
		return
	}

	resolver := billing.CalendarResolver{Feed: h.Store}
	days, err := resolver.BusinessDays(r.Context(), year, month)
	if err != nil {
		h.writeBillingError(w, billing.NewMonth(year, time.Month(month)), err)
		return
	}
	writeJSON(w, http.StatusOK, CalendarDTO{
		Month:        billing.NewMonth(year, time.Month(month)).String(),
		BusinessDays: isoDates(days),
		Count:        len(days),
	})
}

// =============================================================================
// ROSTER HANDLERS (read-only)
// =============================================================================

// ListHouseholds returns the roster of families.
func (h *Handler) ListHouseholds(w http.ResponseWriter, r *http.Request) {
	households, err := h.Store.Households(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list households", err)
		return
	}
	dtos := make([]HouseholdDTO, len(households))
	for i, hh := range households {
		dtos[i] = toHouseholdDTO(hh)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetHousehold returns one family.
func (h *Handler) GetHousehold(w http.ResponseWriter, r *http.Request) {
	id := billing.HouseholdID(chi.URLParam(r, "id"))
	household, err := h.Store.HouseholdByID(r.Context(), id)
	if err != nil {
		if billing.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "household not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load household", err)
		return
	}
	if household == nil {
		writeError(w, http.StatusNotFound, "household not found", billing.ErrHouseholdNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toHouseholdDTO(*household))
}

// GetPricing returns the active pricing configuration.
func (h *Handler) GetPricing(w http.ResponseWriter, r *http.Request) {
	pc, err := h.Store.ActivePricing(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load pricing", err)
		return
	}
	if pc == nil || !pc.Applicable() {
		writeError(w, http.StatusUnprocessableEntity, "no active pricing configuration", billing.ErrNoPricingConfig)
		return
	}

	base, _ := pc.BasePrice.Float64()
	staff, _ := pc.StaffPrice.Float64()
	staffChild, _ := pc.StaffChildPrice.Float64()
	sibling, _ := pc.SiblingDiscountPct.Float64()
	attDisc, _ := pc.AttendanceDiscountPct.Float64()
	attThresh, _ := pc.AttendanceThresholdPct.Float64()

	writeJSON(w, http.StatusOK, PricingConfigDTO{
		ID:                     pc.ID,
		DaysMin:                pc.DaysMin,
		DaysMax:                pc.DaysMax,
		BasePrice:              base,
		StaffPrice:             staff,
		StaffChildPrice:        staffChild,
		SiblingDiscountPct:     sibling,
		AttendanceDiscountPct:  attDisc,
		AttendanceThresholdPct: attThresh,
	})
}

// =============================================================================
// OPERATIONS HANDLERS
// =============================================================================

// ListRuns returns the recorded monthly close runs.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListBillingRuns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list runs", err)
		return
	}
	dtos := make([]BillingRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toBillingRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListScenarios returns the loadable demo datasets.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ScenarioList())
}

// LoadScenario wipes the store and seeds the selected demo dataset.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := LoadScenarioData(r.Context(), h.Store, req.ScenarioID); err != nil {
		writeError(w, http.StatusBadRequest, "failed to load scenario", err)
		return
	}
	h.currentScenario = req.ScenarioID
	h.Log.Info("scenario loaded", zap.String("scenario", req.ScenarioID))
	writeJSON(w, http.StatusOK, map[string]string{"loaded": req.ScenarioID})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) yearMonthParams(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year", err)
		return 0, 0, false
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid month", err)
		return 0, 0, false
	}
	return year, month, true
}

func (h *Handler) monthParam(w http.ResponseWriter, r *http.Request) (billing.Month, bool) {
	year, month, ok := h.yearMonthParams(w, r)
	if !ok {
		return billing.Month{}, false
	}
	m := billing.NewMonth(year, time.Month(month))
	if !m.Valid() {
		writeError(w, http.StatusBadRequest, "invalid month", billing.ErrInvalidMonth)
		return billing.Month{}, false
	}
	return m, true
}

// writeBillingError maps engine errors to statuses. A configuration error is
// 422 so the client renders a blocking failure instead of zero totals.
func (h *Handler) writeBillingError(w http.ResponseWriter, m billing.Month, err error) {
	h.Log.Warn("billing computation failed",
		zap.String("month", m.String()), zap.Error(err))

	switch {
	case billing.IsConfigError(err):
		writeError(w, http.StatusUnprocessableEntity, "no active pricing configuration", err)
	case billing.IsNotFound(err):
		writeError(w, http.StatusNotFound, "household not found", err)
	case billing.IsClientError(err):
		writeError(w, http.StatusBadRequest, err.Error(), err)
	default:
		writeError(w, http.StatusInternalServerError, "billing computation failed", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Code = err.Error()
	}
	writeJSON(w, status, resp)
}
