package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/comedor/billing-engine/billing"
	"github.com/comedor/billing-engine/store/sqlite"
)

func newTestServer(t *testing.T) (*httptest.Server, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "billing.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	srv := httptest.NewServer(NewRouter(NewHandler(store, zap.NewNop())))
	t.Cleanup(srv.Close)
	return srv, store
}

func getJSON(t *testing.T, url string, wantStatus int, out any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, wantStatus, resp.StatusCode)
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
}

func loadScenario(t *testing.T, srv *httptest.Server, id string) {
	t.Helper()
	body, _ := json.Marshal(LoadScenarioRequest{ScenarioID: id})
	resp, err := http.Post(srv.URL+"/api/scenarios/load", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetMonthlyBilling_StandardFamily(t *testing.T) {
	// GIVEN: The standard-family demo dataset
	// WHEN: GET /api/billing/2025/12
	// THEN: The legacy day-count keys carry the expected breakdown

	srv, _ := newTestServer(t)
	loadScenario(t, srv, "standard-family")

	var result InstitutionResultDTO
	getJSON(t, srv.URL+"/api/billing/2025/12", http.StatusOK, &result)

	assert.Equal(t, "2025-12", result.Month)
	assert.Len(t, result.BusinessDays, 23)
	require.Len(t, result.Households, 1)
	require.Len(t, result.Households[0].Persons, 1)

	lucia := result.Households[0].Persons[0]
	assert.Equal(t, "child-lucia", lucia.PersonID)
	assert.Equal(t, 21, lucia.DiasInscripcion)
	assert.Equal(t, 1, lucia.DiasBaja)
	assert.Equal(t, 1, lucia.DiasPuntuales)
	assert.Equal(t, 0, lucia.DiasFestivos)
	assert.Equal(t, 0, lucia.DiasInvitacion)
	assert.Equal(t, 22, lucia.TotalDias)
	assert.InDelta(t, 132.00, lucia.Subtotal, 0.001)
	assert.True(t, lucia.Attendance.Eligible)
	assert.InDelta(t, 13.20, lucia.Attendance.Amount, 0.001)
	assert.InDelta(t, 118.80, lucia.TotalImporte, 0.001)

	assert.InDelta(t, 118.80, result.TotalImporte, 0.001)
	assert.Equal(t, 22, result.TotalDias)
}

func TestGetHouseholdBilling(t *testing.T) {
	srv, _ := newTestServer(t)
	loadScenario(t, srv, "standard-family")

	var result HouseholdResultDTO
	getJSON(t, srv.URL+"/api/billing/2025/12/households/fam-garcia", http.StatusOK, &result)

	assert.Equal(t, "fam-garcia", result.HouseholdID)
	assert.InDelta(t, 118.80, result.TotalImporte, 0.001)

	var errResp ErrorResponse
	getJSON(t, srv.URL+"/api/billing/2025/12/households/fam-nadie", http.StatusNotFound, &errResp)
	assert.Equal(t, "household not found", errResp.Error)
}

func TestGetMonthlyBilling_ExemptFamily(t *testing.T) {
	// GIVEN: The exemption demo dataset
	// WHEN: Computing December
	// THEN: The child's total is waived to zero with the audit amount kept

	srv, _ := newTestServer(t)
	loadScenario(t, srv, "exemption")

	var result InstitutionResultDTO
	getJSON(t, srv.URL+"/api/billing/2025/12", http.StatusOK, &result)

	require.Len(t, result.Households, 1)
	yasmin := result.Households[0].Persons[0]
	assert.True(t, yasmin.Exemption.Exempt)
	assert.Equal(t, "servicios sociales", yasmin.Exemption.Reason)
	assert.Greater(t, yasmin.Exemption.WaivedAmount, 0.0)
	assert.Zero(t, yasmin.TotalImporte)
}

func TestGetMonthlyBilling_NoPricingIs422(t *testing.T) {
	// GIVEN: An empty store with no pricing configuration
	// WHEN: GET /api/billing/2025/12
	// THEN: 422, so the client renders a blocking failure instead of zeros

	srv, _ := newTestServer(t)

	var errResp ErrorResponse
	getJSON(t, srv.URL+"/api/billing/2025/12", http.StatusUnprocessableEntity, &errResp)
	assert.Equal(t, "no active pricing configuration", errResp.Error)
}

func TestGetMonthlyBilling_BadMonth(t *testing.T) {
	srv, _ := newTestServer(t)
	loadScenario(t, srv, "standard-family")

	getJSON(t, srv.URL+"/api/billing/2025/13", http.StatusBadRequest, nil)
	getJSON(t, srv.URL+"/api/billing/2025/abc", http.StatusBadRequest, nil)
}

func TestGetCalendar(t *testing.T) {
	srv, _ := newTestServer(t)
	loadScenario(t, srv, "standard-family")

	var cal CalendarDTO
	getJSON(t, srv.URL+"/api/billing/2025/12/calendar", http.StatusOK, &cal)

	assert.Equal(t, "2025-12", cal.Month)
	assert.Equal(t, 23, cal.Count)
	require.Len(t, cal.BusinessDays, 23)
	assert.Equal(t, "2025-12-01", cal.BusinessDays[0])
	assert.Equal(t, "2025-12-31", cal.BusinessDays[22])
}

func TestRosterEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	loadScenario(t, srv, "staff-family")

	var households []HouseholdDTO
	getJSON(t, srv.URL+"/api/households", http.StatusOK, &households)
	require.Len(t, households, 1)
	assert.Equal(t, "fam-ruiz", households[0].ID)
	require.NotNil(t, households[0].Staff)
	assert.Equal(t, "staff", households[0].Staff.Kind)

	var household HouseholdDTO
	getJSON(t, srv.URL+"/api/households/fam-ruiz", http.StatusOK, &household)
	assert.Equal(t, "Familia Ruiz", household.Name)

	getJSON(t, srv.URL+"/api/households/fam-nadie", http.StatusNotFound, nil)

	var pricing PricingConfigDTO
	getJSON(t, srv.URL+"/api/pricing", http.StatusOK, &pricing)
	assert.InDelta(t, 6.00, pricing.BasePrice, 0.001)
	assert.InDelta(t, 80, pricing.AttendanceThresholdPct, 0.001)
}

func TestLoadScenario_Unknown(t *testing.T) {
	srv, _ := newTestServer(t)

	body, _ := json.Marshal(LoadScenarioRequest{ScenarioID: "no-such-scenario"})
	resp, err := http.Post(srv.URL+"/api/scenarios/load", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListScenarios(t *testing.T) {
	srv, _ := newTestServer(t)

	var scenarios []ScenarioDTO
	getJSON(t, srv.URL+"/api/scenarios", http.StatusOK, &scenarios)

	require.Len(t, scenarios, 4)
	ids := make([]string, len(scenarios))
	for i, s := range scenarios {
		ids[i] = s.ID
	}
	assert.Contains(t, ids, "standard-family")
	assert.Contains(t, ids, "three-siblings")
	assert.Contains(t, ids, "staff-family")
	assert.Contains(t, ids, "exemption")
}

func TestCloseMonth_RecordsRun(t *testing.T) {
	// GIVEN: A seeded roster
	// WHEN: Closing December 2025 twice
	// THEN: One completed run is recorded; the rerun is skipped

	srv, store := newTestServer(t)
	loadScenario(t, srv, "standard-family")

	h := NewHandler(store, zap.NewNop())
	cs := NewCloseScheduler(store, h.Engine, zap.NewNop(), DefaultCloseSchedule)

	ctx := context.Background()
	m := billing.NewMonth(2025, time.December)
	cs.CloseMonth(ctx, m)
	cs.CloseMonth(ctx, m)

	runs, err := store.ListBillingRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "completed", runs[0].Status)
	assert.Equal(t, "118.80", runs[0].Total)
	assert.Equal(t, 1, runs[0].Households)
	assert.Equal(t, 1, runs[0].Persons)

	var dtos []BillingRunDTO
	getJSON(t, srv.URL+"/api/runs", http.StatusOK, &dtos)
	require.Len(t, dtos, 1)
	assert.Equal(t, "2025-12", dtos[0].Period)
}
