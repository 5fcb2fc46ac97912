package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewtrack/billing-engine/api"
	"github.com/crewtrack/billing-engine/backup"
	"github.com/crewtrack/billing-engine/domain"
	"github.com/crewtrack/billing-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func apiSnapshot() domain.Snapshot {
	return domain.Snapshot{
		Employees: []domain.Employee{
			{ID: "emp-1", Name: "Ana", Title: "Operator", Category: domain.CategoryDSP,
				BillableWage: dec("50"), CostWage: dec("30")},
		},
		Jobs: []domain.Job{
			{ID: "job-1", JobNumber: "J-100", Name: "Site Alpha", IsBillable: true},
		},
		HourTypes: []domain.HourType{
			{ID: "ht-reg", Name: "Regular", Multiplier: dec("1")},
		},
		Provinces: []domain.Province{
			{ID: "prov-ab", Name: "Alberta", Code: "AB"},
		},
		TimeEntries: []domain.TimeEntry{
			{ID: "te-1", EmployeeID: "emp-1", JobID: "job-1", HourTypeID: "ht-reg",
				ProvinceID: "prov-ab", Date: "2025-03-03", Hours: dec("8"),
				CostWageUsed: dec("30"), BillableWageUsed: dec("50")},
		},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	st := memory.NewWithSnapshot(apiSnapshot())
	mgr := backup.NewManager(st, st, zerolog.Nop(), backup.WithResetSecret("s3cret"))
	handler := api.NewHandler(st, mgr, zerolog.Nop())

	srv := httptest.NewServer(api.NewRouter(handler, []string{"*"}))
	t.Cleanup(srv.Close)
	return srv, st
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// =============================================================================
// REPORT ENDPOINTS
// =============================================================================

func TestGetReportSummary(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/report/summary", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	report := decode[api.ReportDTO](t, resp)
	assert.True(t, report.ReconciliationOK)
	assert.Equal(t, "400.00", report.Totals.BillableAmount)
	assert.Equal(t, "20.00", report.Totals.GST)
	assert.Equal(t, 1, report.Totals.EntryCount)
	require.Len(t, report.Monthly, 1)
	assert.Equal(t, "2025-03", report.Monthly[0].Key)
}

func TestGetReportSummary_BadDateRange(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/report/summary?from=03/01/2025", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetReportCSV_DownloadHeaders(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/report/csv", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")

	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "EXECUTIVE SUMMARY")
}

// =============================================================================
// BACKUP ENDPOINTS
// =============================================================================

func TestBackupLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	// Create
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/backups", api.CreateBackupRequest{Name: "nightly"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[api.BackupMetaDTO](t, resp)
	assert.Equal(t, "nightly", created.Name)
	assert.Equal(t, 1, created.RecordCounts.TimeEntries)

	// List
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/backups", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]api.BackupMetaDTO](t, resp)
	require.Len(t, list, 1)

	// Export
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/backups/"+created.ID+"/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "nightly-")
	var exported bytes.Buffer
	_, err := exported.ReadFrom(resp.Body)
	require.NoError(t, err)

	// Delete, then re-import the exported file
	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/backups/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/backups/import", &exported)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	imported := decode[api.BackupMetaDTO](t, resp)
	assert.Equal(t, created.ID, imported.ID)
}

func TestImportBackup_RejectsInvalidFile(t *testing.T) {
	srv, _ := newTestServer(t)

	body := strings.NewReader(`{"name":"no data or id","timestamp":"2025-06-01T00:00:00Z"}`)
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/backups/import", body)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	listResp := doJSON(t, http.MethodGet, srv.URL+"/api/backups", nil)
	assert.Empty(t, decode[[]api.BackupMetaDTO](t, listResp), "rejected import writes nothing")
}

func TestDeleteBackup_Unknown(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodDelete, srv.URL+"/api/backups/bk-ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// RESTORE PROTOCOL
// =============================================================================

func createBackupAndDriftLive(t *testing.T, srv *httptest.Server, st *memory.Store) api.BackupMetaDTO {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/backups", api.CreateBackupRequest{Name: "golden"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[api.BackupMetaDTO](t, resp)

	drifted := apiSnapshot()
	drifted.Jobs = append(drifted.Jobs, domain.Job{ID: "job-2", Name: "Site Beta", IsBillable: true})
	require.NoError(t, st.ReplaceAll(context.Background(), drifted))
	return created
}

func TestRestoreProtocol_FullWalkthrough(t *testing.T) {
	srv, st := newTestServer(t)
	created := createBackupAndDriftLive(t, srv, st)

	// Open a session.
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/backups/"+created.ID+"/restore", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	session := decode[api.RestoreSessionDTO](t, resp)
	assert.Equal(t, "located", session.State)

	base := srv.URL + "/api/restore/" + session.SessionID

	// Three sequential acknowledgments.
	for step := 0; step < 3; step++ {
		resp = doJSON(t, http.MethodPost, base+"/ack", api.AckRequest{Step: step})
		require.Equal(t, http.StatusOK, resp.StatusCode, "ack %d", step)
	}

	// Typed token arms the session.
	resp = doJSON(t, http.MethodPost, base+"/confirm", api.ConfirmRequest{Token: "RESTORE"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "armed", decode[api.RestoreSessionDTO](t, resp).State)

	// Commit swaps the live data.
	resp = doJSON(t, http.MethodPost, base+"/commit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", decode[api.RestoreSessionDTO](t, resp).State)

	snap, err := st.Get(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Jobs, 1, "drifted job gone")

	// The session is gone once terminal.
	resp = doJSON(t, http.MethodPost, base+"/commit", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRestoreProtocol_GateViolationsRejected(t *testing.T) {
	srv, st := newTestServer(t)
	created := createBackupAndDriftLive(t, srv, st)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/backups/"+created.ID+"/restore", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	session := decode[api.RestoreSessionDTO](t, resp)
	base := srv.URL + "/api/restore/" + session.SessionID

	// Out-of-order acknowledgment.
	resp = doJSON(t, http.MethodPost, base+"/ack", api.AckRequest{Step: 2})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Commit before anything.
	resp = doJSON(t, http.MethodPost, base+"/commit", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Wrong token after full acks.
	for step := 0; step < 3; step++ {
		resp = doJSON(t, http.MethodPost, base+"/ack", api.AckRequest{Step: step})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp = doJSON(t, http.MethodPost, base+"/confirm", api.ConfirmRequest{Token: "restore"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	snap, err := st.Get(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Jobs, 2, "live data untouched throughout")
}

func TestRestoreProtocol_Abort(t *testing.T) {
	srv, st := newTestServer(t)
	created := createBackupAndDriftLive(t, srv, st)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/backups/"+created.ID+"/restore", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	session := decode[api.RestoreSessionDTO](t, resp)
	base := srv.URL + "/api/restore/" + session.SessionID

	resp = doJSON(t, http.MethodPost, base+"/ack", api.AckRequest{Step: 0})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, base+"/abort", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "aborted", decode[api.RestoreSessionDTO](t, resp).State)

	snap, err := st.Get(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Jobs, 2, "abort writes nothing")
}

func TestBeginRestore_UnknownBackup(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/backups/bk-ghost/restore", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// RESET
// =============================================================================

func TestReset_PasswordGate(t *testing.T) {
	srv, st := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/reset", api.ResetRequest{Password: "wrong"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/reset", api.ResetRequest{Password: "s3cret"})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	snap, err := st.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, snap.TotalRecords())
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
