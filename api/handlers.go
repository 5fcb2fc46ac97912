/*
handlers.go - HTTP API handlers for the billing engine

PURPOSE:
  Exposes reporting, backup lifecycle, and the guarded restore protocol over
  REST. Handles HTTP request/response and JSON serialization; all billing
  semantics live in derive/aggregate/backup.

ENDPOINTS:
  Reports:
    GET    /api/report/summary         Reconciled summary (JSON)
    GET    /api/report/csv             Sectioned CSV download
    GET    /api/report/pdf             Printable PDF download
    All three accept ?from=YYYY-MM-DD&to=YYYY-MM-DD&title=...

  Backups:
    GET    /api/backups                List retained backups (metadata only)
    POST   /api/backups                Create a backup of the live data
    DELETE /api/backups/{id}           Delete one backup
    GET    /api/backups/{id}/export    Download one backup as a JSON file
    POST   /api/backups/import         Import a previously exported file

  Restore protocol (session-scoped, see backup.RestoreSession):
    POST   /api/backups/{id}/restore   Open a restore session
    POST   /api/restore/{sid}/ack      Acknowledge gate {"step": n}
    POST   /api/restore/{sid}/confirm  Submit the typed token
    POST   /api/restore/{sid}/commit   Perform the swap
    POST   /api/restore/{sid}/abort    Walk away, live data untouched

  Admin:
    POST   /api/reset                  Factory reset (password-guarded)
    GET    /api/health                 Liveness probe

ERROR HANDLING:
  Domain errors map to HTTP status via their sentinel:
  - validation: 400
  - not found: 404
  - sequencing violations (restore gates out of order): 409
  - storage/integrity: 500

SEE ALSO:
  - dto.go: wire shapes
  - server.go: router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/crewtrack/billing-engine/backup"
	"github.com/crewtrack/billing-engine/domain"
	"github.com/crewtrack/billing-engine/export"
	"github.com/crewtrack/billing-engine/store"
)

// maxImportBytes caps an uploaded backup file.
const maxImportBytes = 64 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Repo    store.Repository
	Backups *backup.Manager

	log zerolog.Logger

	// Open restore sessions by session id. Sessions are in-memory only; a
	// server restart abandons them, which is the safe direction.
	mu       sync.Mutex
	sessions map[string]*backup.RestoreSession
}

// NewHandler creates a new handler over the given repository and backup
// manager.
func NewHandler(repo store.Repository, backups *backup.Manager, log zerolog.Logger) *Handler {
	return &Handler{
		Repo:     repo,
		Backups:  backups,
		log:      log,
		sessions: make(map[string]*backup.RestoreSession),
	}
}

// =============================================================================
// REPORT ENDPOINTS
// =============================================================================

func (h *Handler) buildReport(r *http.Request) (*export.Report, error) {
	q := r.URL.Query()
	opts := export.Options{
		Title: q.Get("title"),
		From:  domain.Date(q.Get("from")),
		To:    domain.Date(q.Get("to")),
	}
	if !opts.From.IsZero() && !opts.From.IsValid() {
		return nil, &domain.ValidationError{Field: "from", Reason: "want YYYY-MM-DD"}
	}
	if !opts.To.IsZero() && !opts.To.IsValid() {
		return nil, &domain.ValidationError{Field: "to", Reason: "want YYYY-MM-DD"}
	}

	snap, err := h.Repo.Get(r.Context())
	if err != nil {
		return nil, err
	}
	return export.Build(&snap, opts)
}

// GetReportSummary returns the reconciled summary as JSON.
// GET /api/report/summary
func (h *Handler) GetReportSummary(w http.ResponseWriter, r *http.Request) {
	report, err := h.buildReport(r)
	if err != nil && report == nil {
		h.writeDomainError(w, "Failed to build report", err)
		return
	}
	// A reconciliation mismatch still returns the report; the DTO carries
	// the discrepancy list and reconciliationOk=false.
	if err != nil {
		h.log.Error().Err(err).Msg("reconciliation mismatch in summary report")
	}
	writeJSON(w, http.StatusOK, toReportDTO(report))
}

// GetReportCSV streams the sectioned CSV document.
// GET /api/report/csv
func (h *Handler) GetReportCSV(w http.ResponseWriter, r *http.Request) {
	report, err := h.buildReport(r)
	if err != nil {
		h.writeDomainError(w, "Failed to build report", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="billing-report.csv"`)
	if err := export.WriteCSV(w, report); err != nil {
		h.log.Error().Err(err).Msg("csv export failed mid-stream")
	}
}

// GetReportPDF streams the printable summary.
// GET /api/report/pdf
func (h *Handler) GetReportPDF(w http.ResponseWriter, r *http.Request) {
	report, err := h.buildReport(r)
	if err != nil {
		h.writeDomainError(w, "Failed to build report", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="billing-report.pdf"`)
	if err := export.WritePDF(w, report); err != nil {
		h.log.Error().Err(err).Msg("pdf export failed mid-stream")
	}
}

// =============================================================================
// BACKUP ENDPOINTS
// =============================================================================

// ListBackups returns metadata for every retained backup, newest first.
// GET /api/backups
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	metas, err := h.Backups.List(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list backups", err)
		return
	}
	dtos := make([]BackupMetaDTO, len(metas))
	for i, m := range metas {
		dtos[i] = toBackupMetaDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateBackup snapshots the live data into the retained list.
// POST /api/backups
func (h *Handler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	var req CreateBackupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	b, err := h.Backups.Create(r.Context(), req.Name, req.Description)
	if err != nil {
		h.writeDomainError(w, "Failed to create backup", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBackupMetaDTO(b.Meta()))
}

// DeleteBackup removes one backup from the retained list.
// DELETE /api/backups/{id}
func (h *Handler) DeleteBackup(w http.ResponseWriter, r *http.Request) {
	if err := h.Backups.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, "Failed to delete backup", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportBackup downloads one backup as a standalone JSON file.
// GET /api/backups/{id}/export
func (h *Handler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	filename, data, err := h.Backups.Export(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to export backup", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if _, err := w.Write(data); err != nil {
		h.log.Error().Err(err).Msg("backup export failed mid-stream")
	}
}

// ImportBackup validates and admits an uploaded backup file.
// POST /api/backups/import
func (h *Handler) ImportBackup(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read upload", err)
		return
	}

	b, err := h.Backups.Import(r.Context(), raw)
	if err != nil {
		h.writeDomainError(w, "Import rejected", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBackupMetaDTO(b.Meta()))
}

// =============================================================================
// RESTORE PROTOCOL ENDPOINTS
// =============================================================================

// BeginRestore opens a restore session against one backup.
// POST /api/backups/{id}/restore
func (h *Handler) BeginRestore(w http.ResponseWriter, r *http.Request) {
	session, err := h.Backups.BeginRestore(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to open restore session", err)
		return
	}

	sid := uuid.NewString()
	h.mu.Lock()
	h.sessions[sid] = session
	h.mu.Unlock()

	writeJSON(w, http.StatusCreated, RestoreSessionDTO{
		SessionID: sid,
		BackupID:  session.BackupID(),
		State:     string(session.State()),
	})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (string, *backup.RestoreSession, bool) {
	sid := chi.URLParam(r, "sid")
	h.mu.Lock()
	session, ok := h.sessions[sid]
	h.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown restore session", nil)
		return "", nil, false
	}
	return sid, session, true
}

func (h *Handler) sessionState(w http.ResponseWriter, sid string, session *backup.RestoreSession) {
	writeJSON(w, http.StatusOK, RestoreSessionDTO{
		SessionID: sid,
		BackupID:  session.BackupID(),
		State:     string(session.State()),
	})
}

// AckRestore acknowledges one confirmation gate.
// POST /api/restore/{sid}/ack
func (h *Handler) AckRestore(w http.ResponseWriter, r *http.Request) {
	sid, session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req AckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := session.Acknowledge(req.Step); err != nil {
		writeError(w, http.StatusConflict, "Acknowledgment rejected", err)
		return
	}
	h.sessionState(w, sid, session)
}

// ConfirmRestore submits the typed confirmation token.
// POST /api/restore/{sid}/confirm
func (h *Handler) ConfirmRestore(w http.ResponseWriter, r *http.Request) {
	sid, session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := session.ConfirmToken(req.Token); err != nil {
		writeError(w, http.StatusConflict, "Confirmation rejected", err)
		return
	}
	h.sessionState(w, sid, session)
}

// CommitRestore performs the swap. Only an armed session gets here.
// POST /api/restore/{sid}/commit
func (h *Handler) CommitRestore(w http.ResponseWriter, r *http.Request) {
	sid, session, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := session.Commit(r.Context()); err != nil {
		if errors.Is(err, domain.ErrStorage) {
			writeError(w, http.StatusInternalServerError, "Restore failed, live data unchanged", err)
		} else {
			writeError(w, http.StatusConflict, "Commit rejected", err)
		}
		// A refused commit (gates not complete) leaves the session open so
		// the client can keep working the protocol. Only a terminal session
		// is unregistered.
		if session.State().Terminal() {
			h.dropSession(sid)
		}
		return
	}
	h.dropSession(sid)
	h.sessionState(w, sid, session)
}

// AbortRestore ends the session with live data untouched.
// POST /api/restore/{sid}/abort
func (h *Handler) AbortRestore(w http.ResponseWriter, r *http.Request) {
	sid, session, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := session.Abort(); err != nil {
		writeError(w, http.StatusConflict, "Abort rejected", err)
		return
	}
	h.dropSession(sid)
	h.sessionState(w, sid, session)
}

func (h *Handler) dropSession(sid string) {
	h.mu.Lock()
	delete(h.sessions, sid)
	h.mu.Unlock()
}

// =============================================================================
// ADMIN ENDPOINTS
// =============================================================================

// Reset wipes the live data. Retained backups survive.
// POST /api/reset
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.Backups.Reset(r.Context(), req.Password); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeError(w, http.StatusForbidden, "Reset refused", err)
			return
		}
		h.writeDomainError(w, "Reset failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health is the liveness probe.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps a domain error to its HTTP status.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, message, err)
	case domain.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	default:
		h.log.Error().Err(err).Msg(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
