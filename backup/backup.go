/*
Package backup implements snapshot backups and the guarded restore protocol.

PURPOSE:
  Backups guarantee the derived-from dataset can be snapshotted, exported,
  and destructively replaced without silent data loss. Everything here is
  reversible except restore and reset - the only destructive operations in
  the system - and those are gated accordingly.

RETENTION:
  The retained list keeps the 20 most recent backups, newest first. The
  oldest is silently evicted when a 21st is created. Deliberate bounded
  retention, not a bug: the list lives inside the browser-equivalent
  storage quota.

IMPORT VALIDATION:
  A backup file is accepted only if it structurally carries data, id, name,
  and timestamp. Anything else is rejected with a validation error before
  any write to the retained list - imports are never partial.

RESET:
  A degenerate restore gated by a static shared secret (a UI deterrent,
  not a security boundary). Reset replaces the live dataset with the empty
  default state and PRESERVES retained backups, so a mistaken reset stays
  recoverable through restore.

SEE ALSO:
  - restore.go: the four-gate destructive restore session
  - store: the Repository the restore commits through
*/
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/crewtrack/billing-engine/domain"
	"github.com/crewtrack/billing-engine/store"
)

// RetentionLimit bounds the retained backup list.
const RetentionLimit = 20

// =============================================================================
// BACKUP RECORD
// =============================================================================

// Backup is one retained snapshot plus its metadata. The JSON form of this
// struct IS the export/import file format.
type Backup struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Description  string              `json:"description,omitempty"`
	Timestamp    time.Time           `json:"timestamp"`
	DataSize     int64               `json:"dataSize"` // serialized byte length of Data
	RecordCounts domain.RecordCounts `json:"recordCounts"`
	Data         domain.Snapshot     `json:"data"`
}

// Meta is a backup without its payload, for listings.
type Meta struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Description  string              `json:"description,omitempty"`
	Timestamp    time.Time           `json:"timestamp"`
	DataSize     int64               `json:"dataSize"`
	RecordCounts domain.RecordCounts `json:"recordCounts"`
}

func (b Backup) Meta() Meta {
	return Meta{
		ID:           b.ID,
		Name:         b.Name,
		Description:  b.Description,
		Timestamp:    b.Timestamp,
		DataSize:     b.DataSize,
		RecordCounts: b.RecordCounts,
	}
}

// ListStore persists the retained backup list under its single storage key.
// The list is always written whole; retention and ordering are the
// Manager's concern.
type ListStore interface {
	ListBackups(ctx context.Context) ([]Backup, error)
	SaveBackups(ctx context.Context, list []Backup) error
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager owns backup lifecycle: create, list, delete, export, import, and
// the entry points of restore and reset.
type Manager struct {
	repo    store.Repository
	backups ListStore
	log     zerolog.Logger

	resetSecret string
	now         func() time.Time
	newID       func() string
}

// Option configures a Manager.
type Option func(*Manager)

// WithResetSecret sets the shared secret gating Reset. Without one, Reset
// always refuses.
func WithResetSecret(secret string) Option {
	return func(m *Manager) { m.resetSecret = secret }
}

// WithClock overrides the timestamp source (tests).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator overrides backup id generation (tests).
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) { m.newID = fn }
}

func NewManager(repo store.Repository, backups ListStore, log zerolog.Logger, opts ...Option) *Manager {
	m := &Manager{
		repo:    repo,
		backups: backups,
		log:     log.With().Str("component", "backup").Logger(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create snapshots the live dataset into a new backup, prepends it to the
// retained list, and truncates the list to the 20 most recent.
func (m *Manager) Create(ctx context.Context, name, description string) (Backup, error) {
	snap, err := m.repo.Get(ctx)
	if err != nil {
		return Backup{}, err
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return Backup{}, &domain.ValidationError{Field: "data", Reason: fmt.Sprintf("snapshot not serializable: %v", err)}
	}

	ts := m.now().UTC()
	if name == "" {
		name = "Backup " + ts.Format("2006-01-02 15:04")
	}

	b := Backup{
		ID:           m.newID(),
		Name:         name,
		Description:  description,
		Timestamp:    ts,
		DataSize:     int64(len(raw)),
		RecordCounts: snap.Counts(),
		Data:         snap,
	}

	if err := m.retain(ctx, b); err != nil {
		return Backup{}, err
	}

	m.log.Info().
		Str("backup_id", b.ID).
		Str("name", b.Name).
		Int64("data_size", b.DataSize).
		Msg("backup created")
	return b, nil
}

// retain prepends b and enforces the retention policy. The oldest backups
// (by timestamp) fall off the end.
func (m *Manager) retain(ctx context.Context, b Backup) error {
	list, err := m.backups.ListBackups(ctx)
	if err != nil {
		return err
	}

	list = append([]Backup{b}, list...)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Timestamp.After(list[j].Timestamp)
	})
	if len(list) > RetentionLimit {
		for _, evicted := range list[RetentionLimit:] {
			m.log.Info().
				Str("backup_id", evicted.ID).
				Time("timestamp", evicted.Timestamp).
				Msg("backup evicted by retention policy")
		}
		list = list[:RetentionLimit]
	}

	return m.backups.SaveBackups(ctx, list)
}

// List returns backup metadata, newest first.
func (m *Manager) List(ctx context.Context) ([]Meta, error) {
	list, err := m.backups.ListBackups(ctx)
	if err != nil {
		return nil, err
	}
	metas := make([]Meta, len(list))
	for i, b := range list {
		metas[i] = b.Meta()
	}
	return metas, nil
}

// Get returns the full backup (payload included) by id.
func (m *Manager) Get(ctx context.Context, id string) (Backup, error) {
	list, err := m.backups.ListBackups(ctx)
	if err != nil {
		return Backup{}, err
	}
	for _, b := range list {
		if b.ID == id {
			return b, nil
		}
	}
	return Backup{}, &domain.NotFoundError{Kind: "backup", ID: id}
}

// Delete removes a backup from the retained list. It never touches the live
// dataset.
func (m *Manager) Delete(ctx context.Context, id string) error {
	list, err := m.backups.ListBackups(ctx)
	if err != nil {
		return err
	}
	kept := list[:0]
	found := false
	for _, b := range list {
		if b.ID == id {
			found = true
			continue
		}
		kept = append(kept, b)
	}
	if !found {
		return &domain.NotFoundError{Kind: "backup", ID: id}
	}
	if err := m.backups.SaveBackups(ctx, kept); err != nil {
		return err
	}
	m.log.Info().Str("backup_id", id).Msg("backup deleted")
	return nil
}

// =============================================================================
// EXPORT / IMPORT
// =============================================================================

// ExportFilename derives the deterministic download name for a backup:
// the sanitized backup name plus its date.
func ExportFilename(name string, ts time.Time) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		default:
			return -1
		}
	}, name)
	sanitized = strings.Trim(sanitized, "-")
	if sanitized == "" {
		sanitized = "backup"
	}
	return fmt.Sprintf("%s-%s.json", sanitized, ts.UTC().Format("2006-01-02"))
}

// Export serializes one retained backup to its downloadable file form.
func (m *Manager) Export(ctx context.Context, id string) (filename string, data []byte, err error) {
	b, err := m.Get(ctx, id)
	if err != nil {
		return "", nil, err
	}
	data, err = json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "", nil, &domain.ValidationError{Field: "data", Reason: fmt.Sprintf("backup not serializable: %v", err)}
	}
	return ExportFilename(b.Name, b.Timestamp), data, nil
}

// importEnvelope shadows Backup with presence-detectable fields so a missing
// required field can be told apart from a zero value.
type importEnvelope struct {
	ID          *string         `json:"id"`
	Name        *string         `json:"name"`
	Description string          `json:"description"`
	Timestamp   *time.Time      `json:"timestamp"`
	Data        json.RawMessage `json:"data"`
}

// Import parses and validates a backup file and, only if it is structurally
// sound, adds it to the retained list under the same retention policy.
// Nothing is written on rejection.
func (m *Manager) Import(ctx context.Context, raw []byte) (Backup, error) {
	var env importEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Backup{}, &domain.ValidationError{Field: "file", Reason: fmt.Sprintf("not a valid backup file: %v", err)}
	}

	switch {
	case len(env.Data) == 0 || string(env.Data) == "null":
		return Backup{}, &domain.ValidationError{Field: "data", Reason: "missing required field"}
	case env.ID == nil || *env.ID == "":
		return Backup{}, &domain.ValidationError{Field: "id", Reason: "missing required field"}
	case env.Name == nil || *env.Name == "":
		return Backup{}, &domain.ValidationError{Field: "name", Reason: "missing required field"}
	case env.Timestamp == nil:
		return Backup{}, &domain.ValidationError{Field: "timestamp", Reason: "missing required field"}
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		return Backup{}, &domain.ValidationError{Field: "data", Reason: fmt.Sprintf("malformed snapshot: %v", err)}
	}

	// Size and counts are recomputed rather than trusted from the file.
	serialized, err := json.Marshal(snap)
	if err != nil {
		return Backup{}, &domain.ValidationError{Field: "data", Reason: fmt.Sprintf("snapshot not serializable: %v", err)}
	}

	b := Backup{
		ID:           *env.ID,
		Name:         *env.Name,
		Description:  env.Description,
		Timestamp:    env.Timestamp.UTC(),
		DataSize:     int64(len(serialized)),
		RecordCounts: snap.Counts(),
		Data:         snap,
	}

	if err := m.retain(ctx, b); err != nil {
		return Backup{}, err
	}

	m.log.Info().
		Str("backup_id", b.ID).
		Str("name", b.Name).
		Msg("backup imported")
	return b, nil
}

// =============================================================================
// RESET - password-gated full wipe
// =============================================================================

// Reset replaces the live dataset with the empty default state. The gate is
// a plain string comparison against the configured shared secret - an
// operator deterrent, not a cryptographic boundary. Retained backups are
// preserved so the wipe stays recoverable via restore.
func (m *Manager) Reset(ctx context.Context, password string) error {
	if m.resetSecret == "" {
		return &domain.ValidationError{Field: "password", Reason: "reset is not configured"}
	}
	if password != m.resetSecret {
		return &domain.ValidationError{Field: "password", Reason: "incorrect reset password"}
	}
	if err := m.repo.ReplaceAll(ctx, domain.Empty()); err != nil {
		return err
	}
	m.log.Warn().Msg("live dataset reset to empty state")
	return nil
}
