package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/waitwatch/internal/domain/occupancy"
	"github.com/rpggio/waitwatch/internal/repository"
)

const sessionColumns = `id, source, identity, entered_unix, exited_unix, duration_seconds`

// SessionRepository implements repository.SessionRepository for SQLite
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateOpen inserts an open session unless the identity already has one.
func (r *SessionRepository) CreateOpen(ctx context.Context, source, identity string, enteredAt time.Time) (*occupancy.Session, error) {
	if source == "" || identity == "" {
		return nil, repository.ErrInvalidInput
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM occupancy_sessions
		WHERE source = ? AND identity = ? AND exited_unix IS NULL
	`, source, identity).Scan(&existing)
	if err == nil {
		return nil, repository.ErrAlreadyOpen
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to check open session: %w", err)
	}

	sess := &occupancy.Session{
		ID:        uuid.NewString(),
		Source:    source,
		Identity:  identity,
		EnteredAt: fromUnix(toUnix(enteredAt)),
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO occupancy_sessions (id, source, identity, entered_unix)
		VALUES (?, ?, ?, ?)
	`, sess.ID, sess.Source, sess.Identity, toUnix(enteredAt))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrAlreadyOpen
		}
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrAlreadyOpen
		}
		return nil, fmt.Errorf("failed to commit session: %w", err)
	}
	return sess, nil
}

// FindOpen returns the open session for an identity.
func (r *SessionRepository) FindOpen(ctx context.Context, source, identity string) (*occupancy.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM occupancy_sessions
		WHERE source = ? AND identity = ? AND exited_unix IS NULL
	`, source, identity)

	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find open session: %w", err)
	}
	return sess, nil
}

// CloseOpen closes the identity's open session at exitedAt.
// Duration is computed here once and never recomputed.
func (r *SessionRepository) CloseOpen(ctx context.Context, source, identity string, exitedAt time.Time) (*occupancy.Session, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM occupancy_sessions
		WHERE source = ? AND identity = ? AND exited_unix IS NULL
	`, source, identity)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load open session: %w", err)
	}

	entered := toUnix(sess.EnteredAt)
	exited := math.Max(toUnix(exitedAt), entered)
	duration := exited - entered

	result, err := tx.ExecContext(ctx, `
		UPDATE occupancy_sessions
		SET exited_unix = ?, duration_seconds = ?
		WHERE id = ? AND exited_unix IS NULL
	`, exited, duration, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to close session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit close: %w", err)
	}

	exitTime := fromUnix(exited)
	sess.ExitedAt = &exitTime
	sess.DurationSeconds = &duration
	return sess, nil
}

// ListOpen returns open sessions ordered by entry time. An empty source lists all sources.
func (r *SessionRepository) ListOpen(ctx context.Context, source string) ([]occupancy.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM occupancy_sessions WHERE exited_unix IS NULL`
	var args []any
	if source != "" {
		query += ` AND source = ?`
		args = append(args, source)
	}
	query += ` ORDER BY entered_unix ASC, identity ASC`

	return r.list(ctx, query, args...)
}

// QueryByWindow returns sessions whose entry time falls inside the window.
func (r *SessionRepository) QueryByWindow(ctx context.Context, q occupancy.WindowQuery) ([]occupancy.Session, error) {
	var conditions []string
	var args []any

	if q.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, q.Source)
	}
	if !q.Start.IsZero() {
		conditions = append(conditions, "entered_unix >= ?")
		args = append(args, toUnix(q.Start))
	}
	if !q.End.IsZero() {
		conditions = append(conditions, "entered_unix <= ?")
		args = append(args, toUnix(q.End))
	}
	if q.ClosedOnly || q.MinDuration > 0 {
		conditions = append(conditions, "exited_unix IS NOT NULL")
	}
	if q.MinDuration > 0 {
		conditions = append(conditions, "duration_seconds > ?")
		args = append(args, q.MinDuration)
	}

	query := `SELECT ` + sessionColumns + ` FROM occupancy_sessions`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY entered_unix ASC, identity ASC`

	return r.list(ctx, query, args...)
}

// Get retrieves a session by ID
func (r *SessionRepository) Get(ctx context.Context, id string) (*occupancy.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM occupancy_sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

// MaxIdentity returns the largest numeric identity ever stored for source, or 0.
func (r *SessionRepository) MaxIdentity(ctx context.Context, source string) (int64, error) {
	var last int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(CAST(identity AS INTEGER)), 0)
		FROM occupancy_sessions
		WHERE source = ? AND identity != '' AND identity NOT GLOB '*[^0-9]*'
	`, source).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("failed to get max identity: %w", err)
	}
	return last, nil
}

// Count returns the total number of stored sessions.
func (r *SessionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM occupancy_sessions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

// BulkInsert stores closed sessions in one transaction. Open sessions are rejected.
// The stored duration is always exited minus entered; DurationSeconds is ignored.
func (r *SessionRepository) BulkInsert(ctx context.Context, sessions []occupancy.Session) error {
	for _, sess := range sessions {
		if sess.ExitedAt == nil || sess.Source == "" || sess.Identity == "" {
			return fmt.Errorf("%w: bulk insert requires closed sessions with source and identity", repository.ErrInvalidInput)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO occupancy_sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, sess := range sessions {
		id := sess.ID
		if id == "" {
			id = uuid.NewString()
		}
		entered := toUnix(sess.EnteredAt)
		exited := math.Max(toUnix(*sess.ExitedAt), entered)
		if _, err := stmt.ExecContext(ctx, id, sess.Source, sess.Identity, entered, exited, exited-entered); err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sessions: %w", err)
	}
	return nil
}

func (r *SessionRepository) list(ctx context.Context, query string, args ...any) ([]occupancy.Session, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []occupancy.Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*occupancy.Session, error) {
	var sess occupancy.Session
	var entered float64
	var exited, duration sql.NullFloat64
	if err := row.Scan(&sess.ID, &sess.Source, &sess.Identity, &entered, &exited, &duration); err != nil {
		return nil, err
	}

	sess.EnteredAt = fromUnix(entered)
	if exited.Valid {
		t := fromUnix(exited.Float64)
		sess.ExitedAt = &t
	}
	if duration.Valid {
		d := duration.Float64
		sess.DurationSeconds = &d
	}
	return &sess, nil
}

func toUnix(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func fromUnix(v float64) time.Time {
	sec, frac := math.Modf(v)
	return time.Unix(int64(sec), int64(math.Round(frac*1e6))*1e3).UTC()
}
