package note

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

const noteColumns = `id, owner_id, title, body, tags, is_favorite, is_archived, is_deleted, index_state, created_at, updated_at`

// Store persists notes in PostgreSQL. Safe for concurrent use.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a note store backed by pool.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

func scanNote(row pgx.Row) (*Note, error) {
	var n Note
	err := row.Scan(&n.ID, &n.OwnerID, &n.Title, &n.Body, &n.Tags,
		&n.IsFavorite, &n.IsArchived, &n.IsDeleted, &n.IndexState,
		&n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning note: %w", err)
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	return &n, nil
}

// Create inserts a new note for owner. The note starts in the pending
// index state; the indexer flips it once the embedding is written.
func (s *Store) Create(ctx context.Context, owner, title, body string, tags []string) (*Note, error) {
	if body == "" {
		return nil, ErrEmptyBody
	}
	if tags == nil {
		tags = []string{}
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO notes (id, owner_id, title, body, tags)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+noteColumns,
		uuid.New(), owner, title, body, tags)

	n, err := scanNote(row)
	if err != nil {
		return nil, fmt.Errorf("creating note: %w", err)
	}
	s.logger.Debug("created note", "id", n.ID, "owner", owner, "body_len", len(body))
	return n, nil
}

// Get returns the note with id owned by owner, or ErrNotFound.
func (s *Store) Get(ctx context.Context, owner string, id uuid.UUID) (*Note, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+noteColumns+` FROM notes
		WHERE owner_id = $1 AND id = $2`,
		owner, id)
	return scanNote(row)
}

// List returns owner's notes matching opts, newest first.
func (s *Store) List(ctx context.Context, owner string, opts ListOptions) ([]Note, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	q := `SELECT ` + noteColumns + ` FROM notes WHERE owner_id = $1`
	args := []any{owner}

	switch opts.Filter {
	case FilterFavorites:
		q += ` AND is_favorite AND NOT is_deleted`
	case FilterArchived:
		q += ` AND is_archived AND NOT is_deleted`
	case FilterTrash:
		q += ` AND is_deleted`
	case FilterAll, "":
		q += ` AND NOT is_deleted AND NOT is_archived`
	default:
		return nil, fmt.Errorf("unknown filter %q", opts.Filter)
	}

	if opts.Search != "" {
		args = append(args, "%"+opts.Search+"%")
		q += fmt.Sprintf(` AND (title ILIKE $%d OR body ILIKE $%d)`, len(args), len(args))
	}

	args = append(args, limit, opts.Offset)
	q += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	defer rows.Close()

	notes := make([]Note, 0, limit)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	return notes, nil
}

// Update applies a partial update and returns the new row. When the
// patch touches title or body the index state drops back to pending
// until the indexer catches up.
func (s *Store) Update(ctx context.Context, owner string, id uuid.UUID, p Patch) (*Note, error) {
	set := []string{"updated_at = now()"}
	args := []any{owner, id}
	add := func(expr string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf(expr, len(args)))
	}

	if p.Title != nil {
		add("title = $%d", *p.Title)
	}
	if p.Body != nil {
		if *p.Body == "" {
			return nil, ErrEmptyBody
		}
		add("body = $%d", *p.Body)
	}
	if p.Tags != nil {
		add("tags = $%d", *p.Tags)
	}
	if p.IsFavorite != nil {
		add("is_favorite = $%d", *p.IsFavorite)
	}
	if p.IsArchived != nil {
		add("is_archived = $%d", *p.IsArchived)
	}
	if p.IsDeleted != nil {
		add("is_deleted = $%d", *p.IsDeleted)
	}
	if p.ContentChanged() {
		set = append(set, "index_state = 'pending'")
	}

	q := `UPDATE notes SET ` + joinSet(set) + `
		WHERE owner_id = $1 AND id = $2
		RETURNING ` + noteColumns

	n, err := scanNote(s.pool.QueryRow(ctx, q, args...))
	if err != nil {
		return nil, err
	}
	s.logger.Debug("updated note", "id", id, "owner", owner, "content_changed", p.ContentChanged())
	return n, nil
}

func joinSet(set []string) string {
	out := set[0]
	for _, s := range set[1:] {
		out += ", " + s
	}
	return out
}

// SoftDelete moves the note to trash.
func (s *Store) SoftDelete(ctx context.Context, owner string, id uuid.UUID) error {
	return s.exec(ctx, `
		UPDATE notes SET is_deleted = TRUE, updated_at = now()
		WHERE owner_id = $1 AND id = $2`,
		owner, id)
}

// Restore brings a trashed note back.
func (s *Store) Restore(ctx context.Context, owner string, id uuid.UUID) error {
	return s.exec(ctx, `
		UPDATE notes SET is_deleted = FALSE, updated_at = now()
		WHERE owner_id = $1 AND id = $2`,
		owner, id)
}

// HardDelete removes the row permanently. The caller is responsible
// for deindexing the vector.
func (s *Store) HardDelete(ctx context.Context, owner string, id uuid.UUID) error {
	return s.exec(ctx, `DELETE FROM notes WHERE owner_id = $1 AND id = $2`, owner, id)
}

// exec runs a single-row statement and maps zero affected rows to
// ErrNotFound.
func (s *Store) exec(ctx context.Context, q string, args ...any) error {
	tag, err := s.pool.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("executing note statement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleFavorite flips the favorite flag atomically and returns the new
// value. Single UPDATE, so concurrent toggles serialize at the row.
func (s *Store) ToggleFavorite(ctx context.Context, owner string, id uuid.UUID) (bool, error) {
	return s.toggle(ctx, "is_favorite", owner, id)
}

// ToggleArchive flips the archive flag atomically and returns the new
// value.
func (s *Store) ToggleArchive(ctx context.Context, owner string, id uuid.UUID) (bool, error) {
	return s.toggle(ctx, "is_archived", owner, id)
}

func (s *Store) toggle(ctx context.Context, column, owner string, id uuid.UUID) (bool, error) {
	// column is one of two compile-time constants, never user input.
	var v bool
	err := s.pool.QueryRow(ctx, `
		UPDATE notes SET `+column+` = NOT `+column+`, updated_at = now()
		WHERE owner_id = $1 AND id = $2
		RETURNING `+column,
		owner, id).Scan(&v)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("toggling %s: %w", column, err)
	}
	return v, nil
}

// EmptyTrash permanently deletes all of owner's trashed notes and
// returns their IDs so the caller can deindex the vectors.
func (s *Store) EmptyTrash(ctx context.Context, owner string) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `
		DELETE FROM notes
		WHERE owner_id = $1 AND is_deleted
		RETURNING id`,
		owner)
	if err != nil {
		return nil, fmt.Errorf("emptying trash: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("emptying trash: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("emptying trash: %w", err)
	}
	s.logger.Debug("emptied trash", "owner", owner, "count", len(ids))
	return ids, nil
}

// SetIndexState records the indexing outcome for a note. Owner is not
// checked: only the indexer calls this, keyed by note ID.
func (s *Store) SetIndexState(ctx context.Context, id uuid.UUID, state string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notes SET index_state = $2 WHERE id = $1`, id, state)
	if err != nil {
		return fmt.Errorf("setting index state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Note deleted between embed and state write; nothing to track.
		return nil
	}
	return nil
}

// ListPendingIndex returns non-deleted notes still waiting for an
// embedding, oldest first, for the background sweep.
func (s *Store) ListPendingIndex(ctx context.Context, limit int) ([]Note, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+noteColumns+` FROM notes
		WHERE index_state = 'pending' AND NOT is_deleted
		ORDER BY updated_at
		LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("listing pending notes: %w", err)
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing pending notes: %w", err)
	}
	return notes, nil
}

// Stats returns the owner's dashboard counters. Search counters are
// filled in by the caller from the search log store.
func (s *Store) Stats(ctx context.Context, owner string) (*Stats, error) {
	var st Stats
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE NOT is_deleted),
			COUNT(*) FILTER (WHERE is_favorite AND NOT is_deleted),
			COUNT(*) FILTER (WHERE is_archived AND NOT is_deleted)
		FROM notes WHERE owner_id = $1`,
		owner).Scan(&st.TotalNotes, &st.FavoritesCount, &st.ArchivedCount)
	if err != nil {
		return nil, fmt.Errorf("counting notes: %w", err)
	}

	streak, err := s.streak(ctx, owner)
	if err != nil {
		return nil, err
	}
	st.Streak = streak
	return &st, nil
}

// streak counts consecutive days with note activity, ending today or
// yesterday.
func (s *Store) streak(ctx context.Context, owner string) (int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT created_at::date AS day FROM notes
		WHERE owner_id = $1
		ORDER BY day DESC
		LIMIT 30`,
		owner)
	if err != nil {
		return 0, fmt.Errorf("loading activity days: %w", err)
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return 0, fmt.Errorf("loading activity days: %w", err)
		}
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("loading activity days: %w", err)
	}
	return CountStreak(days), nil
}

// CountStreak returns the length of the run of consecutive days at the
// head of days, which must be sorted newest first.
func CountStreak(days []time.Time) int {
	if len(days) == 0 {
		return 0
	}
	streak := 1
	for i := 1; i < len(days); i++ {
		if days[i-1].Sub(days[i]) == 24*time.Hour {
			streak++
			continue
		}
		break
	}
	return streak
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation, surfaced to callers as ErrConflict.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
