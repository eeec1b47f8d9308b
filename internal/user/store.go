// Package user persists per-owner settings and notifications: the
// preference toggles the frontend renders, the notification feed, and
// the search log that feeds the stats endpoint.
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested row does not exist for the owner.
var ErrNotFound = errors.New("not found")

// Preferences are the user's UI settings.
type Preferences struct {
	DarkMode           bool `json:"dark_mode"`
	SidebarCollapsed   bool `json:"sidebar_collapsed"`
	EmailNotifications bool `json:"email_notifications"`
}

// DefaultPreferences returns the values used before a user ever saves.
func DefaultPreferences() Preferences {
	return Preferences{DarkMode: true, SidebarCollapsed: false, EmailNotifications: true}
}

// Notification kinds.
const (
	KindInfo    = "info"
	KindSuccess = "success"
	KindWarning = "warning"
	KindError   = "error"
)

// Notification is one entry in the user's feed.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Kind      string    `json:"type"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists preferences, notifications and search logs.
// Safe for concurrent use.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a user store backed by pool.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// GetPreferences returns owner's preferences, or the defaults if the
// user never saved any.
func (s *Store) GetPreferences(ctx context.Context, owner string) (Preferences, error) {
	var p Preferences
	err := s.pool.QueryRow(ctx, `
		SELECT dark_mode, sidebar_collapsed, email_notifications
		FROM user_preferences WHERE owner_id = $1`,
		owner).Scan(&p.DarkMode, &p.SidebarCollapsed, &p.EmailNotifications)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultPreferences(), nil
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("loading preferences: %w", err)
	}
	return p, nil
}

// PutPreferences upserts owner's preferences.
func (s *Store) PutPreferences(ctx context.Context, owner string, p Preferences) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_preferences (owner_id, dark_mode, sidebar_collapsed, email_notifications, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (owner_id) DO UPDATE SET
			dark_mode = EXCLUDED.dark_mode,
			sidebar_collapsed = EXCLUDED.sidebar_collapsed,
			email_notifications = EXCLUDED.email_notifications,
			updated_at = now()`,
		owner, p.DarkMode, p.SidebarCollapsed, p.EmailNotifications)
	if err != nil {
		return fmt.Errorf("saving preferences: %w", err)
	}
	return nil
}

// ListNotifications returns owner's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, owner string, unreadOnly bool, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	q := `SELECT id, owner_id, title, message, kind, is_read, created_at
		FROM notifications WHERE owner_id = $1`
	if unreadOnly {
		q += ` AND NOT is_read`
	}
	q += ` ORDER BY created_at DESC LIMIT $2`

	rows, err := s.pool.Query(ctx, q, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	items := make([]Notification, 0, limit)
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.OwnerID, &n.Title, &n.Message, &n.Kind, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	return items, nil
}

// CreateNotification appends an entry to owner's feed.
func (s *Store) CreateNotification(ctx context.Context, owner, title, message, kind string) (*Notification, error) {
	switch kind {
	case KindInfo, KindSuccess, KindWarning, KindError:
	case "":
		kind = KindInfo
	default:
		return nil, fmt.Errorf("unknown notification kind %q", kind)
	}

	n := Notification{ID: uuid.New(), OwnerID: owner, Title: title, Message: message, Kind: kind}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO notifications (id, owner_id, title, message, kind)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING is_read, created_at`,
		n.ID, owner, title, message, kind).Scan(&n.IsRead, &n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating notification: %w", err)
	}
	return &n, nil
}

// MarkRead marks one notification read.
func (s *Store) MarkRead(ctx context.Context, owner string, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE owner_id = $1 AND id = $2`,
		owner, id)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead marks every notification of owner read.
func (s *Store) MarkAllRead(ctx context.Context, owner string) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE owner_id = $1`,
		owner); err != nil {
		return fmt.Errorf("marking notifications read: %w", err)
	}
	return nil
}

// LogSearch records one answered query for analytics. Callers treat
// failures as non-fatal; an answer is never lost to a logging error.
func (s *Store) LogSearch(ctx context.Context, owner, query string, resultsCount int) error {
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO search_logs (owner_id, query, results_count)
		VALUES ($1, $2, $3)`,
		owner, query, resultsCount); err != nil {
		return fmt.Errorf("logging search: %w", err)
	}
	return nil
}

// SearchesSince counts owner's logged searches since the cutoff.
func (s *Store) SearchesSince(ctx context.Context, owner string, since time.Time) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM search_logs
		WHERE owner_id = $1 AND created_at >= $2`,
		owner, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting searches: %w", err)
	}
	return n, nil
}
