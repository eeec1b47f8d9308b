// Package note provides the Note model and its owner-scoped Postgres
// store. Every read and write filters by owner identity before any
// other predicate; a note is visible to exactly one owner.
package note

import (
	"time"

	"github.com/google/uuid"
)

// Index states tracked on the note row. A note whose embedding write
// failed stays pending so the background sweep can retry it.
const (
	IndexStatePending = "pending"
	IndexStateIndexed = "indexed"
)

// List filter types, mirroring the sidebar views of the frontend.
const (
	FilterAll       = "all"
	FilterFavorites = "favorites"
	FilterArchived  = "archived"
	FilterTrash     = "trash"
)

// Note is one unit of user content.
type Note struct {
	ID         uuid.UUID `json:"id"`
	OwnerID    string    `json:"user_id"`
	Title      string    `json:"title"`
	Body       string    `json:"content"`
	Tags       []string  `json:"tags"`
	IsFavorite bool      `json:"is_favorite"`
	IsArchived bool      `json:"is_archived"`
	IsDeleted  bool      `json:"is_deleted"`
	IndexState string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// EmbeddingText returns the text the indexer embeds for the note:
// title and body joined by a newline, or just the body when the title
// is empty.
func (n *Note) EmbeddingText() string {
	if n.Title == "" {
		return n.Body
	}
	return n.Title + "\n" + n.Body
}

// Patch describes a partial update. Nil fields are left unchanged.
type Patch struct {
	Title      *string
	Body       *string
	Tags       *[]string
	IsFavorite *bool
	IsArchived *bool
	IsDeleted  *bool
}

// ContentChanged reports whether the patch touches title or body, i.e.
// whether the note's embedding becomes stale.
func (p Patch) ContentChanged() bool {
	return p.Title != nil || p.Body != nil
}

// ListOptions narrow a List call.
type ListOptions struct {
	Filter string // one of the Filter* constants; default FilterAll
	Search string // optional ILIKE match on title/body
	Limit  int    // default 50, max 200
	Offset int
}

// Stats summarizes one owner's activity for the dashboard.
type Stats struct {
	TotalNotes       int `json:"total_notes"`
	FavoritesCount   int `json:"favorites_count"`
	ArchivedCount    int `json:"archived_count"`
	SearchesThisWeek int `json:"searches_this_week"`
	AIInsights       int `json:"ai_insights"`
	Streak           int `json:"streak"`
}
