package note

import (
	"testing"
	"time"
)

func TestEmbeddingText(t *testing.T) {
	tests := []struct {
		name  string
		title string
		body  string
		want  string
	}{
		{"title and body", "Q3 OKRs", "Ship retrieval v2", "Q3 OKRs\nShip retrieval v2"},
		{"empty title", "", "groceries: milk, eggs", "groceries: milk, eggs"},
		{"empty body keeps title", "Standup notes", "", "Standup notes\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &Note{Title: tt.title, Body: tt.body}
			if got := n.EmbeddingText(); got != tt.want {
				t.Errorf("EmbeddingText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPatchContentChanged(t *testing.T) {
	title := "new title"
	body := "new body"
	fav := true

	tests := []struct {
		name string
		p    Patch
		want bool
	}{
		{"empty patch", Patch{}, false},
		{"title only", Patch{Title: &title}, true},
		{"body only", Patch{Body: &body}, true},
		{"favorite only", Patch{IsFavorite: &fav}, false},
		{"tags only", Patch{Tags: &[]string{"work"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.ContentChanged(); got != tt.want {
				t.Errorf("ContentChanged() = %v, want %v", got, tt.want)
			}
		})
	}
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCountStreak(t *testing.T) {
	tests := []struct {
		name string
		days []time.Time
		want int
	}{
		{"no activity", nil, 0},
		{"single day", []time.Time{day("2026-08-24")}, 1},
		{
			"three consecutive days",
			[]time.Time{day("2026-08-24"), day("2026-08-23"), day("2026-08-22")},
			3,
		},
		{
			"gap breaks the streak",
			[]time.Time{day("2026-08-24"), day("2026-08-23"), day("2026-08-20")},
			2,
		},
		{
			"gap right after the head",
			[]time.Time{day("2026-08-24"), day("2026-08-10")},
			1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountStreak(tt.days); got != tt.want {
				t.Errorf("CountStreak() = %d, want %d", got, tt.want)
			}
		})
	}
}
