package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPatchRequestMapping(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/notes/x",
		strings.NewReader(`{"title": "t", "is_deleted": true}`))

	var body patchNoteRequest
	if !decodeJSON(rec, req, &body) {
		t.Fatalf("decode failed: %s", rec.Body.String())
	}

	p := body.patch()
	if p.Title == nil || *p.Title != "t" {
		t.Errorf("Title = %v", p.Title)
	}
	if p.IsDeleted == nil || !*p.IsDeleted {
		t.Error("is_deleted not carried into the patch")
	}
	if p.Body != nil || p.Tags != nil || p.IsFavorite != nil || p.IsArchived != nil {
		t.Error("absent fields must stay nil so the store leaves them untouched")
	}
}

func TestPatchRequestRestoreMapping(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/notes/x",
		strings.NewReader(`{"is_deleted": false}`))

	var body patchNoteRequest
	if !decodeJSON(rec, req, &body) {
		t.Fatalf("decode failed: %s", rec.Body.String())
	}

	p := body.patch()
	if p.IsDeleted == nil || *p.IsDeleted {
		t.Error("is_deleted=false must map to an explicit restore, not a no-op")
	}
}
