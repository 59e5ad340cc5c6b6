package main

import (
	"testing"

	"github.com/gaugehq/bskyagent/internal/model"
)

func TestListFilter(t *testing.T) {
	f := listFilter(false, "", "", 50)
	if f.Limit != 50 || f.AuthorHandle != nil || f.Status != nil {
		t.Errorf("default filter = %+v", f)
	}

	// --all lifts the row limit.
	f = listFilter(true, "", "", 50)
	if f.Limit != 0 {
		t.Errorf("limit with --all = %d, want 0", f.Limit)
	}

	f = listFilter(false, "alice.bsky.social", "errored", 10)
	if f.AuthorHandle == nil || *f.AuthorHandle != "alice.bsky.social" {
		t.Errorf("author filter = %v", f.AuthorHandle)
	}
	if f.Status == nil || *f.Status != model.StatusErrored {
		t.Errorf("status filter = %v", f.Status)
	}
	if f.Limit != 10 {
		t.Errorf("limit = %d, want 10", f.Limit)
	}
}
