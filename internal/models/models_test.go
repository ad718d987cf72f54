package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestShelf(t *testing.T) {
	t.Run("Label", func(t *testing.T) {
		shelf := Shelf{ID: 1, Title: "Favorites", VolumeCount: 2}
		if got := shelf.Label(); got != "Favorites (2)" {
			t.Errorf("expected 'Favorites (2)', got %q", got)
		}
	})

	t.Run("Label untitled", func(t *testing.T) {
		if got := (Shelf{ID: 9}).Label(); got != "Shelf (0)" {
			t.Errorf("expected 'Shelf (0)', got %q", got)
		}
	})

	t.Run("Key", func(t *testing.T) {
		if got := (Shelf{ID: 1001}).Key(); got != "1001" {
			t.Errorf("expected '1001', got %q", got)
		}
	})

	t.Run("decodes gateway shape", func(t *testing.T) {
		body := `{"id":3,"title":"Reading now","access":"PRIVATE","volumeCount":4,"updated":"2024-01-01T00:00:00Z"}`
		var shelf Shelf
		if err := json.Unmarshal([]byte(body), &shelf); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if shelf.ID != 3 || shelf.VolumeCount != 4 || shelf.Access != "PRIVATE" {
			t.Errorf("unexpected shelf: %+v", shelf)
		}
	})
}

func TestIsAddable(t *testing.T) {
	tc := []struct {
		title string
		want  bool
	}{
		{"Favorites", true},
		{"  reading NOW ", true},
		{"To read", true},
		{"Have read", false},
		{"Purchased", false},
		{"", false},
	}

	for _, tt := range tc {
		t.Run(tt.title, func(t *testing.T) {
			if got := IsAddable(Shelf{Title: tt.title}); got != tt.want {
				t.Errorf("IsAddable(%q) = %v, want %v", tt.title, got, tt.want)
			}
		})
	}
}

func TestVolume(t *testing.T) {
	t.Run("renderable requires id and info", func(t *testing.T) {
		if (Volume{ID: "x"}).Renderable() {
			t.Error("volume without info should not render")
		}
		if (Volume{VolumeInfo: &VolumeInfo{}}).Renderable() {
			t.Error("volume without id should not render")
		}
		if !(Volume{ID: "x", VolumeInfo: &VolumeInfo{}}).Renderable() {
			t.Error("volume with id and info should render")
		}
	})

	t.Run("accessors tolerate missing info", func(t *testing.T) {
		var v Volume
		if v.Title() != "" || v.AuthorLine() != "" || v.Thumbnail() != "" {
			t.Error("expected empty accessors for empty volume")
		}
	})

	t.Run("thumbnail is upgraded to https", func(t *testing.T) {
		v := Volume{ID: "a", VolumeInfo: &VolumeInfo{ImageLinks: &ImageLinks{Thumbnail: "http://books.example.com/t.jpg"}}}
		if got := v.Thumbnail(); got != "https://books.example.com/t.jpg" {
			t.Errorf("unexpected thumbnail %q", got)
		}
	})
}

func TestBookSummary(t *testing.T) {
	book := BookSummary{GoogleID: "abc", Title: "Dune", Authors: []string{"Frank Herbert"}}

	if got := book.AuthorLine(); got != "Frank Herbert" {
		t.Errorf("expected author line 'Frank Herbert', got %q", got)
	}
	if got := book.Blurb(); got != "No description available." {
		t.Errorf("expected placeholder blurb, got %q", got)
	}

	book.Authors = append(book.Authors, "Brian Herbert")
	if got := book.AuthorLine(); got != "Frank Herbert, Brian Herbert" {
		t.Errorf("unexpected author line %q", got)
	}
}

func TestIdentity(t *testing.T) {
	id := Identity{Subject: "123", Email: "reader@example.com", ExpiresAt: 1700000000}

	if got := id.DisplayName(); got != "reader@example.com" {
		t.Errorf("expected email as display name, got %q", got)
	}
	if !id.Expiry().Equal(time.Unix(1700000000, 0)) {
		t.Errorf("unexpected expiry %v", id.Expiry())
	}
	if !(Identity{}).Expiry().IsZero() {
		t.Error("expected zero expiry when claim is absent")
	}
}

func TestMutationState(t *testing.T) {
	var zero MutationState
	if got := zero.Normalized(); got != IdleMutation {
		t.Errorf("expected zero value to normalize to idle, got %+v", got)
	}
	if (MutationState{Status: MutationLoading}).Busy() != true {
		t.Error("expected loading to be busy")
	}
}

func TestSearchType(t *testing.T) {
	t.Run("Next cycles", func(t *testing.T) {
		if SearchGeneral.Next() != SearchInTitle || SearchInAuthor.Next() != SearchGeneral {
			t.Error("unexpected cycle order")
		}
	})

	t.Run("Parse", func(t *testing.T) {
		for in, want := range map[string]SearchType{"general": SearchGeneral, "Title": SearchInTitle, "inauthor": SearchInAuthor} {
			got, err := ParseSearchType(in)
			if err != nil || got != want {
				t.Errorf("ParseSearchType(%q) = %v, %v; want %v", in, got, err, want)
			}
		}
		if _, err := ParseSearchType("isbn"); err == nil {
			t.Error("expected error for unknown type")
		}
	})
}
