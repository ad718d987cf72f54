package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/bkx/internal/models"
	"github.com/desertthunder/bkx/internal/shared"
)

var (
	_ list.Item = bookItem{}
	_ list.Item = shelfItem{}
	_ list.Item = volumeItem{}
)

const blurbLength = 120

// mutationNote renders a non-idle mutation state as a suffix.
func mutationNote(state models.MutationState) string {
	switch state.Status {
	case models.MutationLoading:
		return " • Saving…"
	case models.MutationSuccess, models.MutationError:
		return " • " + state.Message
	default:
		return ""
	}
}

// bookItem is a search result card.
type bookItem struct {
	book  models.BookSummary
	state models.MutationState
}

func (i bookItem) FilterValue() string { return i.book.Title }
func (i bookItem) Title() string       { return i.book.Title }
func (i bookItem) Description() string {
	desc := shared.JoinNonEmpty(" • ", i.book.AuthorLine(), shared.Truncate(i.book.Blurb(), blurbLength))
	return desc + mutationNote(i.state)
}

// shelfItem is a shelf button in the library pane or the add picker.
type shelfItem struct {
	shelf models.Shelf
}

func (i shelfItem) FilterValue() string { return i.shelf.DisplayTitle() }
func (i shelfItem) Title() string       { return i.shelf.Label() }
func (i shelfItem) Description() string {
	if i.shelf.Access == "" {
		return fmt.Sprintf("shelf %d", i.shelf.ID)
	}
	return fmt.Sprintf("shelf %d • %s", i.shelf.ID, i.shelf.Access)
}

// volumeItem is a book on the open shelf.
type volumeItem struct {
	volume models.Volume
	state  models.MutationState
}

func (i volumeItem) FilterValue() string { return i.volume.Title() }
func (i volumeItem) Title() string {
	if t := i.volume.Title(); t != "" {
		return t
	}
	return "Untitled"
}
func (i volumeItem) Description() string {
	return i.volume.AuthorLine() + mutationNote(i.state)
}
