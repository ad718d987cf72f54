package tasks

import (
	"fmt"

	"github.com/desertthunder/bkx/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
}

// Operation phase enumeration
type Phase int

const (
	FetchShelf Phase = iota
	ExportShelf
	WriteManifest
)

func (p Phase) String() string {
	switch p {
	case FetchShelf:
		return "fetch_shelf"
	case ExportShelf:
		return "export_shelf"
	case WriteManifest:
		return "write_manifest"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchShelfUpdate(step, total int, shelf models.Shelf) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchShelf,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching: %s...", step, total, shelf.Label()),
	}
}

func exportCompletedUpdate(step, total int, res ShelfExportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportShelf,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d books)", step, total, res.Title, res.Volumes),
	}
}

func exportFailedUpdate(step, total int, res ShelfExportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportShelf,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %s", step, total, res.Title, res.Error),
	}
}

func manifestUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteManifest,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Writing manifest to %s...", path),
	}
}
