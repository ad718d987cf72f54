package models

// MutationStatus is the lifecycle of an add/remove action for one book.
type MutationStatus string

const (
	MutationIdle    MutationStatus = "idle"
	MutationLoading MutationStatus = "loading"
	MutationSuccess MutationStatus = "success"
	MutationError   MutationStatus = "error"
)

// MutationState is transient per-book feedback. The zero value reads as idle.
type MutationState struct {
	Status  MutationStatus `json:"status"`
	Message string         `json:"message,omitempty"`
}

// IdleMutation is the state reported for books with no recorded mutation.
var IdleMutation = MutationState{Status: MutationIdle}

// Normalized maps the zero value to [IdleMutation].
func (m MutationState) Normalized() MutationState {
	if m.Status == "" {
		return IdleMutation
	}
	return m
}

// Busy reports whether an action is in flight.
func (m MutationState) Busy() bool { return m.Status == MutationLoading }

// ShelfMutation identifies a volume to add to or remove from a shelf.
type ShelfMutation struct {
	BookID  string `json:"volumeId" validate:"required"`
	ShelfID string `json:"shelfId" validate:"required,numeric"`
}
