package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/bkx/internal/session"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSessionEvent MsgKind = iota
	MsgSearchDone
	MsgShelfLoaded
	MsgMutationDone
	MsgLoginDone
)

type sessionEvent struct {
	event session.Event
	open  bool
}

type mutationResult struct {
	bookID string
	err    error
}

// sessionEventMsg is the constructor for [MsgSessionEvent]; open is false once the subscription ends.
func sessionEventMsg(ev session.Event, open bool) Msg {
	return Msg{kind: MsgSessionEvent, data: sessionEvent{ev, open}}
}

// searchDoneMsg is the constructor for [MsgSearchDone]
func searchDoneMsg(err error) Msg {
	return Msg{kind: MsgSearchDone, data: err}
}

// shelfLoadedMsg is the constructor for [MsgShelfLoaded]
func shelfLoadedMsg(err error) Msg {
	return Msg{kind: MsgShelfLoaded, data: err}
}

// mutationDoneMsg is the constructor for [MsgMutationDone]
func mutationDoneMsg(bookID string, err error) Msg {
	return Msg{kind: MsgMutationDone, data: mutationResult{bookID, err}}
}

// loginDoneMsg is the constructor for [MsgLoginDone]
func loginDoneMsg() Msg {
	return Msg{kind: MsgLoginDone}
}

func (m Msg) err() error {
	switch d := m.data.(type) {
	case error:
		return d
	case mutationResult:
		return d.err
	default:
		return nil
	}
}
