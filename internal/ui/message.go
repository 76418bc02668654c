package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/mixtape/internal/queue"
	"github.com/desertthunder/mixtape/internal/tasks"
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
	MsgStateChanged MsgKind = iota
	MsgLoadProgress
	MsgLoadComplete
	MsgStoreClosed
)

// stateChangedMsg is the constructor for [MsgStateChanged]
func stateChangedMsg(s queue.State) Msg {
	return Msg{kind: MsgStateChanged, data: s}
}

// load messages carry the generation of the load that produced them
type loadProgress struct {
	gen    int
	update tasks.ProgressUpdate
}

// loadProgressMsg is the constructor for [MsgLoadProgress]
func loadProgressMsg(gen int, update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgLoadProgress, data: loadProgress{gen, update}}
}

type loadComplete struct {
	gen    int
	result *tasks.LoadResult
	err    error
}

// loadCompleteMsg is the constructor for [MsgLoadComplete]
func loadCompleteMsg(gen int, result *tasks.LoadResult, err error) Msg {
	return Msg{kind: MsgLoadComplete, data: loadComplete{gen, result, err}}
}

func storeClosedMsg() Msg {
	return Msg{kind: MsgStoreClosed}
}
