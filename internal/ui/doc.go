// Package ui implements the terminal player using bubbletea's Elm architecture.
//
// A [Model] mounts one session: it subscribes to the [queue.Store], runs the synchronizer for as long
// as the program is alive and cancels it on quit. Key presses become queue intents; the synchronizer
// turns the resulting state into adapter calls, so the view never talks to a player directly.
//
// The playlist editor takes references or share URLs, loads them through the [tasks.Loader] with a
// spinner showing progress, and installs the result. The key manager expands the help view.
package ui
