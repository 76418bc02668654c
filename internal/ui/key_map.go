package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the player.
type keyMap struct {
	toggle    key.Binding
	next      key.Binding
	previous  key.Binding
	up        key.Binding
	down      key.Binding
	playAt    key.Binding
	forward   key.Binding
	rewind    key.Binding
	louder    key.Binding
	quieter   key.Binding
	mute      key.Binding
	shuffle   key.Binding
	repeat    key.Binding
	editor    key.Binding
	keyMgr    key.Binding
	back      key.Binding
	quit      key.Binding
	submitRef key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		toggle:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		next:      key.NewBinding(key.WithKeys("n", "l"), key.WithHelp("n", "next")),
		previous:  key.NewBinding(key.WithKeys("p", "h"), key.WithHelp("p", "previous")),
		up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		playAt:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play selected")),
		forward:   key.NewBinding(key.WithKeys("right", "."), key.WithHelp("→", "+5s")),
		rewind:    key.NewBinding(key.WithKeys("left", ","), key.WithHelp("←", "-5s")),
		louder:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
		quieter:   key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "volume down")),
		mute:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mute")),
		shuffle:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "shuffle")),
		repeat:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "repeat")),
		editor:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit playlists")),
		keyMgr:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "keys")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		submitRef: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "load")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.toggle, k.next, k.previous, k.keyMgr, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.toggle, k.next, k.previous, k.playAt},
		{k.up, k.down, k.forward, k.rewind},
		{k.louder, k.quieter, k.mute},
		{k.shuffle, k.repeat, k.editor, k.quit},
	}
}
