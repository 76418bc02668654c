package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/mixtape/internal/formatter"
)

var _ list.Item = queueItem{}

// queueItem wraps [formatter.Row] to implement [list.Item].
type queueItem struct {
	row formatter.Row
}

func (i queueItem) FilterValue() string { return i.row.Title }

func (i queueItem) Title() string {
	if i.row.Current {
		return formatter.CursorMarker + " " + i.row.Title
	}
	return i.row.Title
}

func (i queueItem) Description() string {
	desc := fmt.Sprintf("%s • %s", formatter.FormatDuration(i.row.Duration), i.row.ID.Provider)
	if i.row.Artist != "" {
		desc = fmt.Sprintf("%s • %s", i.row.Artist, desc)
	}
	return desc
}

func queueItems(rows []formatter.Row) []list.Item {
	items := make([]list.Item, len(rows))
	for i, r := range rows {
		items[i] = queueItem{row: r}
	}
	return items
}
