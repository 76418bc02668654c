package models

import (
	"fmt"
	"slices"
	"strings"
)

// PlaylistType is the kind of collection a [PlaylistInfo] was resolved from.
type PlaylistType int

const (
	PlaylistTypePlaylist PlaylistType = iota
	PlaylistTypeAlbum
	PlaylistTypeTrack
	PlaylistTypeVideo
)

func (t PlaylistType) String() string {
	switch t {
	case PlaylistTypeAlbum:
		return "album"
	case PlaylistTypeTrack:
		return "track"
	case PlaylistTypeVideo:
		return "video"
	default:
		return "playlist"
	}
}

func ParsePlaylistType(s string) (PlaylistType, error) {
	switch strings.ToLower(s) {
	case "playlist":
		return PlaylistTypePlaylist, nil
	case "album":
		return PlaylistTypeAlbum, nil
	case "track":
		return PlaylistTypeTrack, nil
	case "video":
		return PlaylistTypeVideo, nil
	}
	return PlaylistTypePlaylist, fmt.Errorf("unknown playlist type %q", s)
}

// PlaylistInfo is a provider-qualified collection of track ids.
type PlaylistInfo struct {
	Provider  Provider     `json:"provider"`
	Type      PlaylistType `json:"type"`
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Thumbnail Thumbnail    `json:"thumbnail"`
	ItemCount int          `json:"item_count"`
	MediaIDs  []string     `json:"media_ids"`
}

// WithMediaIDs returns a copy whose id list is replaced by ids.
func (p PlaylistInfo) WithMediaIDs(ids []string) PlaylistInfo {
	p.MediaIDs = slices.Clone(ids)
	p.ItemCount = len(ids)
	return p
}

// FlatMediaIDs tags each id with the playlist's provider.
func (p PlaylistInfo) FlatMediaIDs() []MediaID {
	out := make([]MediaID, len(p.MediaIDs))
	for i, id := range p.MediaIDs {
		out[i] = MediaID{Provider: p.Provider, ID: id}
	}
	return out
}

func (p PlaylistInfo) Ref() PlaylistRef {
	return PlaylistRef{Provider: p.Provider, Type: p.Type, ID: p.ID}
}

// Flatten concatenates every playlist's ids in playlist order.
func Flatten(playlists []PlaylistInfo) []MediaID {
	n := 0
	for _, p := range playlists {
		n += len(p.MediaIDs)
	}
	out := make([]MediaID, 0, n)
	for _, p := range playlists {
		out = append(out, p.FlatMediaIDs()...)
	}
	return out
}
