package models

import (
	"fmt"
	"maps"
	"strings"
)

// Provider identifies a media source with its own player and id namespace.
type Provider int

const (
	ProviderNone Provider = iota
	ProviderYouTube
	ProviderSpotify
)

// Providers lists every real provider, in display order.
var Providers = []Provider{ProviderYouTube, ProviderSpotify}

func (p Provider) String() string {
	switch p {
	case ProviderYouTube:
		return "youtube"
	case ProviderSpotify:
		return "spotify"
	default:
		return "none"
	}
}

// ParseProvider accepts the lower-case names produced by [Provider.String].
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "youtube", "yt":
		return ProviderYouTube, nil
	case "spotify", "sp":
		return ProviderSpotify, nil
	case "none", "":
		return ProviderNone, nil
	}
	return ProviderNone, fmt.Errorf("unknown provider %q", s)
}

// MediaID is the unit of queue addressing. The zero value is the "nothing playing" sentinel.
type MediaID struct {
	Provider Provider
	ID       string
}

// NoMedia is the sentinel for an empty queue.
var NoMedia = MediaID{}

func (m MediaID) IsNone() bool {
	return m.Provider == ProviderNone
}

func (m MediaID) String() string {
	if m.IsNone() {
		return "none"
	}
	return m.Provider.String() + ":" + m.ID
}

// ParseMediaID reverses [MediaID.String].
func ParseMediaID(s string) (MediaID, error) {
	if s == "none" || s == "" {
		return NoMedia, nil
	}
	name, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return NoMedia, fmt.Errorf("malformed media id %q", s)
	}
	p, err := ParseProvider(name)
	if err != nil {
		return NoMedia, err
	}
	if p == ProviderNone {
		return NoMedia, fmt.Errorf("malformed media id %q", s)
	}
	return MediaID{Provider: p, ID: id}, nil
}

func (m MediaID) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *MediaID) UnmarshalText(b []byte) error {
	parsed, err := ParseMediaID(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Thumbnail is an image reference. Width and Height are 0 when the provider does not report them.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// MediaInfo is the immutable metadata of one track. DurationMS is 0 when unknown.
type MediaInfo struct {
	Title      string    `json:"title"`
	Authors    []string  `json:"authors"`
	Thumbnail  Thumbnail `json:"thumbnail"`
	DurationMS int       `json:"duration_ms"`
}

// Artist joins the authors for display.
func (m MediaInfo) Artist() string {
	return strings.Join(m.Authors, ", ")
}

// MediaInfoMap holds metadata per provider, then per id.
type MediaInfoMap map[Provider]map[string]MediaInfo

func (m MediaInfoMap) Get(id MediaID) (MediaInfo, bool) {
	info, ok := m[id.Provider][id.ID]
	return info, ok
}

// Set stores a complete entry, replacing any previous one.
func (m MediaInfoMap) Set(id MediaID, info MediaInfo) {
	inner, ok := m[id.Provider]
	if !ok {
		inner = map[string]MediaInfo{}
		m[id.Provider] = inner
	}
	inner[id.ID] = info
}

func (m MediaInfoMap) Len() int {
	n := 0
	for _, inner := range m {
		n += len(inner)
	}
	return n
}

func (m MediaInfoMap) Clone() MediaInfoMap {
	out := make(MediaInfoMap, len(m))
	for p, inner := range m {
		out[p] = maps.Clone(inner)
	}
	return out
}

// Merge returns a copy of m with every entry of other added. Entries in other replace those in m whole.
func (m MediaInfoMap) Merge(other MediaInfoMap) MediaInfoMap {
	out := m.Clone()
	for p, inner := range other {
		for id, info := range inner {
			out.Set(MediaID{Provider: p, ID: id}, info)
		}
	}
	return out
}

// Missing returns the ids from the list that have no entry.
func (m MediaInfoMap) Missing(ids []MediaID) []MediaID {
	var out []MediaID
	for _, id := range ids {
		if _, ok := m.Get(id); !ok {
			out = append(out, id)
		}
	}
	return out
}
