package models

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidRef is returned for references that name no known provider collection.
var ErrInvalidRef = errors.New("invalid playlist reference")

// refParam is the query-string key carrying one reference per value.
const refParam = "p"

// PlaylistRef names a collection to load, e.g. spotify:album:ID or youtube:video:ID.
type PlaylistRef struct {
	Provider Provider
	Type     PlaylistType
	ID       string
}

func (r PlaylistRef) String() string {
	return r.Provider.String() + ":" + r.Type.String() + ":" + r.ID
}

// Valid reports whether the type exists for the provider.
func (r PlaylistRef) Valid() bool {
	if r.ID == "" {
		return false
	}
	switch r.Provider {
	case ProviderSpotify:
		return r.Type == PlaylistTypePlaylist || r.Type == PlaylistTypeAlbum || r.Type == PlaylistTypeTrack
	case ProviderYouTube:
		return r.Type == PlaylistTypePlaylist || r.Type == PlaylistTypeVideo
	}
	return false
}

// ParsePlaylistRef accepts provider:type:id references and Spotify or YouTube share URLs.
func ParsePlaylistRef(s string) (PlaylistRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PlaylistRef{}, fmt.Errorf("%w: empty", ErrInvalidRef)
	}

	var (
		ref PlaylistRef
		err error
	)
	if strings.Contains(s, "/") {
		ref, err = parseShareURL(s)
	} else {
		ref, err = parseURI(s)
	}
	if err != nil {
		return PlaylistRef{}, err
	}
	if !ref.Valid() {
		return PlaylistRef{}, fmt.Errorf("%w: %s", ErrInvalidRef, s)
	}
	return ref, nil
}

func parseURI(s string) (PlaylistRef, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return PlaylistRef{}, fmt.Errorf("%w: expected provider:type:id, got %q", ErrInvalidRef, s)
	}
	p, err := ParseProvider(parts[0])
	if err != nil {
		return PlaylistRef{}, fmt.Errorf("%w: %v", ErrInvalidRef, err)
	}
	t, err := ParsePlaylistType(parts[1])
	if err != nil {
		return PlaylistRef{}, fmt.Errorf("%w: %v", ErrInvalidRef, err)
	}
	return PlaylistRef{Provider: p, Type: t, ID: parts[2]}, nil
}

func parseShareURL(s string) (PlaylistRef, error) {
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return PlaylistRef{}, fmt.Errorf("%w: %v", ErrInvalidRef, err)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })

	switch host {
	case "open.spotify.com":
		// Localized links carry a leading intl-xx segment.
		if len(segments) > 0 && strings.HasPrefix(segments[0], "intl-") {
			segments = segments[1:]
		}
		if len(segments) < 2 {
			break
		}
		t, err := ParsePlaylistType(segments[0])
		if err != nil {
			return PlaylistRef{}, fmt.Errorf("%w: %v", ErrInvalidRef, err)
		}
		return PlaylistRef{Provider: ProviderSpotify, Type: t, ID: segments[1]}, nil

	case "youtu.be":
		if len(segments) == 1 {
			return PlaylistRef{Provider: ProviderYouTube, Type: PlaylistTypeVideo, ID: segments[0]}, nil
		}

	case "youtube.com", "music.youtube.com", "m.youtube.com":
		q := u.Query()
		if len(segments) == 1 && segments[0] == "playlist" && q.Get("list") != "" {
			return PlaylistRef{Provider: ProviderYouTube, Type: PlaylistTypePlaylist, ID: q.Get("list")}, nil
		}
		if len(segments) == 1 && segments[0] == "watch" && q.Get("v") != "" {
			return PlaylistRef{Provider: ProviderYouTube, Type: PlaylistTypeVideo, ID: q.Get("v")}, nil
		}
	}
	return PlaylistRef{}, fmt.Errorf("%w: unrecognized URL %s", ErrInvalidRef, s)
}

// EncodeRefs renders refs as a query string, in order.
func EncodeRefs(refs []PlaylistRef) string {
	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = refParam + "=" + url.QueryEscape(r.String())
	}
	return strings.Join(parts, "&")
}

// DecodeRefs parses a query string, with or without a leading '?', or a full URL carrying one.
func DecodeRefs(s string) ([]PlaylistRef, error) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[i+1:]
	}
	q, err := url.ParseQuery(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRef, err)
	}

	values := q[refParam]
	refs := make([]PlaylistRef, 0, len(values))
	for _, v := range values {
		ref, err := ParsePlaylistRef(v)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// ParseRefs parses each input as a single reference or, when it carries a p= query, as an encoded
// selection. Inputs may also hold several references separated by commas or whitespace.
func ParseRefs(inputs ...string) ([]PlaylistRef, error) {
	var refs []PlaylistRef
	for _, in := range inputs {
		for field := range strings.FieldsFuncSeq(in, isRefSeparator) {
			if isEncodedSelection(field) {
				decoded, err := DecodeRefs(field)
				if err != nil {
					return nil, err
				}
				refs = append(refs, decoded...)
				continue
			}
			ref, err := ParsePlaylistRef(field)
			if err != nil {
				return nil, err
			}
			refs = append(refs, ref)
		}
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: none given", ErrInvalidRef)
	}
	return refs, nil
}

func isRefSeparator(r rune) bool {
	return r == ',' || r == ' ' || r == '\t' || r == '\n'
}

func isEncodedSelection(s string) bool {
	key := refParam + "="
	return strings.HasPrefix(s, key) || strings.Contains(s, "?"+key) || strings.Contains(s, "&"+key)
}
