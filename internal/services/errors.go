package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/zmb3/spotify/v2"
)

// ClassifySpotifyError maps a Spotify Web API failure onto the shared taxonomy:
// 401 becomes [shared.ErrUnauthorized], a 404 about the device becomes [shared.ErrDeviceNotFound] and
// any other status becomes a [*shared.UpstreamError]. Errors without a status are returned unchanged.
func ClassifySpotifyError(err error) error {
	if err == nil {
		return nil
	}

	status, msg, ok := spotifyStatus(err)
	if !ok {
		return err
	}

	switch {
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", shared.ErrUnauthorized, msg)
	case status == http.StatusNotFound && strings.Contains(strings.ToLower(msg), "device"):
		return fmt.Errorf("%w: %s", shared.ErrDeviceNotFound, msg)
	default:
		return &shared.UpstreamError{Provider: "spotify", Status: status, Body: msg}
	}
}

func spotifyStatus(err error) (int, string, bool) {
	var e spotify.Error
	if errors.As(err, &e) {
		return e.Status, e.Message, true
	}
	var pe *spotify.Error
	if errors.As(err, &pe) && pe != nil {
		return pe.Status, pe.Message, true
	}
	return 0, "", false
}
