// Package services implements the [Fetcher] boundary for Spotify and YouTube.
//
// # Fetchers
//
// A [Fetcher] turns a [models.PlaylistRef] into an ordered list of track ids and looks up [models.MediaInfo]
// for ids in batches of 50. [Fetchers] routes each reference to the fetcher of its provider.
//
// # Spotify
//
// [SpotifyService] wraps the zmb3 Web API client. Metadata calls use the client credentials grant unless a
// user token source is installed with [SpotifyService.UseTokenSource]. The service also carries the
// authorization code config used by the login callback and the token refresher.
//
// # YouTube
//
// [YouTubeService] wraps the generated Data API v3 client and authenticates with an API key. Durations come
// back as ISO 8601 strings and are converted to milliseconds.
//
// # Error Handling
//
// Provider failures are mapped onto the shared taxonomy by [ClassifySpotifyError] and [classifyGoogleError]:
//   - [shared.ErrUnauthorized] : credentials rejected
//   - [shared.ErrDeviceNotFound] : the playback device is gone
//   - [shared.ErrPlaylistNotFound] : the collection does not exist
//   - [*shared.UpstreamError] : anything else with a status, status and body kept
//
// Both services are rate limited with golang.org/x/time/rate.
package services
