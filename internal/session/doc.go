// Package session keeps Spotify credentials and guards every remote control call with them.
//
// Credentials live in two cookies, accessToken (with an expiry) and refreshToken (without). Their
// presence derives a [TokenState]:
//   - [NoSession] : no refresh token
//   - [Stale] : refresh token only, or an expired access token
//   - [Active] : both present and unexpired
//
// [Session.AccessToken] refreshes a stale session before returning. [Session.Do] clears both cookies when a
// call fails authentication. [Player.PlayTrack] retries a bounded number of times when the playback device
// is not found, re-registering the device between attempts.
package session
