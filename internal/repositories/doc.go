// Package repositories implements SQLite persistence for the player.
//
// Key Implementations:
//   - [MediaInfoRepository] : track metadata cache keyed by provider and id
//   - [CookieRepository] : credential cookies kept between CLI runs
//
// The schema comes from the migrations embedded in the shared package, applied by [shared.OpenDatabase].
package repositories
