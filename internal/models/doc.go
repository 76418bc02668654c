// Package models defines the value types shared by the queue, the provider players and the metadata fetchers.
//
// Identity:
//   - [Provider] : closed set of media sources, [ProviderNone] marks "nothing playing"
//   - [MediaID] : provider-qualified track key, compared by value
//
// Metadata:
//   - [MediaInfo] : per-track title, authors, thumbnail and duration ([MediaInfoMap] groups them by provider)
//   - [PlaylistInfo] : a provider collection whose MediaIDs are only ever replaced wholesale
//
// Selection:
//   - [PlaylistRef] : what a user picks, parsed from URIs or share URLs and carried in a query string
package models
