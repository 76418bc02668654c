// Package player adapts each provider's playback SDK to the uniform [Adapter] surface the synchronizer drives.
//
// Each adapter owns exactly one SDK instance. Loads are serialized by generation: a newer [Adapter.Load]
// supersedes an in-flight readiness poll, and the superseded call returns nil without touching state.
package player
