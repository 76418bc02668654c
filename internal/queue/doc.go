// Package queue holds the authoritative playback state of one player session.
//
// [Reducer.Reduce] is a pure transition function over [State]; it performs no I/O and treats every intent
// it does not recognise as a no-op. [Store] owns a State for the lifetime of a session, serializes
// [Store.Dispatch] calls and fans changes out to subscribers.
//
// Shuffling keeps the current track: after a reshuffle with shuffle on, the track that was playing is
// moved to position 0 and the cursor follows it. With shuffle off the cursor moves to the track's
// position in playlist order. The cursor only falls back to a clamp when the track is gone.
package queue
