// Package synchronizer keeps the queue state and the provider players in agreement.
//
// Each tick compares three values per field: what the store holds, what the active adapter reports and what
// both agreed on at the previous tick. A change on the store side is pushed down to the adapter; a change on
// the adapter side is dispatched to the store. Snapshots are folded back only while the adapter has the
// current track loaded, and never for a field the user is dragging (progress while seeking, volume while
// adjusting).
//
// Adapters of inactive providers are paused and rewound so nothing plays in the background after a switch.
package synchronizer
