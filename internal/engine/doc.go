// Package engine keeps the console's local copy of the flight collection in
// step with the record store.
//
// The store is authoritative. Every collection it pushes replaces the local
// copy wholesale, including over a delete the store has not reflected yet.
// Creates and updates are not applied locally; they become visible when the
// store pushes them back.
//
// Deletes are optimistic once confirmed: the record leaves the local copy
// immediately and sits in a single undo slot for a short window. Undo
// re-creates the record from the slot, so it comes back with a new ID.
//
// The engine guards its state with one mutex and never holds it across a
// store call. Pushed collections are applied by a single goroutine in the
// order the store delivers them.
package engine
