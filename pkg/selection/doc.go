// Package selection implements the model-selection rules of the studio.
//
// A selection is an ordered list of model IDs, oldest first. Each [Mode]
// caps how many models may be selected at once, and every transition in
// this package returns a selection that already satisfies the cap of the
// mode it was computed for. Eviction is always oldest-first.
//
// The functions are pure: they never modify the slices they are given.
package selection
