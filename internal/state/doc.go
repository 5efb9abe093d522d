// Package state provides the SQLite-backed record store for tracked
// echo events.
package state
