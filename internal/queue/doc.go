// Package queue persists render history in SQLite. Every submitted render
// gets a row that moves from pending through rendering to a terminal status
// mirroring the render outcome.
package queue
