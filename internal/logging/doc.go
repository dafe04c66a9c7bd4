// Package logging wires slog with a human-readable console handler, a JSON
// handler for machine consumption, and helpers shared by every component.
package logging
