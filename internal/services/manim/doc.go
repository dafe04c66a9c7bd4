// Package manim wraps the manim command-line renderer: building the render
// invocation, streaming progress from its output, and locating the video it
// produced.
package manim
