package manim

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const partialMovieDir = "partial_movie_files"

// LocateArtifact finds the rendered video under mediaDir. The well-known
// quality output paths are probed first; when none match, the newest mp4
// anywhere under mediaDir wins, skipping manim's partial movie segments.
// The second return is false when no video exists.
func LocateArtifact(mediaDir, outputName string) (string, bool) {
	if outputName == "" {
		outputName = DefaultOutputName
	}

	// Manim nests output under videos/<script stem>/<quality dir>. The
	// script is always written as scene.py, so the stem is fixed.
	probes := make([]string, 0, len(qualities)+1)
	for _, q := range qualities {
		probes = append(probes, filepath.Join(mediaDir, "videos", "scene", q.Dir, outputName))
	}
	probes = append(probes, filepath.Join(mediaDir, outputName))

	for _, probe := range probes {
		if info, err := os.Stat(probe); err == nil && !info.IsDir() {
			return probe, true
		}
	}

	return newestVideo(mediaDir)
}

func newestVideo(root string) (string, bool) {
	var newest string
	var newestMod time.Time

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == partialMovieDir {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".mp4") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = path
			newestMod = info.ModTime()
		}
		return nil
	})

	return newest, newest != ""
}
