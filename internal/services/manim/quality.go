package manim

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Quality describes one render quality preset. Flag is the manim CLI flag
// and Dir is the directory manim writes the video into for that preset.
type Quality struct {
	Name       string
	Flag       string
	Dir        string
	Resolution string
}

var qualities = []Quality{
	{Name: "low", Flag: "-ql", Dir: "480p15", Resolution: "480p"},
	{Name: "medium", Flag: "-qm", Dir: "720p30", Resolution: "720p"},
	{Name: "high", Flag: "-qh", Dir: "1080p60", Resolution: "1080p"},
	{Name: "extra", Flag: "-qp", Dir: "1440p60", Resolution: "1440p"},
	{Name: "ultra", Flag: "-qk", Dir: "2160p60", Resolution: "2160p"},
}

var titleCaser = cases.Title(language.English)

// Qualities returns every preset ordered from fastest to slowest.
func Qualities() []Quality {
	out := make([]Quality, len(qualities))
	copy(out, qualities)
	return out
}

// QualityByName resolves a preset by its lowercase name.
func QualityByName(name string) (Quality, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, q := range qualities {
		if q.Name == name {
			return q, true
		}
	}
	return Quality{}, false
}

// Label renders a human readable label such as "Medium (720p)".
func (q Quality) Label() string {
	return fmt.Sprintf("%s (%s)", titleCaser.String(q.Name), q.Resolution)
}
