package scenario

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// sequenceDiff renders the edit from want to got one event id at a time:
// unchanged ids plain, missing ids prefixed with '-', unexpected ones with '+'.
func sequenceDiff(want, got []string) string {
	dmp := diffmatchpatch.New()

	// One id per line so the diff works on whole ids.
	a, b, lines := dmp.DiffLinesToChars(joinLines(want), joinLines(got))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var parts []string
	for _, d := range diffs {
		prefix := ""
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, id := range strings.Split(d.Text, "\n") {
			if id != "" {
				parts = append(parts, prefix+id)
			}
		}
	}
	return strings.Join(parts, " ")
}

func joinLines(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return strings.Join(ids, "\n") + "\n"
}
