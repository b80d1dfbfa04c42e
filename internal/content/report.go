package content

import (
	"fmt"
	"strings"
)

// Issue is one recoverable problem found while loading. The item named by
// Path was skipped, or, for warnings about unknown groups, kept as written.
type Issue struct {
	File string
	// Path locates the item, e.g. "rules.ocean.night" or "entries.cod".
	Path string
	Err  error
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %v", i.File, i.Path, i.Err)
}

// Report summarizes one load.
type Report struct {
	Files   []string
	Entries int
	// Rules counts every loaded rule node, children included.
	Rules   int
	Effects int
	Issues  []Issue
}

// OK reports whether the load produced no issues.
func (r *Report) OK() bool { return len(r.Issues) == 0 }

// String renders a one-paragraph human summary.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d files, %d entries, %d rule nodes, %d effects, %d issues",
		len(r.Files), r.Entries, r.Rules, r.Effects, len(r.Issues))
	for _, i := range r.Issues {
		b.WriteString("\n  ")
		b.WriteString(i.String())
	}
	return b.String()
}
