// Package debug renders indented text trees for the diagnostic dump tools.
package debug

import (
	"fmt"
	"strconv"
	"strings"
)

// TreeWriter accumulates an indented text rendition of a parsed definition
// tree, two spaces per depth level.
type TreeWriter struct {
	w strings.Builder
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{}
}

func (tw *TreeWriter) String() string {
	return tw.w.String()
}

// Line writes a formatted line at the given depth.
func (tw *TreeWriter) Line(depth int, format string, args ...any) {
	tw.indent(depth)
	fmt.Fprintf(&tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// Attr writes a "name: value" line with the value quoted. Empty values are
// skipped entirely so unset attributes do not clutter the dump.
func (tw *TreeWriter) Attr(depth int, name, value string) {
	if len(value) == 0 {
		return
	}
	tw.indent(depth)
	tw.w.WriteString(name)
	tw.w.WriteString(": ")
	tw.w.WriteString(strconv.Quote(value))
	tw.w.WriteByte('\n')
}

func (tw *TreeWriter) indent(depth int) {
	for range depth {
		tw.w.WriteString("  ")
	}
}
