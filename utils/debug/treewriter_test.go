package debug

import (
	"testing"
)

func TestTreeWriterLine(t *testing.T) {
	tests := []struct {
		name   string
		depth  int
		format string
		args   []any
		want   string
	}{
		{
			name:   "no depth",
			depth:  0,
			format: "record Pose",
			args:   nil,
			want:   "record Pose\n",
		},
		{
			name:   "depth 1",
			depth:  1,
			format: "fixed_field Speed",
			args:   nil,
			want:   "  fixed_field Speed\n",
		},
		{
			name:   "depth 2",
			depth:  2,
			format: "scale_range",
			args:   nil,
			want:   "    scale_range\n",
		},
		{
			name:   "with formatting",
			depth:  1,
			format: "message %s %s",
			args:   []any{"ReportPose", "0x4403"},
			want:   "  message ReportPose 0x4403\n",
		},
		{
			name:   "numeric args",
			depth:  0,
			format: "%d messages",
			args:   []any{5},
			want:   "5 messages\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := NewTreeWriter()
			tw.Line(tt.depth, tt.format, tt.args...)
			got := tw.String()
			if got != tt.want {
				t.Errorf("Line() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTreeWriterAttr(t *testing.T) {
	tests := []struct {
		name  string
		depth int
		label string
		value string
		want  string
	}{
		{
			name:  "empty value skipped",
			depth: 0,
			label: "field_units",
			value: "",
			want:  "",
		},
		{
			name:  "no depth",
			depth: 0,
			label: "field_type",
			value: "unsigned short integer",
			want:  "field_type: \"unsigned short integer\"\n",
		},
		{
			name:  "depth 1",
			depth: 1,
			label: "field_units",
			value: "meter per second",
			want:  "  field_units: \"meter per second\"\n",
		},
		{
			name:  "depth 2",
			depth: 2,
			label: "interpretation",
			value: "measured speed",
			want:  "    interpretation: \"measured speed\"\n",
		},
		{
			name:  "value with quotes",
			depth: 0,
			label: "interpretation",
			value: `the "reserved" range`,
			want:  "interpretation: \"the \\\"reserved\\\" range\"\n",
		},
		{
			name:  "value with newline",
			depth: 0,
			label: "interpretation",
			value: "line1\nline2",
			want:  "interpretation: \"line1\\nline2\"\n",
		},
		{
			name:  "value with tab",
			depth: 0,
			label: "const_value",
			value: "a\tb",
			want:  "const_value: \"a\\tb\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := NewTreeWriter()
			tw.Attr(tt.depth, tt.label, tt.value)
			got := tw.String()
			if got != tt.want {
				t.Errorf("Attr() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTreeWriterTree(t *testing.T) {
	tw := NewTreeWriter()
	tw.Line(0, "message_def ReportPose")
	tw.Attr(1, "message_id", "0x4403")
	tw.Line(1, "record PoseRec")
	tw.Line(2, "fixed_field Speed")
	tw.Attr(3, "field_type", "unsigned integer")
	tw.Attr(3, "field_units", "")
	tw.Line(2, "fixed_field Heading")

	got := tw.String()
	want := "message_def ReportPose\n" +
		"  message_id: \"0x4403\"\n" +
		"  record PoseRec\n" +
		"    fixed_field Speed\n" +
		"      field_type: \"unsigned integer\"\n" +
		"    fixed_field Heading\n"

	if got != want {
		t.Errorf("tree rendition:\ngot:\n%s\nwant:\n%s", got, want)
	}
}
