// idldump reads a single interface definition document and prints the parsed
// tree: document identity, referenced declaration sets, shared declarations
// and the field tree of every message definition. Useful for checking what
// the schema generator will see in a document without running a generation
// pass. References are printed verbatim, nothing is resolved.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"jsg/jsidl"
	"jsg/utils/debug"
)

func main() {
	messages := flag.Bool("messages", false, "print message definitions only, skip shared declarations")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: idldump [-messages] <file.xml>\n\n")
		fmt.Fprintf(os.Stderr, "Reads an interface definition document and prints the parsed tree.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	path := flag.Arg(0)
	doc, err := jsidl.NewCache(zap.NewNop()).Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	if _, err := os.Stdout.WriteString(render(doc, *messages)); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		os.Exit(1)
	}
}

func render(d *jsidl.Document, messagesOnly bool) string {
	tw := debug.NewTreeWriter()

	tw.Line(0, "%s %s", d.RootTag, d.Name)
	tw.Attr(1, "id", d.ID)
	tw.Attr(1, "version", d.Version)

	for _, sr := range d.TypeSetRefs {
		tw.Line(1, "type set %s (%s %s)", sr.Name, sr.ID, sr.Version)
	}
	for _, sr := range d.ConstSetRefs {
		tw.Line(1, "const set %s (%s %s)", sr.Name, sr.ID, sr.Version)
	}

	if !messagesOnly {
		for _, n := range d.Declarations {
			if coveredElsewhere(n.Kind) {
				continue
			}
			renderNode(tw, 1, n)
		}
	}

	for _, m := range d.Messages {
		label := fmt.Sprintf("message %s %s", m.Name, m.MessageID)
		if m.IsCommand {
			label += " command"
		}
		tw.Line(1, "%s", label)
		tw.Attr(2, "description", m.Description)
		renderSection(tw, 2, "header", m.Header)
		renderSection(tw, 2, "body", m.Body)
		renderSection(tw, 2, "footer", m.Footer)
	}
	return tw.String()
}

// coveredElsewhere filters root children which the message and set reference
// renditions already show, everything is a declaration as far as the parser
// is concerned.
func coveredElsewhere(kind jsidl.NodeKind) bool {
	switch kind {
	case "message_def", "message_set", "declared_type_set_ref", "declared_const_set_ref":
		return true
	}
	return false
}

func renderSection(tw *debug.TreeWriter, depth int, name string, sec jsidl.Section) {
	if len(sec.Ref) > 0 {
		tw.Line(depth, "%s ref %s", name, sec.Ref)
		return
	}
	if len(sec.Nodes) == 0 {
		return
	}
	tw.Line(depth, "%s", name)
	for _, n := range sec.Nodes {
		renderNode(tw, depth+1, n)
	}
}

func renderNode(tw *debug.TreeWriter, depth int, n *jsidl.Node) {
	label := string(n.Kind)
	if len(n.Name) > 0 {
		label += " " + n.Name
	}
	if n.Optional {
		label += " optional"
	}
	tw.Line(depth, "%s", label)

	for _, a := range [...]struct{ name, value string }{
		{"field_type", n.FieldType},
		{"field_type_unsigned", n.FieldTypeUnsigned},
		{"field_units", n.FieldUnits},
		{"field_format", n.FieldFormat},
		{"index", n.Index},
		{"string_length", n.StringLength},
		{"size", n.Size},
		{"min_count", n.MinCount},
		{"max_count", n.MaxCount},
		{"declared_type_ref", n.TypeRef},
		{"enum_index", n.EnumIndex},
		{"enum_const", n.EnumConst},
		{"lower_limit", n.LowerLimit},
		{"upper_limit", n.UpperLimit},
		{"real_lower_limit", n.RealLowerLimit},
		{"real_upper_limit", n.RealUpperLimit},
		{"from_index", n.FromIndex},
		{"to_index", n.ToIndex},
		{"const_value", n.ConstValue},
		{"const_type", n.ConstType},
		{"interpretation", n.Interpretation},
	} {
		tw.Attr(depth+1, a.name, a.value)
	}

	for _, c := range n.Children {
		renderNode(tw, depth+1, c)
	}
}
