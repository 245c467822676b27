package generate

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"jsg/jsidl"
)

// maxDepth caps field tree expansion. Declared references and payload
// formats can point back at themselves, which otherwise recurses forever.
const maxDepth = 100

// override carries name, comment and optionality from a declared_* reference
// site. When present it replaces the corresponding values of the resolved
// declaration entirely.
type override struct {
	name     string
	comment  string
	optional bool
}

func (g *generator) siteValues(n *jsidl.Node, ov *override) (string, string, bool) {
	if ov != nil {
		return ov.name, ov.comment, ov.optional
	}
	return n.Name, nodeComment(n), n.Optional
}

func (g *generator) translateNodes(nodes []*jsidl.Node, parent container, doc *jsidl.Document, depth int) error {
	for _, n := range nodes {
		if err := g.translateNode(n, parent, doc, depth, nil); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) translateNode(n *jsidl.Node, parent container, doc *jsidl.Document, depth int, ov *override) error {
	if depth > maxDepth {
		return fmt.Errorf("field tree too deep at %q, assuming reference cycle", n.Name)
	}

	// Every named element is remembered so encapsulated payloads can refer
	// to formats seen earlier in the run.
	if len(n.Name) > 0 {
		g.formats[n.Name] = knownFormat{node: n, doc: doc}
	}

	switch n.Kind {
	case jsidl.KindArray:
		return g.translateArray(n, parent, doc, depth, ov)
	case jsidl.KindRecord, jsidl.KindSequence:
		return g.translateRecord(n, parent, doc, depth, ov)
	case jsidl.KindBitField:
		return g.translateBitField(n, parent, doc, ov)
	case jsidl.KindFixedField:
		return g.translateFixedField(n, parent, doc, ov)
	case jsidl.KindFixedLengthString:
		return g.translateFixedLengthString(n, parent, doc, ov)
	case jsidl.KindList:
		return g.translateList(n, parent, doc, depth, ov)
	case jsidl.KindPresenceVector:
		g.translatePresenceVector(n, parent)
		return nil
	case jsidl.KindVariableField:
		return g.translateVariableField(n, parent, doc)
	case jsidl.KindVariableFormatField:
		return g.translateVariableFormatField(n, parent, doc, depth)
	case jsidl.KindVariableLengthField:
		return g.translateVariableLengthField(n, parent, doc, depth)
	case jsidl.KindVariableLengthStr:
		return g.translateVariableLengthString(n, parent, doc, ov)
	case jsidl.KindVariant:
		return g.translateVariant(n, parent, doc, depth)
	case jsidl.KindDeclaredArray, jsidl.KindDeclaredBitField, jsidl.KindDeclaredFixedField,
		jsidl.KindDeclaredList, jsidl.KindDeclaredRecord, jsidl.KindDeclaredVarLenStr:
		return g.translateDeclared(n, parent, doc, depth)
	}

	g.log.Info("Skipped element, no translation implemented",
		zap.String("kind", string(n.Kind)),
		zap.String("message", g.curName),
		zap.String("file", doc.Path))
	return &UnsupportedKindError{Kind: n.Kind}
}

// translateDeclared resolves a declared_* reference and translates the
// target with the reference site's name, comment and optionality. The
// expansion counts against the depth limit so reference cycles terminate.
func (g *generator) translateDeclared(n *jsidl.Node, parent container, doc *jsidl.Document, depth int) error {
	target := declaredTargets[n.Kind]
	resolved, rdoc, err := g.resolveType(n.TypeRef, target, doc)
	if err != nil {
		return err
	}
	ov := &override{name: n.Name, comment: nodeComment(n), optional: n.Optional}

	switch target {
	case jsidl.KindArray:
		return g.translateArray(resolved, parent, rdoc, depth+1, ov)
	case jsidl.KindBitField:
		return g.translateBitField(resolved, parent, rdoc, ov)
	case jsidl.KindFixedField:
		return g.translateFixedField(resolved, parent, rdoc, ov)
	case jsidl.KindList:
		return g.translateList(resolved, parent, rdoc, depth+1, ov)
	case jsidl.KindRecord:
		return g.translateRecord(resolved, parent, rdoc, depth+1, ov)
	case jsidl.KindVariableLengthStr:
		return g.translateVariableLengthString(resolved, parent, rdoc, ov)
	}
	return &UnsupportedKindError{Kind: n.Kind}
}

var declaredTargets = map[jsidl.NodeKind]jsidl.NodeKind{
	jsidl.KindDeclaredArray:      jsidl.KindArray,
	jsidl.KindDeclaredBitField:   jsidl.KindBitField,
	jsidl.KindDeclaredFixedField: jsidl.KindFixedField,
	jsidl.KindDeclaredList:       jsidl.KindList,
	jsidl.KindDeclaredRecord:     jsidl.KindRecord,
	jsidl.KindDeclaredVarLenStr:  jsidl.KindVariableLengthStr,
}

func (g *generator) translateArray(n *jsidl.Node, parent container, doc *jsidl.Document, depth int, ov *override) error {
	name, comment, optional := g.siteValues(n, ov)
	f := complexFragment("array", comment)
	attach(parent, name, f, optional)

	for _, c := range n.Children {
		if c.Kind == jsidl.KindDimension {
			size, err := g.evalInt(c.Size, doc)
			if err != nil {
				return fmt.Errorf("array %q dimension: %w", name, err)
			}
			num := intNumber(size)
			f.MinItems, f.MaxItems = num, num
			continue
		}
		if err := g.translateNode(c, f, doc, depth+1, nil); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) translateRecord(n *jsidl.Node, parent container, doc *jsidl.Document, depth int, ov *override) error {
	name, comment, optional := g.siteValues(n, ov)
	f := complexFragment("object", comment)
	attach(parent, name, f, optional)
	return g.translateNodes(n.Children, f, doc, depth)
}

func (g *generator) translateBitField(n *jsidl.Node, parent container, doc *jsidl.Document, ov *override) error {
	name, comment, optional := g.siteValues(n, ov)
	wireType := n.FieldTypeUnsigned

	f := complexFragment("object", comment)
	f.BitField = wireType
	attach(parent, name, f, optional)

	for _, c := range n.Children {
		if c.Kind != jsidl.KindSubField {
			continue
		}
		br := c.Child(jsidl.KindBitRange)
		if br == nil {
			g.log.Warn("No bit_range in sub_field, skipping",
				zap.String("field", c.Name),
				zap.String("message", g.curName),
				zap.String("file", doc.Path))
			continue
		}
		from, err := strconv.ParseInt(strings.TrimSpace(br.FromIndex), 10, 64)
		if err != nil {
			return fmt.Errorf("bit_range from_index %q: %w", br.FromIndex, err)
		}
		to, err := strconv.ParseInt(strings.TrimSpace(br.ToIndex), 10, 64)
		if err != nil {
			return fmt.Errorf("bit_range to_index %q: %w", br.ToIndex, err)
		}

		// sub fields inherit optionality and comment of the enclosing bit field
		sub := simpleFragment(wireType, comment)
		attach(f, c.Name, sub, optional)
		sub.BitRange = &BitRange{From: from, To: to}

		if vs := c.Child(jsidl.KindValueSet); vs != nil {
			if err := g.applyValueSet(vs, sub, doc); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *generator) translateFixedField(n *jsidl.Node, parent container, doc *jsidl.Document, ov *override) error {
	name, comment, optional := g.siteValues(n, ov)
	wireType := n.FieldType

	f := simpleFragment(wireType, comment)
	attach(parent, name, f, optional)

	// the message identity field repeats the id of the enclosing message
	if name == "MessageID" {
		f.Type = "string"
		f.Const = g.curHex
	}

	for _, c := range n.Children {
		switch c.Kind {
		case jsidl.KindScaleRange:
			if err := g.applyScaleRange(c, wireType, f, doc); err != nil {
				return err
			}
		case jsidl.KindValueSet:
			if err := g.applyValueSet(c, f, doc); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unexpected %s in fixed_field %q", c.Kind, name)
		}
	}
	return nil
}

func (g *generator) translateFixedLengthString(n *jsidl.Node, parent container, doc *jsidl.Document, ov *override) error {
	name, comment, optional := g.siteValues(n, ov)
	f := simpleFragment("string", comment)
	attach(parent, name, f, optional)

	length, err := g.evalInt(n.StringLength, doc)
	if err != nil {
		return fmt.Errorf("fixed_length_string %q: %w", name, err)
	}
	num := intNumber(length)
	f.MinLength, f.MaxLength = num, num
	return nil
}

func (g *generator) translateList(n *jsidl.Node, parent container, doc *jsidl.Document, depth int, ov *override) error {
	name, comment, optional := g.siteValues(n, ov)
	if len(n.Children) == 0 || n.Children[0].Kind != jsidl.KindCountField {
		return fmt.Errorf("list %q: first element must be count_field", name)
	}
	count := n.Children[0]

	f := complexFragment("array", comment)
	attach(parent, name, f, optional)
	f.JausType = count.FieldTypeUnsigned
	if err := g.applyCountLimits(count, f, doc); err != nil {
		return fmt.Errorf("list %q: %w", name, err)
	}
	f.IsVariant = boolPtr(false)

	for _, c := range n.Children {
		if c.Kind == jsidl.KindCountField {
			continue
		}
		if err := g.translateNode(c, f, doc, depth+1, nil); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) translateVariant(n *jsidl.Node, parent container, doc *jsidl.Document, depth int) error {
	name, comment, optional := n.Name, nodeComment(n), n.Optional
	if len(n.Children) == 0 || n.Children[0].Kind != jsidl.KindVTagField {
		return fmt.Errorf("variant %q: first element must be vtag_field", name)
	}
	vtag := n.Children[0]

	f := complexFragment("array", comment)
	attach(parent, name, f, optional)
	f.JausType = vtag.FieldTypeUnsigned
	if err := g.applyCountLimits(vtag, f, doc); err != nil {
		return fmt.Errorf("variant %q: %w", name, err)
	}
	f.IsVariant = boolPtr(true)

	for _, c := range n.Children {
		if c.Kind == jsidl.KindVTagField {
			continue
		}
		if err := g.translateNode(c, f, doc, depth+1, nil); err != nil {
			return err
		}
	}
	return nil
}

// applyCountLimits fills minItems and maxItems from a count or vtag field,
// evaluating values that reference constants.
func (g *generator) applyCountLimits(count *jsidl.Node, f *Fragment, doc *jsidl.Document) error {
	if len(count.MinCount) > 0 {
		v, err := g.evalInt(count.MinCount, doc)
		if err != nil {
			return err
		}
		f.MinItems = intNumber(v)
	}
	if len(count.MaxCount) > 0 {
		v, err := g.evalInt(count.MaxCount, doc)
		if err != nil {
			return err
		}
		f.MaxItems = intNumber(v)
	}
	return nil
}

func (g *generator) translatePresenceVector(n *jsidl.Node, parent container) {
	f := simpleFragment(n.FieldTypeUnsigned, "")
	attach(parent, "presenceVector", f, false)
}

func (g *generator) translateVariableField(n *jsidl.Node, parent container, doc *jsidl.Document) error {
	name, comment, optional := n.Name, nodeComment(n), n.Optional
	f := complexFragment("array", comment)
	attach(parent, name, f, optional)

	for _, c := range n.Children {
		if c.Kind != jsidl.KindTypeAndUnits {
			g.log.Warn("Skipped unexpected child of variable_field",
				zap.String("kind", string(c.Kind)),
				zap.String("field", name),
				zap.String("file", doc.Path))
			continue
		}
		f.JausType = "unsigned byte"
		f.MinItems, f.MaxItems = intNumber(1), intNumber(1)

		for _, e := range c.Children {
			if e.Kind != jsidl.KindTypeAndUnitsEnum {
				continue
			}
			// unit alternatives are never required, exactly one is sent
			entry := simpleFragment(e.FieldType, "")
			attach(f, e.Name, entry, true)
			if len(e.Index) > 0 {
				idx, err := g.evalInt(e.Index, doc)
				if err != nil {
					return fmt.Errorf("variable_field %q index: %w", name, err)
				}
				entry.FieldIndex = intNumber(idx)
			}
			entry.FieldUnits = e.FieldUnits

			for _, v := range e.Children {
				switch v.Kind {
				case jsidl.KindValueSet:
					if err := g.applyValueSet(v, entry, doc); err != nil {
						return err
					}
				case jsidl.KindScaleRange:
					if err := g.applyScaleRange(v, e.FieldType, entry, doc); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func (g *generator) translateVariableFormatField(n *jsidl.Node, parent container, doc *jsidl.Document, depth int) error {
	name, comment, optional := n.Name, nodeComment(n), n.Optional
	if len(n.Children) < 2 || n.Children[1].Kind != jsidl.KindCountField {
		return fmt.Errorf("variable_format_field %q: second element must be count_field", name)
	}
	count := n.Children[1]

	f := complexFragment("object", comment)
	attach(parent, name, f, optional)
	f.JausType = count.FieldTypeUnsigned

	if n.Children[0].Kind != jsidl.KindFormatField {
		return fmt.Errorf("variable_format_field %q: first element must be format_field", name)
	}
	var enums []*jsidl.Node
	for _, c := range n.Children[0].Children {
		if c.Kind == jsidl.KindFormatEnum {
			enums = append(enums, c)
		}
	}
	if len(enums) == 0 {
		return nil
	}

	formatField := simpleFragment("unsigned byte", "")
	attach(f, "formatField", formatField, false)

	entries := make([]ValueSetEntry, 0, len(enums))
	names := make([]string, 0, len(enums))
	for _, fe := range enums {
		idx, err := g.evalInt(fe.Index, doc)
		if err != nil {
			return fmt.Errorf("variable_format_field %q format index: %w", name, err)
		}
		format := checkSpaces(fe.FieldFormat)
		entries = append(entries, ValueSetEntry{ValueEnum: &ValueEnum{EnumIndex: idx, EnumConst: format}})
		names = append(names, format)
	}
	formatField.ValueSet = &entries
	if len(names) > 0 {
		formatField.Type = "string"
		formatField.Enum = names
	}

	f.EncapsulatedMessage = "sub"
	for _, fe := range enums {
		if err := g.addPayload(fe.FieldFormat, f, false, comment, depth, doc); err != nil {
			return err
		}
	}
	payload := complexFragment("object", comment)
	attach(f, "payload", payload, false)
	return nil
}

func (g *generator) translateVariableLengthField(n *jsidl.Node, parent container, doc *jsidl.Document, depth int) error {
	name, comment, optional := n.Name, nodeComment(n), n.Optional
	if len(n.Children) == 0 || n.Children[0].Kind != jsidl.KindCountField {
		return fmt.Errorf("variable_length_field %q: first element must be count_field", name)
	}
	count := n.Children[0]

	f := complexFragment("object", comment)
	attach(parent, name, f, optional)

	// absent count bounds stay out of the artifact
	if len(count.MinCount) > 0 {
		v, err := g.evalInt(count.MinCount, doc)
		if err != nil {
			return fmt.Errorf("variable_length_field %q: %w", name, err)
		}
		f.MinLength = intNumber(v)
	}
	if len(count.MaxCount) > 0 {
		v, err := g.evalInt(count.MaxCount, doc)
		if err != nil {
			return fmt.Errorf("variable_length_field %q: %w", name, err)
		}
		if v != 0 {
			f.MaxLength = intNumber(v)
		}
	}
	f.JausType = count.FieldTypeUnsigned
	f.FieldFormat = n.FieldFormat
	f.EncapsulatedMessage = "simple"

	if err := g.addPayload(n.FieldFormat, f, false, comment, depth, doc); err != nil {
		return err
	}
	payload := complexFragment("object", comment)
	attach(f, "payload", payload, false)
	return nil
}

func (g *generator) translateVariableLengthString(n *jsidl.Node, parent container, doc *jsidl.Document, ov *override) error {
	name, comment, optional := g.siteValues(n, ov)
	if len(n.Children) == 0 || n.Children[0].Kind != jsidl.KindCountField {
		return fmt.Errorf("variable_length_string %q: first element must be count_field", name)
	}
	count := n.Children[0]

	f := simpleFragment("string", comment)
	attach(parent, name, f, optional)

	var minLength int64
	if len(count.MinCount) > 0 {
		v, err := g.evalInt(count.MinCount, doc)
		if err != nil {
			return fmt.Errorf("variable_length_string %q: %w", name, err)
		}
		minLength = v
	}
	f.MinLength = intNumber(minLength)

	maxSet := false
	if len(count.MaxCount) > 0 {
		v, err := g.evalInt(count.MaxCount, doc)
		if err != nil {
			return fmt.Errorf("variable_length_string %q: %w", name, err)
		}
		if v != 0 {
			f.MaxLength = intNumber(v)
			maxSet = true
		}
	}
	if !maxSet {
		// absent limit means whatever the count field can address
		width, ok := wireTypeWidth(count.FieldTypeUnsigned)
		if !ok {
			return fmt.Errorf("variable_length_string %q: unknown count type %q", name, count.FieldTypeUnsigned)
		}
		f.MaxLength = countCapacity(width)
	}
	f.JausType = count.FieldTypeUnsigned
	return nil
}

// addPayload attaches the payload description of an encapsulating field.
// The reserved "JAUS MESSAGE" format stands for any message, identified at
// runtime by its id; other formats resolve against elements already seen
// during this run. Unknown formats are silently left out.
func (g *generator) addPayload(format string, parent *Fragment, optional bool, comment string, depth int, doc *jsidl.Document) error {
	switch format {
	case "JAUS MESSAGE", "JAUS_MESSAGE":
		f := simpleFragment("unsigned short integer", "message id of the payload message")
		attach(parent, "payloadMessageId", f, optional)
		f.Type = "string"
		return nil
	}

	kf, ok := g.formats[format]
	if !ok {
		return nil
	}
	f := complexFragment("object", comment)
	attach(parent, "payloadStruct", f, optional)
	return g.translateNode(kf.node, f, kf.doc, depth+1, nil)
}

func (g *generator) applyScaleRange(n *jsidl.Node, wireType string, f *Fragment, doc *jsidl.Document) error {
	width, ok := wireTypeWidth(wireType)
	if !ok {
		return fmt.Errorf("scale_range over field type %q with unknown width", wireType)
	}
	bias, err := g.evalFloat(n.RealLowerLimit, doc)
	if err != nil {
		return fmt.Errorf("scale_range lower limit: %w", err)
	}
	upper, err := g.evalFloat(n.RealUpperLimit, doc)
	if err != nil {
		return fmt.Errorf("scale_range upper limit: %w", err)
	}
	factor := (upper - bias) / (math.Pow(2, float64(8*width)) - 1)
	f.ScaleRange = &ScaleRange{ScaleFactor: factor, Bias: bias}
	return nil
}

func (g *generator) applyValueSet(n *jsidl.Node, f *Fragment, doc *jsidl.Document) error {
	entries := make([]ValueSetEntry, 0, len(n.Children))
	var enums []string
	for _, c := range n.Children {
		switch c.Kind {
		case jsidl.KindValueEnum:
			idx, err := g.evalInt(c.EnumIndex, doc)
			if err != nil {
				return fmt.Errorf("value_enum index: %w", err)
			}
			value := checkSpaces(c.EnumConst)
			entries = append(entries, ValueSetEntry{ValueEnum: &ValueEnum{EnumIndex: idx, EnumConst: value}})
			enums = append(enums, value)
		case jsidl.KindValueRange:
			lower, err := g.evalFloat(c.LowerLimit, doc)
			if err != nil {
				return fmt.Errorf("value_range lower limit: %w", err)
			}
			upper, err := g.evalFloat(c.UpperLimit, doc)
			if err != nil {
				return fmt.Errorf("value_range upper limit: %w", err)
			}
			entries = append(entries, ValueSetEntry{ValueRange: &ValueRange{
				Minimum:        lower,
				Maximum:        upper,
				Interpretation: c.Interpretation,
			}})
		}
	}
	f.ValueSet = &entries
	if len(enums) > 0 {
		f.Type = "string"
		f.Enum = enums
	}
	return nil
}

// jsonTypeFor maps a wire type name onto the json type vocabulary.
func jsonTypeFor(wireType string) string {
	switch {
	case strings.Contains(wireType, "integer"):
		return "number"
	case strings.Contains(wireType, "byte"):
		return "number"
	case wireType == "string":
		return "string"
	}
	return "UNKNOWN"
}

// wireTypeWidth returns the byte width of a wire type.
func wireTypeWidth(wireType string) (int64, bool) {
	switch wireType {
	case "byte", "unsigned byte":
		return 1, true
	case "short integer", "unsigned short integer":
		return 2, true
	case "integer", "unsigned integer", "float":
		return 4, true
	case "long integer", "unsigned long integer", "long float":
		return 8, true
	}
	return 0, false
}

// countCapacity is the number of values a count field of the given byte
// width can express. The eight byte result exceeds int64, so the literal is
// spelled out.
func countCapacity(width int64) json.Number {
	if width >= 8 {
		return json.Number("18446744073709551616")
	}
	return json.Number(strconv.FormatUint(uint64(1)<<(8*uint(width)), 10))
}

// checkSpaces collapses runs of whitespace into single spaces.
func checkSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// nodeComment normalizes the interpretation attribute of a node.
func nodeComment(n *jsidl.Node) string {
	return checkSpaces(n.Interpretation)
}
