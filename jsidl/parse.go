package jsidl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"
)

// ParseDocument converts an xml document into a Document tree. Structural
// problems that make the document unusable (no root, malformed message
// identity) are returned as errors; unknown elements are kept as generic
// nodes so the generator can decide what to do with them.
func ParseDocument(doc *etree.Document, path string, log *zap.Logger) (*Document, error) {
	if doc == nil {
		return nil, errors.New("document is empty")
	}

	root := doc.Root()
	if root == nil {
		return nil, errors.New("document does not have root element")
	}

	d := &Document{
		Path:    path,
		RootTag: root.Tag,
		Name:    root.SelectAttrValue("name", ""),
		ID:      root.SelectAttrValue("id", ""),
		Version: root.SelectAttrValue("version", ""),
	}
	if root.Tag == "service_def" {
		d.Service = &ServiceDef{Name: d.Name, ID: d.ID}
	}

	for _, child := range root.ChildElements() {
		switch child.Tag {
		case "message_def":
			m, err := parseMessageDef(child, log)
			if err != nil {
				return nil, err
			}
			d.Messages = append(d.Messages, m)
		case "message_set":
			msgs, err := parseMessageSet(child, log)
			if err != nil {
				return nil, err
			}
			d.Messages = append(d.Messages, msgs...)
		case "declared_type_set_ref":
			d.TypeSetRefs = append(d.TypeSetRefs, parseSetRef(child))
		case "declared_const_set_ref":
			d.ConstSetRefs = append(d.ConstSetRefs, parseSetRef(child))
		}
		// Every root child doubles as a declaration so dotted references can
		// find types and constants by tag and name.
		d.Declarations = append(d.Declarations, parseNode(child))
	}
	return d, nil
}

func parseMessageSet(el *etree.Element, log *zap.Logger) ([]*MessageDef, error) {
	var msgs []*MessageDef
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "input_set", "output_set":
			for _, md := range child.ChildElements() {
				if md.Tag != "message_def" {
					log.Warn("Unexpected tag in message set, ignoring",
						zap.String("parent", child.Tag),
						zap.String("tag", md.Tag))
					continue
				}
				m, err := parseMessageDef(md, log)
				if err != nil {
					return nil, err
				}
				msgs = append(msgs, m)
			}
		default:
			log.Warn("Unexpected tag in message_set, ignoring", zap.String("tag", child.Tag))
		}
	}
	return msgs, nil
}

func parseMessageDef(el *etree.Element, log *zap.Logger) (*MessageDef, error) {
	name := el.SelectAttrValue("name", "")
	if len(name) == 0 {
		return nil, errors.New("message definition without name")
	}

	id, err := NormalizeMessageID(el.SelectAttrValue("message_id", ""))
	if err != nil {
		return nil, fmt.Errorf("message %q: %w", name, err)
	}

	m := &MessageDef{
		Name:      name,
		MessageID: id,
		IsCommand: boolAttr(el, "is_command"),
	}

	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "description":
			m.Description = flattenText(child)
		case "header":
			m.Header.Nodes = childNodes(child)
		case "body":
			m.Body.Nodes = childNodes(child)
		case "footer":
			m.Footer.Nodes = childNodes(child)
		case "declared_header":
			m.Header.Ref = child.SelectAttrValue("declared_type_ref", "")
		case "declared_body":
			m.Body.Ref = child.SelectAttrValue("declared_type_ref", "")
		case "declared_footer":
			m.Footer.Ref = child.SelectAttrValue("declared_type_ref", "")
		default:
			log.Warn("Unexpected tag in message_def, ignoring",
				zap.String("message", name),
				zap.String("tag", child.Tag))
		}
	}
	return m, nil
}

func parseSetRef(el *etree.Element) SetRef {
	return SetRef{
		Name:    el.SelectAttrValue("name", ""),
		ID:      el.SelectAttrValue("id", ""),
		Version: el.SelectAttrValue("version", ""),
	}
}

func childNodes(el *etree.Element) []*Node {
	children := el.ChildElements()
	if len(children) == 0 {
		return nil
	}
	nodes := make([]*Node, 0, len(children))
	for _, c := range children {
		nodes = append(nodes, parseNode(c))
	}
	return nodes
}

// parseNode lifts an element and everything below it into the generic field
// tree. Attributes not relevant for the element kind simply stay empty.
func parseNode(el *etree.Element) *Node {
	n := &Node{
		Kind:           NodeKind(el.Tag),
		Name:           el.SelectAttrValue("name", ""),
		Interpretation: el.SelectAttrValue("interpretation", ""),
		Optional:       boolAttr(el, "optional"),

		FieldType:         el.SelectAttrValue("field_type", ""),
		FieldTypeUnsigned: el.SelectAttrValue("field_type_unsigned", ""),
		FieldUnits:        el.SelectAttrValue("field_units", ""),
		FieldFormat:       el.SelectAttrValue("field_format", ""),
		Index:             el.SelectAttrValue("index", ""),

		StringLength: el.SelectAttrValue("string_length", ""),
		Size:         el.SelectAttrValue("size", ""),
		MinCount:     el.SelectAttrValue("min_count", ""),
		MaxCount:     el.SelectAttrValue("max_count", ""),
		TypeRef:      el.SelectAttrValue("declared_type_ref", ""),

		EnumIndex:      el.SelectAttrValue("enum_index", ""),
		EnumConst:      el.SelectAttrValue("enum_const", ""),
		LowerLimit:     el.SelectAttrValue("lower_limit", ""),
		UpperLimit:     el.SelectAttrValue("upper_limit", ""),
		RealLowerLimit: el.SelectAttrValue("real_lower_limit", ""),
		RealUpperLimit: el.SelectAttrValue("real_upper_limit", ""),
		FromIndex:      el.SelectAttrValue("from_index", ""),
		ToIndex:        el.SelectAttrValue("to_index", ""),

		ConstValue: el.SelectAttrValue("const_value", ""),
		ConstType:  el.SelectAttrValue("const_type", ""),
	}
	n.Children = childNodes(el)
	return n
}

// NormalizeMessageID brings a message identifier attribute to the canonical
// "0x" prefixed lower case hex form, preserving the digit width.
func NormalizeMessageID(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	if len(s) == 0 {
		return "", errors.New("missing message identifier")
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return "", fmt.Errorf("malformed message identifier %q", raw)
		}
	}
	return "0x" + strings.ToLower(s), nil
}

func boolAttr(el *etree.Element, name string) bool {
	switch el.SelectAttrValue(name, "") {
	case "true", "1":
		return true
	}
	return false
}

// flattenText joins all character data of an element into a single
// whitespace trimmed line.
func flattenText(el *etree.Element) string {
	var parts []string
	for _, node := range el.Child {
		if cd, ok := node.(*etree.CharData); ok {
			if s := strings.TrimSpace(cd.Data); len(s) > 0 {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, " ")
}
