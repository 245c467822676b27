// Package jsidl reads JAUS service interface definition documents into a
// typed tree that the schema generator can walk without consulting XML again.
package jsidl

// NodeKind discriminates field tree nodes. Values match the element tags
// used by the interface definition schema.
type NodeKind string

const (
	KindArray               NodeKind = "array"
	KindBitField            NodeKind = "bit_field"
	KindFixedField          NodeKind = "fixed_field"
	KindFixedLengthString   NodeKind = "fixed_length_string"
	KindList                NodeKind = "list"
	KindPresenceVector      NodeKind = "presence_vector"
	KindRecord              NodeKind = "record"
	KindSequence            NodeKind = "sequence"
	KindVariableField       NodeKind = "variable_field"
	KindVariableFormatField NodeKind = "variable_format_field"
	KindVariableLengthField NodeKind = "variable_length_field"
	KindVariableLengthStr   NodeKind = "variable_length_string"
	KindVariant             NodeKind = "variant"

	KindDeclaredArray      NodeKind = "declared_array"
	KindDeclaredBitField   NodeKind = "declared_bit_field"
	KindDeclaredFixedField NodeKind = "declared_fixed_field"
	KindDeclaredList       NodeKind = "declared_list"
	KindDeclaredRecord     NodeKind = "declared_record"
	KindDeclaredVarLenStr  NodeKind = "declared_variable_length_string"

	KindBitRange         NodeKind = "bit_range"
	KindConstDef         NodeKind = "const_def"
	KindCountField       NodeKind = "count_field"
	KindDimension        NodeKind = "dimension"
	KindFormatEnum       NodeKind = "format_enum"
	KindFormatField      NodeKind = "format_field"
	KindScaleRange       NodeKind = "scale_range"
	KindSubField         NodeKind = "sub_field"
	KindTypeAndUnits     NodeKind = "type_and_units_field"
	KindTypeAndUnitsEnum NodeKind = "type_and_units_enum"
	KindValueEnum        NodeKind = "value_enum"
	KindValueRange       NodeKind = "value_range"
	KindValueSet         NodeKind = "value_set"
	KindVTagField        NodeKind = "vtag_field"

	KindHeader NodeKind = "header"
	KindBody   NodeKind = "body"
	KindFooter NodeKind = "footer"
)

// Node is a single element of a message field tree. Kind decides which of
// the attribute fields are meaningful; attributes that may hold constant
// expressions (counts, sizes, limits) are kept verbatim and evaluated by
// the generator when the node is translated.
type Node struct {
	Kind           NodeKind
	Name           string
	Interpretation string
	Optional       bool

	FieldType         string // fixed_field, type_and_units_enum
	FieldTypeUnsigned string // bit_field, presence_vector, count_field, vtag_field
	FieldUnits        string // type_and_units_enum
	FieldFormat       string // variable_length_field, format_enum
	Index             string // type_and_units_enum, format_enum

	StringLength string // fixed_length_string
	Size         string // dimension
	MinCount     string // count_field, vtag_field
	MaxCount     string
	TypeRef      string // declared_* reference, possibly dotted

	EnumIndex      string // value_enum
	EnumConst      string // value_enum
	LowerLimit     string // value_range
	UpperLimit     string // value_range
	RealLowerLimit string // scale_range
	RealUpperLimit string // scale_range
	FromIndex      string // bit_range
	ToIndex        string // bit_range

	ConstValue string // const_def
	ConstType  string // const_def

	Children []*Node
}

// Child returns the first direct child of the given kind or nil.
func (n *Node) Child(kind NodeKind) *Node {
	for _, c := range n.Children {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// Section holds the content of a message header, body or footer. Either the
// nodes were defined inline or the section points at a shared declaration.
type Section struct {
	Nodes []*Node
	Ref   string
}

// MessageDef describes a single message definition found in a document.
type MessageDef struct {
	Name        string
	MessageID   string // normalized hex form, 0x prefixed, lower case
	IsCommand   bool
	Description string

	Header Section
	Body   Section
	Footer Section
}

// SetRef names an external declaration set a document pulls types or
// constants from. Resolution matches referenced documents by ID and Version.
type SetRef struct {
	Name    string
	ID      string
	Version string
}

// ServiceDef carries the identity of a service definition document.
type ServiceDef struct {
	Name string
	ID   string
}

// Document is one parsed interface definition file.
type Document struct {
	Path    string
	RootTag string

	Name    string
	ID      string
	Version string

	// Service is set when the document root is a service definition.
	Service *ServiceDef

	// Declarations are the root level children in document order. Type and
	// constant references resolve against this list.
	Declarations []*Node

	TypeSetRefs  []SetRef
	ConstSetRefs []SetRef

	Messages []*MessageDef
}
