package generate

import (
	"encoding/json"
	"strconv"

	"jsg/jsidl"
)

// MessageSchema is the JSON document produced for a single message
// definition. Properties and Required are always serialized, even empty.
type MessageSchema struct {
	Title       string               `json:"title"`
	MessageID   string               `json:"messageId"`
	IsCommand   bool                 `json:"isCommand"`
	Description string               `json:"description"`
	Type        string               `json:"type"`
	Properties  map[string]*Fragment `json:"properties"`
	Required    []string             `json:"required"`
}

func newMessageSchema(m *jsidl.MessageDef) *MessageSchema {
	return &MessageSchema{
		Title:       m.Name,
		MessageID:   m.MessageID,
		IsCommand:   m.IsCommand,
		Description: m.Description,
		Type:        "object",
		Properties:  make(map[string]*Fragment),
		Required:    []string{},
	}
}

func (s *MessageSchema) put(name string, f *Fragment) {
	s.Properties[name] = f
}

func (s *MessageSchema) require(name string) {
	s.Required = append(s.Required, name)
}

// Fragment describes one translated field. Simple fields carry a json type
// plus the wire type they came from, composites additionally hold child
// properties or items. Pointer and Number members stay out of the output
// until a translation step fills them in.
type Fragment struct {
	Type     string `json:"type"`
	JausType string `json:"jausType,omitempty"`
	Comment  string `json:"comment"`

	Const string   `json:"const,omitempty"`
	Enum  []string `json:"enum,omitempty"`

	BitField   string           `json:"bitField,omitempty"`
	BitRange   *BitRange        `json:"bitRange,omitempty"`
	ScaleRange *ScaleRange      `json:"scaleRange,omitempty"`
	ValueSet   *[]ValueSetEntry `json:"valueSet,omitempty"`

	FieldIndex json.Number `json:"fieldIndex,omitempty"`
	FieldUnits string      `json:"fieldUnits,omitempty"`

	FieldFormat         string `json:"fieldFormat,omitempty"`
	EncapsulatedMessage string `json:"encapsulatedMessage,omitempty"`
	IsVariant           *bool  `json:"isVariant,omitempty"`

	MinItems  json.Number `json:"minItems,omitempty"`
	MaxItems  json.Number `json:"maxItems,omitempty"`
	MinLength json.Number `json:"minLength,omitempty"`
	MaxLength json.Number `json:"maxLength,omitempty"`

	Required   *[]string             `json:"required,omitempty"`
	Properties *map[string]*Fragment `json:"properties,omitempty"`
	Items      *ItemList             `json:"items,omitempty"`
}

// ItemList wraps array members the way the consumers expect them.
type ItemList struct {
	AnyOf []*Fragment `json:"anyOf"`
}

type BitRange struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

type ScaleRange struct {
	ScaleFactor float64 `json:"scaleFactor"`
	Bias        float64 `json:"bias"`
}

// ValueSetEntry is either an enumerated value or a value range.
type ValueSetEntry struct {
	ValueEnum  *ValueEnum  `json:"valueEnum,omitempty"`
	ValueRange *ValueRange `json:"valueRange,omitempty"`
}

type ValueEnum struct {
	EnumIndex int64  `json:"enumIndex"`
	EnumConst string `json:"enumConst"`
}

type ValueRange struct {
	Minimum        float64 `json:"minimum"`
	Maximum        float64 `json:"maximum"`
	Interpretation string  `json:"interpretation"`
}

// container is anything translated fields can be attached to, either the
// message document itself or a composite fragment.
type container interface {
	put(name string, f *Fragment)
	require(name string)
}

func (f *Fragment) put(name string, child *Fragment) {
	if f.Properties != nil {
		(*f.Properties)[name] = child
	}
	if f.Items != nil {
		f.Items.AnyOf = append(f.Items.AnyOf, child)
	}
}

func (f *Fragment) require(name string) {
	if f.Required != nil {
		*f.Required = append(*f.Required, name)
	}
}

func simpleFragment(wireType, comment string) *Fragment {
	return &Fragment{Type: jsonTypeFor(wireType), JausType: wireType, Comment: comment}
}

// complexFragment builds an empty composite of the given json type. Arrays
// collect members under items, everything else under properties.
func complexFragment(kind, comment string) *Fragment {
	f := &Fragment{Type: kind, Comment: comment}
	required := []string{}
	f.Required = &required
	if kind == "array" {
		f.Items = &ItemList{AnyOf: []*Fragment{}}
	} else {
		properties := make(map[string]*Fragment)
		f.Properties = &properties
	}
	return f
}

// attach hooks a fragment under its parent and marks it required unless the
// definition said the field is optional.
func attach(parent container, name string, f *Fragment, optional bool) {
	parent.put(name, f)
	if !optional {
		parent.require(name)
	}
}

func intNumber(v int64) json.Number {
	return json.Number(strconv.FormatInt(v, 10))
}

func boolPtr(v bool) *bool {
	return &v
}
