package generate

import (
	"fmt"

	"jsg/jsidl"
)

// ReferenceNotFoundError reports a dotted or local reference which did not
// resolve to a declaration. When the first segment named a declaration set
// that no enumerated document provides, SetID and SetVersion carry the
// identity that was looked for.
type ReferenceNotFoundError struct {
	Ref        string
	Kind       jsidl.NodeKind
	File       string
	SetID      string
	SetVersion string
}

func (e *ReferenceNotFoundError) Error() string {
	if len(e.SetID) > 0 {
		return fmt.Sprintf("reference %q (%s) from %s: no document with id=%q version=%q",
			e.Ref, e.Kind, e.File, e.SetID, e.SetVersion)
	}
	return fmt.Sprintf("reference %q (%s) not found in %s", e.Ref, e.Kind, e.File)
}

// UnsupportedKindError reports a field tree node the translator has no
// handler for. It fails the enclosing message, not the run.
type UnsupportedKindError struct {
	Kind jsidl.NodeKind
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("no translation implemented for %q", e.Kind)
}
