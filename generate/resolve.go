package generate

import (
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"jsg/expr"
	"jsg/jsidl"
)

// resolveType finds the declaration a reference points at. A plain name is
// looked up among the root declarations of the referencing document. A
// dotted reference walks through a declared type set: the first segment
// names the set, the remainder resolves inside the document carrying the
// set's id and version, documents next to the referencing one first.
func (g *generator) resolveType(ref string, kind jsidl.NodeKind, from *jsidl.Document) (*jsidl.Node, *jsidl.Document, error) {
	head, rest, dotted := strings.Cut(ref, ".")
	if !dotted {
		for _, n := range from.Declarations {
			if n.Kind == kind && n.Name == ref {
				return n, from, nil
			}
		}
		return nil, nil, &ReferenceNotFoundError{Ref: ref, Kind: kind, File: from.Path}
	}

	for _, sr := range from.TypeSetRefs {
		if sr.Name != head {
			continue
		}
		d := g.findSet(sr, from)
		if d == nil {
			return nil, nil, &ReferenceNotFoundError{
				Ref: ref, Kind: kind, File: from.Path,
				SetID: sr.ID, SetVersion: sr.Version,
			}
		}
		return g.resolveType(rest, kind, d)
	}
	return nil, nil, &ReferenceNotFoundError{Ref: ref, Kind: kind, File: from.Path}
}

// resolveConst is resolveType for constant definitions, returning the
// constant's literal value and declared type.
func (g *generator) resolveConst(ref string, from *jsidl.Document) (string, string, error) {
	head, rest, dotted := strings.Cut(ref, ".")
	if !dotted {
		for _, n := range from.Declarations {
			if n.Kind == jsidl.KindConstDef && n.Name == ref {
				return n.ConstValue, n.ConstType, nil
			}
		}
		return "", "", &ReferenceNotFoundError{Ref: ref, Kind: jsidl.KindConstDef, File: from.Path}
	}

	for _, sr := range from.ConstSetRefs {
		if sr.Name != head {
			continue
		}
		d := g.findSet(sr, from)
		if d == nil {
			return "", "", &ReferenceNotFoundError{
				Ref: ref, Kind: jsidl.KindConstDef, File: from.Path,
				SetID: sr.ID, SetVersion: sr.Version,
			}
		}
		return g.resolveConst(rest, d)
	}
	return "", "", &ReferenceNotFoundError{Ref: ref, Kind: jsidl.KindConstDef, File: from.Path}
}

// findSet scans enumerated documents for one matching the set identity.
// Documents that failed to parse are skipped here, they are reported by the
// main processing loop.
func (g *generator) findSet(sr jsidl.SetRef, from *jsidl.Document) *jsidl.Document {
	for _, p := range g.cache.LocalFirst(filepath.Dir(from.Path)) {
		d, err := g.cache.Load(p)
		if err != nil {
			g.log.Debug("Skipping unreadable document during reference resolution",
				zap.String("file", p), zap.Error(err))
			continue
		}
		if d.ID == sr.ID && d.Version == sr.Version {
			return d
		}
	}
	return nil
}

// constLookup adapts constant resolution for the expression evaluator,
// anchored at the document the expression came from.
func (g *generator) constLookup(doc *jsidl.Document) expr.LookupFunc {
	return func(name string) (string, error) {
		value, _, err := g.resolveConst(name, doc)
		return value, err
	}
}

func (g *generator) evalInt(input string, doc *jsidl.Document) (int64, error) {
	return expr.Int(input, g.constLookup(doc))
}

func (g *generator) evalFloat(input string, doc *jsidl.Document) (float64, error) {
	return expr.Float(input, g.constLookup(doc))
}
