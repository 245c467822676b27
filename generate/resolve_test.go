package generate

import (
	"errors"
	"path/filepath"
	"testing"

	"jsg/jsidl"
)

func setupResolveTest(t *testing.T) (*generator, *jsidl.Document) {
	t.Helper()

	log := testLogger(t)
	root := t.TempDir()

	// both type sets carry the same identity, one ships next to the service
	writeTestFile(t, root, "a/types.xml", `<declared_type_set name="shared" id="urn:jaus:jss:test:types" version="1.0">
  <record name="Rec">
    <fixed_field name="FromA" field_type="unsigned byte" field_units="one"/>
  </record>
</declared_type_set>`)
	writeTestFile(t, root, "b/types.xml", `<declared_type_set name="shared" id="urn:jaus:jss:test:types" version="1.0">
  <record name="Rec">
    <fixed_field name="FromB" field_type="unsigned byte" field_units="one"/>
  </record>
</declared_type_set>`)
	writeTestFile(t, root, "a/consts.xml", `<declared_const_set name="lim" id="urn:jaus:jss:test:consts" version="1.0">
  <const_def name="MAX" const_value="255" const_type="unsigned byte"/>
</declared_const_set>`)
	writeTestFile(t, root, "a/service.xml", `<service_def name="Svc" id="urn:jaus:jss:test:Svc" version="1.0">
  <declared_type_set_ref name="core" id="urn:jaus:jss:test:types" version="1.0"/>
  <declared_const_set_ref name="limits" id="urn:jaus:jss:test:consts" version="1.0"/>
  <declared_type_set_ref name="missing" id="urn:none" version="9.9"/>
  <record name="Local">
    <fixed_field name="F" field_type="unsigned byte" field_units="one"/>
  </record>
  <const_def name="LOCAL_MAX" const_value="16" const_type="unsigned byte"/>
</service_def>`)

	c := jsidl.NewCache(log)
	if err := c.Scan(root, nil); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	g := newGenerator(testEnv(t, log), c, t.TempDir(), log)

	doc, err := c.Load(filepath.Join(root, "a", "service.xml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return g, doc
}

func TestResolveType(t *testing.T) {
	g, doc := setupResolveTest(t)

	t.Run("local declaration", func(t *testing.T) {
		n, rdoc, err := g.resolveType("Local", jsidl.KindRecord, doc)
		if err != nil {
			t.Fatalf("resolveType() error = %v", err)
		}
		if n.Name != "Local" || rdoc != doc {
			t.Errorf("resolveType() = %s in %s", n.Name, rdoc.Path)
		}
	})

	t.Run("kind must match", func(t *testing.T) {
		_, _, err := g.resolveType("Local", jsidl.KindList, doc)
		if err == nil {
			t.Fatal("expected error for kind mismatch")
		}
	})

	t.Run("dotted prefers nearby set", func(t *testing.T) {
		n, rdoc, err := g.resolveType("core.Rec", jsidl.KindRecord, doc)
		if err != nil {
			t.Fatalf("resolveType() error = %v", err)
		}
		if rdoc == doc {
			t.Error("resolution should land in the referenced set document")
		}
		if len(n.Children) != 1 || n.Children[0].Name != "FromA" {
			t.Errorf("resolved record children = %+v, want the set next to the service", n.Children)
		}
	})

	t.Run("unprovided set carries identity", func(t *testing.T) {
		_, _, err := g.resolveType("missing.Rec", jsidl.KindRecord, doc)
		if err == nil {
			t.Fatal("expected error for set no document provides")
		}
		var rerr *ReferenceNotFoundError
		if !errors.As(err, &rerr) {
			t.Fatalf("error type = %T, want *ReferenceNotFoundError", err)
		}
		if rerr.SetID != "urn:none" || rerr.SetVersion != "9.9" {
			t.Errorf("set identity = %s/%s, want urn:none/9.9", rerr.SetID, rerr.SetVersion)
		}
	})

	t.Run("undeclared set prefix", func(t *testing.T) {
		_, _, err := g.resolveType("ghost.Rec", jsidl.KindRecord, doc)
		if err == nil {
			t.Fatal("expected error for undeclared set name")
		}
		var rerr *ReferenceNotFoundError
		if !errors.As(err, &rerr) {
			t.Fatalf("error type = %T, want *ReferenceNotFoundError", err)
		}
		if len(rerr.SetID) > 0 {
			t.Errorf("SetID = %q, want empty when no set ref matched", rerr.SetID)
		}
		if rerr.Ref != "ghost.Rec" || rerr.File != doc.Path {
			t.Errorf("error = %+v", rerr)
		}
	})
}

func TestResolveConst(t *testing.T) {
	g, doc := setupResolveTest(t)

	t.Run("local constant", func(t *testing.T) {
		value, typ, err := g.resolveConst("LOCAL_MAX", doc)
		if err != nil {
			t.Fatalf("resolveConst() error = %v", err)
		}
		if value != "16" || typ != "unsigned byte" {
			t.Errorf("resolveConst() = %s/%s", value, typ)
		}
	})

	t.Run("dotted constant", func(t *testing.T) {
		value, _, err := g.resolveConst("limits.MAX", doc)
		if err != nil {
			t.Fatalf("resolveConst() error = %v", err)
		}
		if value != "255" {
			t.Errorf("resolveConst() = %s, want 255", value)
		}
	})

	t.Run("unknown constant", func(t *testing.T) {
		_, _, err := g.resolveConst("NOPE", doc)
		var rerr *ReferenceNotFoundError
		if !errors.As(err, &rerr) {
			t.Fatalf("error = %v, want *ReferenceNotFoundError", err)
		}
	})
}

func TestEvalWithConstants(t *testing.T) {
	g, doc := setupResolveTest(t)

	got, err := g.evalInt("limits.MAX + 1", doc)
	if err != nil {
		t.Fatalf("evalInt() error = %v", err)
	}
	if got != 256 {
		t.Errorf("evalInt() = %d, want 256", got)
	}

	f, err := g.evalFloat("LOCAL_MAX / 2", doc)
	if err != nil {
		t.Fatalf("evalFloat() error = %v", err)
	}
	if f != 8 {
		t.Errorf("evalFloat() = %g, want 8", f)
	}
}
