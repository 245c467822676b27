package jsidl

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
}

const validServiceDoc = `<?xml version="1.0"?>
<service_def name="S" id="urn:jaus:jss:test" version="1.0">
  <message_def name="Alive" message_id="0x0001"><body/></message_def>
</service_def>`

func TestCacheScan(t *testing.T) {
	log := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	root := t.TempDir()

	writeFiles(t, root, map[string]string{
		"msg2.xml":           validServiceDoc,
		"msg10.xml":          validServiceDoc,
		"other.XML":          validServiceDoc,
		"readme.txt":         "not a definition",
		"sub/msg1.xml":       validServiceDoc,
		"deprecated/old.xml": validServiceDoc,
	})

	c := NewCache(log)
	if err := c.Scan(root, []string{"deprecated", ""}); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	paths := c.Paths()
	if len(paths) != 4 {
		t.Fatalf("Paths() length = %d, want 4: %v", len(paths), paths)
	}

	// natural sort keeps msg2 before msg10, excluded subtree never shows up
	expected := []string{
		filepath.Join(root, "msg2.xml"),
		filepath.Join(root, "msg10.xml"),
		filepath.Join(root, "other.XML"),
		filepath.Join(root, "sub", "msg1.xml"),
	}
	for i, want := range expected {
		abs, err := filepath.Abs(want)
		if err != nil {
			t.Fatalf("filepath.Abs() error = %v", err)
		}
		if paths[i] != abs {
			t.Errorf("Paths()[%d] = %s, want %s", i, paths[i], abs)
		}
	}
}

func TestCacheScan_RootNameInExclude(t *testing.T) {
	log := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))

	root := filepath.Join(t.TempDir(), "deprecated")
	writeFiles(t, root, map[string]string{"msg.xml": validServiceDoc})

	c := NewCache(log)
	if err := c.Scan(root, []string{"deprecated"}); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	// exclusion applies to subdirectories only, never to the scan root itself
	if len(c.Paths()) != 1 {
		t.Errorf("Paths() length = %d, want 1", len(c.Paths()))
	}
}

func TestCacheLoad(t *testing.T) {
	log := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	root := t.TempDir()

	writeFiles(t, root, map[string]string{
		"good.xml":      validServiceDoc,
		"malformed.xml": `<service_def name="S"`,
		"broken.xml":    `<service_def name="S" id="urn:x"><message_def message_id="0x0001"/></service_def>`,
	})

	c := NewCache(log)

	t.Run("memoizes documents", func(t *testing.T) {
		path := filepath.Join(root, "good.xml")
		d1, err := c.Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(d1.Messages) != 1 || d1.Messages[0].Name != "Alive" {
			t.Errorf("unexpected document content: %+v", d1)
		}

		d2, err := c.Load(path)
		if err != nil {
			t.Fatalf("second Load() error = %v", err)
		}
		if d1 != d2 {
			t.Error("Load() should return the memoized document")
		}
	})

	t.Run("memoizes failures", func(t *testing.T) {
		path := filepath.Join(root, "malformed.xml")
		_, err1 := c.Load(path)
		if err1 == nil {
			t.Fatal("Load() expected error for malformed document")
		}

		var perr *ParseError
		if !errors.As(err1, &perr) {
			t.Fatalf("Load() error type = %T, want *ParseError", err1)
		}
		if perr.Path != path {
			t.Errorf("ParseError.Path = %s, want %s", perr.Path, path)
		}

		_, err2 := c.Load(path)
		if err1 != err2 {
			t.Error("Load() should return the memoized failure")
		}
	})

	t.Run("structural errors become parse errors", func(t *testing.T) {
		_, err := c.Load(filepath.Join(root, "broken.xml"))
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("Load() error type = %T, want *ParseError", err)
		}
		if errors.Unwrap(perr) == nil {
			t.Error("ParseError should wrap the underlying cause")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := c.Load(filepath.Join(root, "nonexistent.xml"))
		if err == nil {
			t.Error("Load() expected error for missing file")
		}
	})
}

func TestCacheLocalFirst(t *testing.T) {
	log := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	root := t.TempDir()

	writeFiles(t, root, map[string]string{
		"core/types.xml":     validServiceDoc,
		"core/services.xml":  validServiceDoc,
		"mobility/types.xml": validServiceDoc,
	})

	c := NewCache(log)
	if err := c.Scan(root, nil); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(c.Paths()) != 3 {
		t.Fatalf("Paths() length = %d, want 3", len(c.Paths()))
	}

	mobilityDir, err := filepath.Abs(filepath.Join(root, "mobility"))
	if err != nil {
		t.Fatalf("filepath.Abs() error = %v", err)
	}

	ordered := c.LocalFirst(mobilityDir)
	if len(ordered) != 3 {
		t.Fatalf("LocalFirst() length = %d, want 3", len(ordered))
	}
	if filepath.Dir(ordered[0]) != mobilityDir {
		t.Errorf("LocalFirst()[0] = %s, want document under %s", ordered[0], mobilityDir)
	}

	// remaining entries keep their scan order
	if filepath.Base(ordered[1]) != "services.xml" || filepath.Base(ordered[2]) != "types.xml" {
		t.Errorf("LocalFirst() rest = [%s, %s], want scan order", ordered[1], ordered[2])
	}
}
