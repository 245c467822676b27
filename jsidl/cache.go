package jsidl

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/beevik/etree"
	"github.com/maruel/natural"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

// ParseError marks a definition document which could not be turned into a
// Document tree. Only the offending document is lost, processing continues.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unable to parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Cache enumerates definition documents and parses each of them at most
// once, keeping both successful results and failures.
type Cache struct {
	log   *zap.Logger
	paths []string
	docs  map[string]*Document
	fails map[string]error
}

func NewCache(log *zap.Logger) *Cache {
	return &Cache{
		log:   log,
		docs:  make(map[string]*Document),
		fails: make(map[string]error),
	}
}

// Scan walks the input directory collecting definition documents. Whole
// subtrees are dropped when a directory name appears in exclude. Collected
// paths are absolute and naturally sorted so runs are deterministic.
func (c *Cache) Scan(root string, exclude []string) error {
	skip := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		if len(name) > 0 {
			skip[name] = struct{}{}
		}
	}

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root {
				if _, found := skip[info.Name()]; found {
					c.log.Debug("Skipping excluded directory", zap.String("dir", path))
					return filepath.SkipDir
				}
			}
			return nil
		}
		if !info.Mode().IsRegular() || !strings.EqualFold(filepath.Ext(path), ".xml") {
			return nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		c.paths = append(c.paths, abs)
		return nil
	})
	if err != nil {
		return fmt.Errorf("unable to scan %s: %w", root, err)
	}

	sort.Slice(c.paths, func(i, j int) bool { return natural.Less(c.paths[i], c.paths[j]) })
	c.log.Debug("Input scan completed", zap.String("root", root), zap.Int("documents", len(c.paths)))
	return nil
}

// Paths returns the enumerated document paths in processing order.
func (c *Cache) Paths() []string {
	return c.paths
}

// Load parses the document at path, memoizing the outcome either way.
func (c *Cache) Load(path string) (*Document, error) {
	if d, ok := c.docs[path]; ok {
		return d, nil
	}
	if err, ok := c.fails[path]; ok {
		return nil, err
	}

	d, err := c.parse(path)
	if err != nil {
		perr := &ParseError{Path: path, Err: err}
		c.fails[path] = perr
		return nil, perr
	}
	c.docs[path] = d
	return d, nil
}

func (c *Cache) parse(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		ValidateInput: false,
	}
	if _, err := doc.ReadFrom(f); err != nil {
		return nil, err
	}
	return ParseDocument(doc, path, c.log)
}

// LocalFirst orders the enumerated paths so documents under dir come before
// everything else, keeping the relative order within both groups. Reference
// resolution uses it to prefer definition sets shipped next to the document
// that points at them.
func (c *Cache) LocalFirst(dir string) []string {
	prefix := dir
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}

	ordered := make([]string, 0, len(c.paths))
	var rest []string
	for _, p := range c.paths {
		if strings.HasPrefix(p, prefix) {
			ordered = append(ordered, p)
		} else {
			rest = append(rest, p)
		}
	}
	return append(ordered, rest...)
}
