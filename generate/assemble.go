package generate

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/maruel/natural"
	"go.uber.org/zap"

	"jsg/jsidl"
	"jsg/state"
)

// identity is what makes a message definition unique across the whole run.
type identity struct {
	hex  string
	name string
}

type knownFormat struct {
	node *jsidl.Node
	doc  *jsidl.Document
}

// messageRecord is the bookkeeping entry behind lookup tables and the run
// summary. It is created before translation so failed messages still appear
// in the tables.
type messageRecord struct {
	Name      string `json:"name"`
	MessageID string `json:"messageId"`
	IsCommand bool   `json:"isCommand"`
	Source    string `json:"source"`
	Written   bool   `json:"written"`
	FileName  string `json:"fileName,omitempty"`
}

type duplicate struct {
	Name      string `json:"name"`
	MessageID string `json:"messageId"`
	File      string `json:"file"`
	FirstFile string `json:"firstFile"`
}

type failure struct {
	Name string
	File string
	Err  error
}

// generator accumulates everything a single run produces: translated
// schemas on disk plus the identity bookkeeping for tables and diagnostics.
type generator struct {
	env   *state.LocalEnv
	log   *zap.Logger
	cache *jsidl.Cache

	outDir string

	formats    map[string]knownFormat
	seen       map[identity]string
	idNames    map[string][]string
	records    []*messageRecord
	duplicates []duplicate
	failures   []failure

	services     map[string]string
	serviceOrder []string

	// identity of the message currently being translated
	curName string
	curHex  string
}

func newGenerator(env *state.LocalEnv, cache *jsidl.Cache, outDir string, log *zap.Logger) *generator {
	return &generator{
		env:      env,
		log:      log,
		cache:    cache,
		outDir:   outDir,
		formats:  make(map[string]knownFormat),
		seen:     make(map[identity]string),
		idNames:  make(map[string][]string),
		services: make(map[string]string),
	}
}

// run processes every enumerated document in order. Only cancellation stops
// the run; unreadable documents and failing messages are recorded and
// skipped.
func (g *generator) run(ctx context.Context) error {
	for _, path := range g.cache.Paths() {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc, err := g.cache.Load(path)
		if err != nil {
			g.failures = append(g.failures, failure{File: path, Err: err})
			g.log.Warn("Unable to parse document", zap.String("file", path), zap.Error(err))
			continue
		}
		g.processDocument(doc)
	}
	return nil
}

func (g *generator) processDocument(doc *jsidl.Document) {
	g.log.Debug("Processing document", zap.String("file", doc.Path), zap.Int("messages", len(doc.Messages)))
	if doc.Service != nil {
		g.registerService(doc)
	}
	for _, m := range doc.Messages {
		g.processMessage(doc, m)
	}
}

// registerService records the service identity for the service uri table.
// When two services share a name, the second entry is disambiguated with
// the penultimate segment of its uri.
func (g *generator) registerService(doc *jsidl.Document) {
	key := doc.Service.Name
	if _, taken := g.services[key]; taken {
		parts := strings.Split(doc.Service.ID, ":")
		if len(parts) >= 2 {
			key += capitalized(parts[len(parts)-2])
		}
	}
	if _, exists := g.services[key]; !exists {
		g.serviceOrder = append(g.serviceOrder, key)
	}
	g.services[key] = doc.Service.ID
}

func (g *generator) processMessage(doc *jsidl.Document, m *jsidl.MessageDef) {
	id := identity{hex: m.MessageID, name: m.Name}
	if first, done := g.seen[id]; done {
		g.duplicates = append(g.duplicates, duplicate{
			Name:      m.Name,
			MessageID: m.MessageID,
			File:      doc.Path,
			FirstFile: first,
		})
		g.log.Debug("Skipping duplicate message definition",
			zap.String("message", m.Name),
			zap.String("id", m.MessageID),
			zap.String("file", doc.Path),
			zap.String("first", first))
		return
	}
	g.seen[id] = doc.Path
	g.idNames[m.MessageID] = append(g.idNames[m.MessageID], m.Name)

	rec := &messageRecord{Name: m.Name, MessageID: m.MessageID, IsCommand: m.IsCommand, Source: doc.Path}
	g.records = append(g.records, rec)

	g.curName, g.curHex = m.Name, m.MessageID
	g.log.Debug("Translating message", zap.String("message", m.Name), zap.String("id", m.MessageID))

	schema := newMessageSchema(m)
	if err := g.translateMessage(doc, m, schema); err != nil {
		g.failures = append(g.failures, failure{Name: m.Name, File: doc.Path, Err: err})
		g.log.Warn("Unable to translate message",
			zap.String("message", m.Name),
			zap.String("file", doc.Path),
			zap.Error(err))
		return
	}

	name := g.schemaFileName(m, doc)
	if err := writeSchema(filepath.Join(g.outDir, name), schema); err != nil {
		g.failures = append(g.failures, failure{Name: m.Name, File: doc.Path, Err: err})
		g.log.Warn("Unable to write schema",
			zap.String("message", m.Name),
			zap.String("file", doc.Path),
			zap.Error(err))
		return
	}
	rec.Written = true
	rec.FileName = name
}

func (g *generator) translateMessage(doc *jsidl.Document, m *jsidl.MessageDef, schema *MessageSchema) error {
	sections := []struct {
		sec  *jsidl.Section
		kind jsidl.NodeKind
	}{
		{&m.Header, jsidl.KindHeader},
		{&m.Body, jsidl.KindBody},
		{&m.Footer, jsidl.KindFooter},
	}
	for _, s := range sections {
		if err := g.translateSection(doc, s.sec, s.kind, schema); err != nil {
			return err
		}
	}
	return nil
}

// translateSection expands one of the message sections into the schema.
// Inline content wins over a declared reference; an absent section simply
// contributes nothing.
func (g *generator) translateSection(doc *jsidl.Document, sec *jsidl.Section, kind jsidl.NodeKind, schema *MessageSchema) error {
	switch {
	case len(sec.Nodes) > 0:
		return g.translateNodes(sec.Nodes, schema, doc, 0)
	case len(sec.Ref) > 0:
		n, rdoc, err := g.resolveType(sec.Ref, kind, doc)
		if err != nil {
			return err
		}
		return g.translateNodes(n.Children, schema, rdoc, 0)
	}
	return nil
}

// sharedIDs lists ids claimed by more than one message name, naturally
// sorted for stable diagnostics.
func (g *generator) sharedIDs() []string {
	var ids []string
	for id, names := range g.idNames {
		if len(names) > 1 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return natural.Less(ids[i], ids[j]) })
	return ids
}

func (g *generator) written() int {
	n := 0
	for _, rec := range g.records {
		if rec.Written {
			n++
		}
	}
	return n
}

func (g *generator) logSummary() {
	g.log.Info("Message definitions processed",
		zap.Int("found", len(g.records)),
		zap.Int("written", g.written()),
		zap.Int("failed", len(g.failures)),
		zap.Int("duplicates", len(g.duplicates)))

	if len(g.duplicates) > 0 {
		g.log.Warn("Skipped duplicate message definitions", zap.Int("count", len(g.duplicates)))
		for _, d := range g.duplicates {
			g.log.Debug("Duplicate message definition",
				zap.String("message", d.Name),
				zap.String("id", d.MessageID),
				zap.String("file", d.File),
				zap.String("first", d.FirstFile))
		}
	}

	if shared := g.sharedIDs(); len(shared) > 0 {
		g.log.Warn("Found ids shared by multiple message names", zap.Int("count", len(shared)))
		for _, id := range shared {
			g.log.Warn("Shared message id",
				zap.String("id", id),
				zap.Strings("messages", g.idNames[id]))
		}
	}

	for _, f := range g.failures {
		if len(f.Name) > 0 {
			g.log.Warn("Message translation failed",
				zap.String("message", f.Name),
				zap.String("file", f.File),
				zap.Error(f.Err))
			continue
		}
		g.log.Warn("Document processing failed", zap.String("file", f.File), zap.Error(f.Err))
	}
}

// capitalized upper cases the first rune and lower cases the rest.
func capitalized(s string) string {
	rs := []rune(s)
	if len(rs) == 0 {
		return s
	}
	rs[0] = unicode.ToUpper(rs[0])
	for i := 1; i < len(rs); i++ {
		rs[i] = unicode.ToLower(rs[i])
	}
	return string(rs)
}
