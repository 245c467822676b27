package generate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"jsg/jsidl"
)

func TestProcessDocumentDuplicates(t *testing.T) {
	g := setupTestGenerator(t)
	doc := parseTestDoc(t, `<service_def name="S" id="urn:jaus:jss:test:S" version="1.0">
  <message_def name="Dup" message_id="0x0001">
    <body><record name="R"/></body>
  </message_def>
  <message_def name="Dup" message_id="0x0001">
    <body><record name="R"/></body>
  </message_def>
</service_def>`)

	g.processDocument(doc)

	if len(g.records) != 1 {
		t.Fatalf("records = %d, want 1", len(g.records))
	}
	rec := g.records[0]
	if !rec.Written || rec.FileName != "Dup_0x0001.json" {
		t.Errorf("record = %+v, want written Dup_0x0001.json", rec)
	}
	if _, err := os.Stat(filepath.Join(g.outDir, rec.FileName)); err != nil {
		t.Errorf("schema file missing: %v", err)
	}

	if len(g.duplicates) != 1 {
		t.Fatalf("duplicates = %d, want 1", len(g.duplicates))
	}
	d := g.duplicates[0]
	if d.Name != "Dup" || d.MessageID != "0x0001" {
		t.Errorf("duplicate = %+v", d)
	}
	if d.FirstFile != doc.Path || d.File != doc.Path {
		t.Errorf("duplicate files = %s/%s, want both %s", d.File, d.FirstFile, doc.Path)
	}
}

func TestProcessDocumentRecordsFailures(t *testing.T) {
	g := setupTestGenerator(t)
	doc := parseTestDoc(t, `<service_def name="S" id="urn:jaus:jss:test:S" version="1.0">
  <message_def name="Broken" message_id="0x0002">
    <body>
      <record name="R">
        <list name="L"><record name="M"/></list>
      </record>
    </body>
  </message_def>
</service_def>`)

	g.processDocument(doc)

	// a failing message still shows up in the bookkeeping, just unwritten
	if len(g.records) != 1 {
		t.Fatalf("records = %d, want 1", len(g.records))
	}
	rec := g.records[0]
	if rec.Written || len(rec.FileName) > 0 {
		t.Errorf("record = %+v, want unwritten without file name", rec)
	}

	if len(g.failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(g.failures))
	}
	f := g.failures[0]
	if f.Name != "Broken" || f.File != doc.Path || f.Err == nil {
		t.Errorf("failure = %+v", f)
	}
	if g.written() != 0 {
		t.Errorf("written() = %d, want 0", g.written())
	}
}

func TestSharedIDs(t *testing.T) {
	g := setupTestGenerator(t)
	doc := parseTestDoc(t, `<service_def name="S" id="urn:jaus:jss:test:S" version="1.0">
  <message_def name="First" message_id="0x0010">
    <body><record name="R"/></body>
  </message_def>
  <message_def name="Second" message_id="0x0010">
    <body><record name="R"/></body>
  </message_def>
  <message_def name="Third" message_id="0x0002">
    <body><record name="R"/></body>
  </message_def>
  <message_def name="Fourth" message_id="0x0002">
    <body><record name="R"/></body>
  </message_def>
  <message_def name="Alone" message_id="0x0003">
    <body><record name="R"/></body>
  </message_def>
</service_def>`)

	g.processDocument(doc)

	shared := g.sharedIDs()
	if len(shared) != 2 {
		t.Fatalf("sharedIDs() = %v, want 2 entries", shared)
	}
	if shared[0] != "0x0002" || shared[1] != "0x0010" {
		t.Errorf("sharedIDs() = %v, want natural order [0x0002 0x0010]", shared)
	}
	if names := g.idNames["0x0010"]; len(names) != 2 || names[0] != "First" || names[1] != "Second" {
		t.Errorf("idNames[0x0010] = %v", names)
	}
}

func TestRegisterService(t *testing.T) {
	g := setupTestGenerator(t)

	g.registerService(&jsidl.Document{Service: &jsidl.ServiceDef{
		Name: "AccessControl", ID: "urn:jaus:jss:core:AccessControl",
	}})
	g.registerService(&jsidl.Document{Service: &jsidl.ServiceDef{
		Name: "AccessControl", ID: "urn:jaus:jss:iop:AccessControl",
	}})
	g.registerService(&jsidl.Document{Service: &jsidl.ServiceDef{
		Name: "Liveness", ID: "urn:jaus:jss:core:Liveness",
	}})

	if len(g.serviceOrder) != 3 {
		t.Fatalf("serviceOrder = %v, want 3 entries", g.serviceOrder)
	}
	want := []string{"AccessControl", "AccessControlIop", "Liveness"}
	for i, key := range want {
		if g.serviceOrder[i] != key {
			t.Errorf("serviceOrder[%d] = %q, want %q", i, g.serviceOrder[i], key)
		}
	}
	if g.services["AccessControl"] != "urn:jaus:jss:core:AccessControl" {
		t.Errorf("first registration overwritten: %q", g.services["AccessControl"])
	}
	if g.services["AccessControlIop"] != "urn:jaus:jss:iop:AccessControl" {
		t.Errorf("disambiguated entry = %q", g.services["AccessControlIop"])
	}
}

func TestGeneratorRun(t *testing.T) {
	log := testLogger(t)

	root := t.TempDir()
	writeTestFile(t, root, "service.xml", `<service_def name="Svc" id="urn:jaus:jss:test:Svc" version="1.0">
  <message_def name="QueryStatus" message_id="0x2002">
    <body><record name="R"/></body>
  </message_def>
</service_def>`)
	writeTestFile(t, root, "broken.xml", `<service_def name="Unclosed"`)

	c := jsidl.NewCache(log)
	if err := c.Scan(root, nil); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	outDir := t.TempDir()
	g := newGenerator(testEnv(t, log), c, outDir, log)
	if err := g.run(context.Background()); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	if len(g.records) != 1 || !g.records[0].Written {
		t.Errorf("records = %+v, want one written message", g.records)
	}
	if _, err := os.Stat(filepath.Join(outDir, "QueryStatus_0x2002.json")); err != nil {
		t.Errorf("schema file missing: %v", err)
	}

	// the unparsable document is recorded but does not stop the run
	if len(g.failures) != 1 {
		t.Fatalf("failures = %v, want 1", g.failures)
	}
	f := g.failures[0]
	if len(f.Name) > 0 || f.File != filepath.Join(root, "broken.xml") {
		t.Errorf("failure = %+v", f)
	}
}

func TestGeneratorRunCancelled(t *testing.T) {
	log := testLogger(t)

	root := t.TempDir()
	writeTestFile(t, root, "service.xml", `<service_def name="Svc" id="urn:jaus:jss:test:Svc" version="1.0">
  <message_def name="QueryStatus" message_id="0x2002">
    <body><record name="R"/></body>
  </message_def>
</service_def>`)

	c := jsidl.NewCache(log)
	if err := c.Scan(root, nil); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := newGenerator(testEnv(t, log), c, t.TempDir(), log)
	if err := g.run(ctx); err != context.Canceled {
		t.Errorf("run() error = %v, want context.Canceled", err)
	}
	if len(g.records) != 0 {
		t.Errorf("records = %v, want none after cancellation", g.records)
	}
}

func TestWritten(t *testing.T) {
	g := setupTestGenerator(t)
	g.records = []*messageRecord{
		{Name: "A", Written: true},
		{Name: "B"},
		{Name: "C", Written: true},
	}
	if got := g.written(); got != 2 {
		t.Errorf("written() = %d, want 2", got)
	}
}

func TestCapitalized(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"core", "Core"},
		{"CORE", "Core"},
		{"iop", "Iop"},
		{"x", "X"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := capitalized(tt.in); got != tt.expected {
			t.Errorf("capitalized(%q) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}
