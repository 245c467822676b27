package generate

import (
	"path/filepath"
	"testing"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

func TestWriteCatalog(t *testing.T) {
	g := setupTestGenerator(t)
	g.records = []*messageRecord{
		{Name: "QueryAuthority", MessageID: "0x0001", Source: "core.xml", Written: true},
		{Name: "SetAuthority", MessageID: "0x0004", IsCommand: true, Source: "core.xml", Written: true},
		{Name: "Untranslatable", MessageID: "0x00ff", Source: "odd.xml"},
	}
	g.services = map[string]string{"AccessControl": "urn:jaus:jss:core:AccessControl"}
	g.serviceOrder = []string{"AccessControl"}

	path := filepath.Join(t.TempDir(), catalogFile)
	if err := g.writeCatalog(path); err != nil {
		t.Fatalf("writeCatalog() error = %v", err)
	}

	conn, err := sqlite.OpenConn(path, sqlite.OpenReadOnly)
	if err != nil {
		t.Fatalf("unable to open catalog: %v", err)
	}
	defer conn.Close()

	type message struct {
		name    string
		id      string
		command int64
		source  string
		written int64
	}
	var msgs []message
	err = sqlitex.Execute(conn, `SELECT name, message_id, is_command, source, written FROM messages ORDER BY rowid`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				msgs = append(msgs, message{
					name:    stmt.ColumnText(0),
					id:      stmt.ColumnText(1),
					command: stmt.ColumnInt64(2),
					source:  stmt.ColumnText(3),
					written: stmt.ColumnInt64(4),
				})
				return nil
			},
		})
	if err != nil {
		t.Fatalf("unable to query messages: %v", err)
	}

	if len(msgs) != 3 {
		t.Fatalf("messages = %d, want 3", len(msgs))
	}
	if msgs[0].name != "QueryAuthority" || msgs[0].id != "0x0001" || msgs[0].command != 0 || msgs[0].written != 1 {
		t.Errorf("messages[0] = %+v", msgs[0])
	}
	if msgs[1].name != "SetAuthority" || msgs[1].command != 1 {
		t.Errorf("messages[1] = %+v", msgs[1])
	}
	if msgs[2].written != 0 || msgs[2].source != "odd.xml" {
		t.Errorf("messages[2] = %+v", msgs[2])
	}

	var services [][2]string
	err = sqlitex.Execute(conn, `SELECT name, uri FROM services`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			services = append(services, [2]string{stmt.ColumnText(0), stmt.ColumnText(1)})
			return nil
		},
	})
	if err != nil {
		t.Fatalf("unable to query services: %v", err)
	}
	if len(services) != 1 || services[0][0] != "AccessControl" || services[0][1] != "urn:jaus:jss:core:AccessControl" {
		t.Errorf("services = %v", services)
	}
}

func TestWriteCatalogRebuilds(t *testing.T) {
	g := setupTestGenerator(t)
	g.records = []*messageRecord{{Name: "QueryStatus", MessageID: "0x2002", Source: "s.xml", Written: true}}

	path := filepath.Join(t.TempDir(), catalogFile)
	if err := g.writeCatalog(path); err != nil {
		t.Fatalf("writeCatalog() error = %v", err)
	}
	// a second run replaces the database instead of appending to it
	if err := g.writeCatalog(path); err != nil {
		t.Fatalf("writeCatalog() again error = %v", err)
	}

	conn, err := sqlite.OpenConn(path, sqlite.OpenReadOnly)
	if err != nil {
		t.Fatalf("unable to open catalog: %v", err)
	}
	defer conn.Close()

	count := 0
	err = sqlitex.Execute(conn, `SELECT COUNT(*) FROM messages`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			count = stmt.ColumnInt(0)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("unable to count messages: %v", err)
	}
	if count != 1 {
		t.Errorf("messages = %d, want 1 after rebuild", count)
	}
}
