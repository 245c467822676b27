package generate

import (
	"fmt"
	"os"

	"go.uber.org/multierr"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const catalogFile = "catalog.db"

// writeCatalog stores the run's message and service registries in a small
// sqlite database so other tooling can query them without parsing the
// generated files. The database is rebuilt from scratch on every run.
func (g *generator) writeCatalog(path string) (err error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("unable to replace catalog: %w", err)
	}

	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate)
	if err != nil {
		return fmt.Errorf("unable to create catalog: %w", err)
	}
	defer func() {
		err = multierr.Append(err, conn.Close())
	}()

	stmts := []string{
		`CREATE TABLE messages (
			name TEXT NOT NULL,
			message_id TEXT NOT NULL,
			is_command INTEGER NOT NULL,
			source TEXT NOT NULL,
			written INTEGER NOT NULL
		)`,
		`CREATE TABLE services (
			name TEXT NOT NULL,
			uri TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if err := sqlitex.Execute(conn, stmt, nil); err != nil {
			return fmt.Errorf("unable to prepare catalog schema: %w", err)
		}
	}

	for _, rec := range g.records {
		err := sqlitex.Execute(conn,
			`INSERT INTO messages (name, message_id, is_command, source, written) VALUES (?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{
				Args: []any{rec.Name, rec.MessageID, flag(rec.IsCommand), rec.Source, flag(rec.Written)},
			})
		if err != nil {
			return fmt.Errorf("unable to store message %s: %w", rec.Name, err)
		}
	}

	for _, key := range g.serviceOrder {
		err := sqlitex.Execute(conn,
			`INSERT INTO services (name, uri) VALUES (?, ?)`,
			&sqlitex.ExecOptions{
				Args: []any{key, g.services[key]},
			})
		if err != nil {
			return fmt.Errorf("unable to store service %s: %w", key, err)
		}
	}
	return nil
}

func flag(v bool) int64 {
	if v {
		return 1
	}
	return 0
}
