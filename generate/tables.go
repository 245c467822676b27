package generate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Lookup table files, consumed by clients that key messages and services
// at compile time.
const (
	messageIDsFile  = "IopMessageIds.ts"
	serviceURIsFile = "IopServiceUris.ts"
)

// writeTypeScriptTables emits the message id and service uri maps. Entries
// keep the order in which identities were first recorded, so the tables are
// reproducible for the same input set.
func (g *generator) writeTypeScriptTables(dir string) error {
	var ids strings.Builder
	ids.WriteString("export const IopMessageIds = {\n")
	for _, rec := range g.records {
		fmt.Fprintf(&ids, "  %s_%s: %q as const,\n", rec.Name, rec.MessageID, rec.MessageID)
	}
	ids.WriteString("}\n")
	if err := os.WriteFile(filepath.Join(dir, messageIDsFile), []byte(ids.String()), 0644); err != nil {
		return fmt.Errorf("unable to write message id table: %w", err)
	}

	var uris strings.Builder
	uris.WriteString("export const IopServiceUris = {\n")
	for _, key := range g.serviceOrder {
		fmt.Fprintf(&uris, "  %s: %q as const,\n", key, g.services[key])
	}
	uris.WriteString("}\n")
	if err := os.WriteFile(filepath.Join(dir, serviceURIsFile), []byte(uris.String()), 0644); err != nil {
		return fmt.Errorf("unable to write service uri table: %w", err)
	}
	return nil
}
