package generate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// encodeSchema renders a schema with two space indentation. Rendering the
// same schema twice yields identical bytes.
func encodeSchema(s *MessageSchema) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("unable to encode schema for %s: %w", s.Title, err)
	}
	return buf.Bytes(), nil
}

func writeSchema(path string, s *MessageSchema) error {
	data, err := encodeSchema(s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("unable to write schema file: %w", err)
	}
	return nil
}
