package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile writes doc to path as two-space indented JSON, replacing any
// existing file and creating missing parent directories. The write is not atomic.
func WriteFile(path string, doc any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}

	return nil
}
