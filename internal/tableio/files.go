package tableio

import (
	"fmt"
	"io"

	"github.com/banshee-data/temporal-compression/internal/fsutil"
	"github.com/banshee-data/temporal-compression/internal/reference"
	"github.com/banshee-data/temporal-compression/internal/trial"
)

// ReadTrialsFile opens path on fsys and reads it as condition c.
func ReadTrialsFile(fsys fsutil.FileSystem, path string, c trial.Condition) (*trial.Table, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s table: %w", c, err)
	}
	defer f.Close()
	return ReadTrials(f, c)
}

// ReadRoutesFile opens path on fsys and reads the route reference table.
func ReadRoutesFile(fsys fsutil.FileSystem, path string) (*reference.Routes, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open route table: %w", err)
	}
	defer f.Close()
	return ReadRoutes(f)
}

// WriteFlatFile writes the flat table to path on fsys.
func WriteFlatFile(fsys fsutil.FileSystem, path string, tables ...*trial.Table) error {
	return fsutil.WriteFile(fsys, path, func(w io.Writer) error {
		return WriteFlat(w, tables...)
	})
}

// WriteJSONFile writes v as indented JSON to path on fsys.
func WriteJSONFile(fsys fsutil.FileSystem, path string, v any) error {
	return fsutil.WriteFile(fsys, path, func(w io.Writer) error {
		return WriteJSON(w, v)
	})
}
