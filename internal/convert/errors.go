package convert

import (
	"errors"
	"fmt"

	"github.com/philipparndt/goply/pkg/export"
)

// ErrNoFormats is returned when a conversion is requested without any
// output formats
var ErrNoFormats = errors.New("no output formats requested")

// ErrAllExportsFailed is returned when every requested format failed to
// export; partial failure is tolerated, total failure is not
var ErrAllExportsFailed = errors.New("all export formats failed")

// LoadError wraps a failure to read or parse the input file
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ExportError records a single format that could not be written
type ExportError struct {
	Format export.Format
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Format, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }
