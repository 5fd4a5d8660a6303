package pipeline

import (
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Stage directory names under the output root. Each stage reads the
// directory written by the one before it.
const (
	DirExtracted = "extracted"
	DirMerged    = "merged"
	DirLinked    = "linked"
	DirGeocoded  = "geocoded"
	DirFinal     = "final"
	DirSQL       = "sql"
)

// Report file names written next to stage output.
const (
	DuplicatesFile = "duplicates.json"
	ReportFile     = "report.json"
)

// Run is the context of one stage invocation. It is created per command and
// handed to every step of that command; nothing about a run outlives it.
type Run struct {
	ID        string
	Stage     string
	OutputDir string
	StartedAt time.Time
	Log       *zap.Logger
}

// Dir returns the stage directory name under the run's output root.
func (r *Run) Dir(name string) string {
	return filepath.Join(r.OutputDir, name)
}
