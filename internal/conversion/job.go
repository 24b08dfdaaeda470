package conversion

import (
	"crypto/md5"
	"encoding/hex"
	"path/filepath"
	"time"
)

// Status classifies how a job ended.
type Status string

const (
	StatusConverted Status = "converted"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Skip reasons reported on skipped outcomes.
const (
	ReasonIneligible = "ineligible"
	ReasonExists     = "already converted"
)

// Job describes the paths involved in converting a single file.
type Job struct {
	SourcePath     string
	DestinationDir string
	TargetPath     string
	TempPath       string
}

// TargetName returns the base name of the final output file.
func (j Job) TargetName() string {
	return filepath.Base(j.TargetPath)
}

// Outcome reports how a job ended.
type Outcome struct {
	Job       Job
	Status    Status
	Reason    string
	StartedAt time.Time
	Duration  time.Duration
	Err       error
}

// TempName derives the temp file name used while the remote export writes.
// It depends only on the target file name, so two sources with distinct
// target names never share a temp path.
func TempName(targetFileName string) string {
	sum := md5.Sum([]byte(targetFileName))
	return hex.EncodeToString(sum[:])
}
