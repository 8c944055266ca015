// Package job tracks asynchronous conversion jobs: their lifecycle,
// monotonic progress, produced artifacts, and cleanup.
package job

import (
	"sync"
	"time"

	"github.com/philipparndt/goply/pkg/export"
	"github.com/philipparndt/goply/pkg/mesh"
)

// Status is the lifecycle state of a job
type Status string

const (
	StatusCreated   Status = "created"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the job has finished, successfully or not
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one tracked conversion. All state behind the mutex; callers
// observe it through Snapshot.
type Job struct {
	id        string
	inputPath string
	outputDir string
	formats   []export.Format
	smoothing mesh.SmoothingLevel

	mu       sync.Mutex
	status   Status
	progress int
	stage    string
	errMsg   string
	outputs  map[export.Format]string
	created  time.Time
	updated  time.Time
}

func newJob(id, inputPath, outputDir string, formats []export.Format, smoothing mesh.SmoothingLevel) *Job {
	now := time.Now()
	return &Job{
		id:        id,
		inputPath: inputPath,
		outputDir: outputDir,
		formats:   formats,
		smoothing: smoothing,
		status:    StatusCreated,
		created:   now,
		updated:   now,
	}
}

// ID returns the job identifier
func (j *Job) ID() string { return j.id }

// Snapshot is an immutable view of a job, safe to serialize
type Snapshot struct {
	ID        string            `json:"id"`
	Status    Status            `json:"status"`
	Progress  int               `json:"progress"`
	Stage     string            `json:"stage,omitempty"`
	Error     string            `json:"error,omitempty"`
	Outputs   map[string]string `json:"outputs,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Snapshot returns the job's current state
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	snap := Snapshot{
		ID:        j.id,
		Status:    j.status,
		Progress:  j.progress,
		Stage:     j.stage,
		Error:     j.errMsg,
		CreatedAt: j.created,
		UpdatedAt: j.updated,
	}
	if len(j.outputs) > 0 {
		snap.Outputs = make(map[string]string, len(j.outputs))
		for f, p := range j.outputs {
			snap.Outputs[string(f)] = p
		}
	}
	return snap
}

// SetProgress advances the progress indicator. Progress never moves
// backwards; stale or duplicate reports are absorbed.
func (j *Job) SetProgress(percent int, stage string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if percent > 100 {
		percent = 100
	}
	if percent > j.progress {
		j.progress = percent
	}
	if stage != "" {
		j.stage = stage
	}
	j.updated = time.Now()
}

func (j *Job) start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = StatusRunning
	j.updated = time.Now()
}

func (j *Job) complete(outputs map[export.Format]string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = StatusCompleted
	j.progress = 100
	j.stage = "completed"
	j.outputs = outputs
	j.updated = time.Now()
}

func (j *Job) fail(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = StatusFailed
	j.stage = "failed"
	j.errMsg = err.Error()
	j.updated = time.Now()
}

// Output returns the artifact path for a format, if the job produced one
func (j *Job) Output(format export.Format) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	path, ok := j.outputs[format]
	return path, ok
}

// Terminal reports whether the job has finished
func (j *Job) Terminal() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status.Terminal()
}
