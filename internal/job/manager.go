package job

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/philipparndt/goply/internal/convert"
	"github.com/philipparndt/goply/pkg/export"
	"github.com/philipparndt/goply/pkg/mesh"
)

// ErrNotFound is returned when a job ID is unknown
var ErrNotFound = errors.New("job not found")

// ErrStillRunning rejects cleanup of a job that has not finished
var ErrStillRunning = errors.New("job is still running")

// Manager runs conversions asynchronously, one goroutine per job. The
// uploaded input file is deleted once its job reaches a terminal state.
type Manager struct {
	store     *Store
	converter *convert.Converter
	logger    *zap.Logger
	wg        sync.WaitGroup
}

// NewManager returns a Manager using the given converter
func NewManager(converter *convert.Converter, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:     NewStore(),
		converter: converter,
		logger:    logger,
	}
}

// Submit registers a new job for the uploaded input file and starts its
// conversion in the background
func (m *Manager) Submit(inputPath, outputDir string, formats []export.Format, smoothing mesh.SmoothingLevel) *Job {
	j := newJob(uuid.NewString(), inputPath, outputDir, formats, smoothing)
	m.store.Put(j)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(j)
	}()
	return j
}

func (m *Manager) run(j *Job) {
	log := m.logger.With(zap.String("job", j.ID()))
	j.start()

	outcome, err := m.converter.Convert(convert.Request{
		InputPath: j.inputPath,
		OutputDir: j.outputDir,
		JobID:     j.ID(),
		Formats:   j.formats,
		Smoothing: j.smoothing,
		Progress:  j.SetProgress,
	})

	defer m.removeInput(j, log)

	if err != nil {
		log.Error("conversion failed", zap.Error(err))
		j.fail(err)
		return
	}

	// outputs must actually be on disk before the job is completed
	for format, path := range outcome.Outputs {
		if _, statErr := os.Stat(path); statErr != nil {
			log.Error("output missing after export",
				zap.String("format", string(format)),
				zap.Error(statErr))
			j.fail(fmt.Errorf("output %s missing: %w", format, statErr))
			return
		}
	}

	log.Info("conversion completed",
		zap.Int("outputs", len(outcome.Outputs)),
		zap.Int("failedFormats", len(outcome.Failed)))
	j.complete(outcome.Outputs)
}

func (m *Manager) removeInput(j *Job, log *zap.Logger) {
	if j.inputPath == "" {
		return
	}
	if err := os.Remove(j.inputPath); err != nil && !os.IsNotExist(err) {
		log.Warn("could not remove input file", zap.Error(err))
	}
}

// Get returns the current state of a job
func (m *Manager) Get(id string) (Snapshot, error) {
	j, ok := m.store.Get(id)
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return j.Snapshot(), nil
}

// Output returns the artifact path for a completed job and format
func (m *Manager) Output(id string, format export.Format) (string, error) {
	j, ok := m.store.Get(id)
	if !ok {
		return "", ErrNotFound
	}
	path, found := j.Output(format)
	if !found {
		return "", fmt.Errorf("job %s has no %s output", id, format)
	}
	return path, nil
}

// Cleanup removes a finished job's artifacts and forgets the job. Jobs
// still running cannot be cleaned up.
func (m *Manager) Cleanup(id string) error {
	j, ok := m.store.Get(id)
	if !ok {
		return ErrNotFound
	}
	if !j.Terminal() {
		return ErrStillRunning
	}

	snap := j.Snapshot()
	for _, path := range snap.Outputs {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove artifact: %w", err)
		}
	}
	m.store.Delete(id)
	return nil
}

// List returns the state of all registered jobs, newest first
func (m *Manager) List() []Snapshot {
	return m.store.Snapshots()
}

// Wait blocks until every submitted job has finished
func (m *Manager) Wait() {
	m.wg.Wait()
}
