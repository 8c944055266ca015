// Package convert drives the full PLY conversion pipeline: load and
// classify the input, reconstruct point clouds or smooth original meshes,
// fix face orientation, and export to the requested formats.
package convert

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/philipparndt/goply/internal/reconstruct"
	"github.com/philipparndt/goply/pkg/export"
	"github.com/philipparndt/goply/pkg/mesh"
	"github.com/philipparndt/goply/pkg/ply"
)

// Source kinds reported in the outcome
const (
	SourcePointCloud = "point-cloud"
	SourceMesh       = "mesh"
)

// weldEpsilonFraction sets the vertex-merge tolerance relative to the
// bounding box diagonal
const weldEpsilonFraction = 1e-9

// Request describes one conversion
type Request struct {
	InputPath string
	OutputDir string
	JobID     string
	Formats   []export.Format
	Smoothing mesh.SmoothingLevel
	Progress  ProgressFunc
}

// Outcome reports what the pipeline produced. Outputs maps each format
// that succeeded to its file path; Failed records formats that could not
// be written.
type Outcome struct {
	Outputs  map[export.Format]string
	Failed   map[export.Format]error
	Source   string
	Strategy string
	Vertices int
	Faces    int
}

// Converter runs conversion requests. Safe for concurrent use.
type Converter struct {
	reconstructor *reconstruct.Reconstructor
	fixer         *mesh.OrientationFixer
	logger        *zap.Logger
}

// Options tune the conversion pipeline
type Options struct {
	// OutwardRatioThreshold is the outward-facing ratio below which a mesh
	// is rebuilt double-sided
	OutwardRatioThreshold float64
	// DensityStdDevCutoff controls pruning of weakly supported vertices
	// after dense reconstruction
	DensityStdDevCutoff float64
}

// DefaultOptions returns the standard pipeline tuning
func DefaultOptions() Options {
	return Options{
		OutwardRatioThreshold: mesh.DefaultOutwardRatioThreshold,
		DensityStdDevCutoff:   reconstruct.DefaultDensityStdDevCutoff,
	}
}

// New returns a Converter with default reconstruction and orientation
// settings
func New(logger *zap.Logger) *Converter {
	return NewWithOptions(DefaultOptions(), logger)
}

// NewWithOptions returns a Converter with the given tuning
func NewWithOptions(opts Options, logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	reconstructor := reconstruct.New(logger)
	reconstructor.DensityCutoff = opts.DensityStdDevCutoff
	return &Converter{
		reconstructor: reconstructor,
		fixer:         &mesh.OrientationFixer{Threshold: opts.OutwardRatioThreshold},
		logger:        logger,
	}
}

// Convert runs the pipeline for one request. Individual export formats
// may fail without failing the conversion; only a conversion where no
// format succeeds returns an error.
func (c *Converter) Convert(req Request) (*Outcome, error) {
	if len(req.Formats) == 0 {
		return nil, ErrNoFormats
	}
	jobID := req.JobID
	if jobID == "" {
		base := filepath.Base(req.InputPath)
		jobID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	log := c.logger.With(zap.String("job", jobID))

	req.Progress.report(progressLoading, "loading input")
	cloud, err := ply.Load(req.InputPath)
	if err != nil {
		return nil, &LoadError{Path: req.InputPath, Err: err}
	}
	req.Progress.report(progressLoaded, "input parsed")
	log.Info("input loaded",
		zap.Int("points", len(cloud.Points)),
		zap.Int("faces", len(cloud.Faces)),
		zap.Bool("colors", cloud.HasColors()))

	outcome := &Outcome{
		Outputs: make(map[export.Format]string),
		Failed:  make(map[export.Format]error),
	}

	var m *mesh.Mesh
	if cloud.IsPointCloud() {
		outcome.Source = SourcePointCloud
		req.Progress.report(progressClassified, "point cloud detected")
		req.Progress.report(progressNormals, "estimating normals")
		result := c.reconstructor.Reconstruct(cloud, req.Smoothing)
		m = result.Mesh
		outcome.Strategy = result.Strategy
		req.Progress.report(progressReconstructed, "surface reconstructed")
		log.Info("surface reconstructed",
			zap.String("strategy", result.Strategy),
			zap.Int("pruned", result.Pruned))
	} else {
		outcome.Source = SourceMesh
		req.Progress.report(progressClassified, "mesh detected")
		m = mesh.FromPointCloud(cloud)
		// PLY files often repeat shared vertices per face
		if diag := m.Bounds().Diagonal(); diag > 0 {
			m.WeldVertices(diag * weldEpsilonFraction)
		}
		req.Progress.report(progressReconstructed, "mesh assembled")
	}

	orientation := c.fixer.Fix(m)
	req.Progress.report(progressOriented, "orientation fixed")
	log.Info("orientation checked",
		zap.Float64("outwardRatio", orientation.OutwardRatio),
		zap.Bool("doubled", orientation.Doubled))

	// reconstructed surfaces are already smoothed by the reconstructor;
	// the level-based pass applies to original meshes only
	if outcome.Source == SourceMesh {
		m.SmoothByLevel(req.Smoothing)
	}
	req.Progress.report(progressSmoothed, "smoothing applied")

	m.Cleanup()
	req.Progress.report(progressCleaned, "mesh cleaned")
	if m.FaceCount() == 0 {
		return nil, errors.New("conversion produced an empty mesh")
	}
	outcome.Vertices = m.VertexCount()
	outcome.Faces = m.FaceCount()

	var exportErrs []error
	for i, format := range req.Formats {
		req.Progress.report(exportProgress(i, len(req.Formats)), fmt.Sprintf("exporting %s", format))
		path := filepath.Join(req.OutputDir, fmt.Sprintf("%s_smooth.%s", jobID, format))
		if err := export.Write(m, path, format); err != nil {
			log.Warn("export failed",
				zap.String("format", string(format)),
				zap.Error(err))
			outcome.Failed[format] = err
			exportErrs = append(exportErrs, &ExportError{Format: format, Err: err})
			os.Remove(path)
		} else {
			outcome.Outputs[format] = path
		}
	}

	if len(outcome.Outputs) == 0 {
		return nil, errors.Join(append([]error{ErrAllExportsFailed}, exportErrs...)...)
	}

	req.Progress.report(progressDone, "completed")
	return outcome, nil
}
