package convert

// ProgressFunc receives pipeline progress as a percentage and a short
// stage description. Implementations must tolerate repeated calls with
// the same percentage; the pipeline itself only ever moves forward.
type ProgressFunc func(percent int, stage string)

// pipeline milestones
const (
	progressLoading       = 5
	progressLoaded        = 15
	progressClassified    = 25
	progressNormals       = 35
	progressReconstructed = 45
	progressOriented      = 55
	progressSmoothed      = 65
	progressCleaned       = 75
	progressExporting     = 80
	progressExportCap     = 95
	progressDone          = 100
)

// report is a nil-safe progress call
func (p ProgressFunc) report(percent int, stage string) {
	if p != nil {
		p(percent, stage)
	}
}

// exportProgress spreads the export span across the requested formats.
// The span tops out below 100; only a successful conversion reports 100.
func exportProgress(started, total int) int {
	if total <= 0 {
		return progressExportCap
	}
	span := progressExportCap - progressExporting
	return progressExporting + started*span/total
}
