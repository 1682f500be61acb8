// Package dispatch decides which conversion backends a job must reach.
// Plan is pure: no I/O, same outputs always produce the same targets,
// so a retry can safely re-plan.
package dispatch

import "github.com/trunov/converthub/internal/entities"

const (
	// BackendOffice renders office formats (docx, pptx).
	BackendOffice = "office-converter"
	// BackendExtraction extracts text and images from the source.
	BackendExtraction = "extraction"
)

// officeFormats maps requested formats to the office backend.
var officeFormats = map[string]bool{
	"docx": true,
	"pptx": true,
}

// extractionFormats are served by the extraction backend alone.
var extractionFormats = map[string]bool{
	"text":  true,
	"image": true,
}

// Recognized reports whether the format can be produced by any backend.
func Recognized(format string) bool {
	return officeFormats[format] || extractionFormats[format]
}

// Target names one backend queue together with the outputs it should
// produce for the job.
type Target struct {
	Backend string
	Outputs []entities.Output
}

// Plan partitions the requested outputs into backend targets. Office
// formats go to the office backend; the extraction backend is targeted
// unconditionally with the full output list, so text/image extraction
// runs in parallel even when nobody asked for it. Downstream indexing
// relies on that redundancy.
//
// Targets come back in stable order: office first (when present), then
// extraction.
func Plan(outputs []entities.Output) []Target {
	var office []entities.Output
	for _, o := range outputs {
		if officeFormats[o.Format] {
			office = append(office, o)
		}
	}

	var targets []Target
	if len(office) > 0 {
		targets = append(targets, Target{Backend: BackendOffice, Outputs: office})
	}
	targets = append(targets, Target{Backend: BackendExtraction, Outputs: outputs})
	return targets
}
