package knowledge

import (
	"embed"
)

// guidelineData contains the curated guideline dataset embedded in the
// binary, so a deployment never serves without its knowledge base.
//
//go:embed data/guidelines.json
var guidelineData embed.FS

// DefaultDatasetPath is the embedded location of the guideline dataset.
const DefaultDatasetPath = "data/guidelines.json"
