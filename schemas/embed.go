// Package schemas holds the JSON Schemas that generated content is checked against.
package schemas

import "embed"

// Schema file names.
const (
	RoadmapPlan  = "roadmap_plan.schema.json"
	RevisedSteps = "revised_steps.schema.json"
)

//go:embed *.schema.json
var files embed.FS

// Read returns the content of the named schema file.
func Read(name string) ([]byte, error) {
	return files.ReadFile(name)
}
