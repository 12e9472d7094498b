package types

// Dataset is an opaque handle to the data a run trains against. The execution
// core hands it to the data phase delegate without inspecting it.
type Dataset interface{}

// TaskKind identifies the family of learning task
type TaskKind string

const (
	TaskImageClassification TaskKind = "image_classification"
)

// Task is the structured form of a user's task description
type Task struct {
	Kind        TaskKind `json:"kind"`
	Description string   `json:"description"`
	// Categories the classifier should distinguish
	Categories []string `json:"categories"`
	// TargetAccuracy the user asked for, in (0, 1]
	TargetAccuracy float64 `json:"target_accuracy"`
	// SamplesPerClass dataset hint. Zero means unknown
	SamplesPerClass int `json:"samples_per_class,omitempty"`
}

// DatasetProfile describes the dataset assembled for a run
type DatasetProfile struct {
	Name            string         `json:"name"`
	Categories      []string       `json:"categories"`
	SamplesPerClass map[string]int `json:"samples_per_class"`
	Augmented       bool           `json:"augmented"`
}

// TotalSamples sums the per category counts
func (d *DatasetProfile) TotalSamples() int {
	total := 0
	for _, n := range d.SamplesPerClass {
		total = total + n
	}
	return total
}
