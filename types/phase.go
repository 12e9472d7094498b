package types

// Phase identifies one stage of the fixed optimization pipeline
type Phase string

const (
	PhaseData       Phase = "data"
	PhaseModel      Phase = "model"
	PhaseTraining   Phase = "training"
	PhaseEvaluation Phase = "evaluation"
)

func (p Phase) String() string {
	return string(p)
}

// Phases returns the pipeline stages in execution order
func Phases() []Phase {
	return []Phase{PhaseData, PhaseModel, PhaseTraining, PhaseEvaluation}
}

// Metric keys phase delegates populate. The execution core plucks these out
// of phase outputs and does not interpret anything else
const (
	MetricAccuracy       = "accuracy"
	MetricLoss           = "loss"
	MetricTrainingTimeMS = "training_time_ms"
	MetricParameters     = "parameters"
)

// PhaseOutput is what a phase delegate hands back. Payload is passed opaquely
// to the next phase
type PhaseOutput struct {
	Payload interface{}        `json:"-"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// Metric returns the named reading if the delegate reported it
func (o *PhaseOutput) Metric(key string) (float64, bool) {
	if o == nil || o.Metrics == nil {
		return 0, false
	}
	v, ok := o.Metrics[key]
	return v, ok
}
