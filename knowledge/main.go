package knowledge

import (
	"sort"
	"strings"
)

const defaultLimit = 3

// Entry pairs failure symptoms with remediation advice
type Entry struct {
	Topic    string
	Keywords []string
	Advice   string
}

// Base is an in memory remediation index consulted when strategies fail
type Base struct {
	entries []Entry
}

// NewBase seeds the index with the failure modes the pipeline produces
func NewBase() *Base {
	return &Base{entries: []Entry{
		{
			Topic:    "timeout",
			Keywords: []string{"timeout", "timed out", "deadline"},
			Advice:   "the strategy ran out of time, lower the epoch count or raise the per strategy timeout",
		},
		{
			Topic:    "aborted",
			Keywords: []string{"aborted", "cancelled", "canceled"},
			Advice:   "the strategy was cancelled before finishing, rerun it alone or without early stop",
		},
		{
			Topic:    "data",
			Keywords: []string{"data", "dataset", "samples", "capture"},
			Advice:   "data preparation failed, check that every category has enough samples",
		},
		{
			Topic:    "model",
			Keywords: []string{"model", "architecture", "backbone", "layer"},
			Advice:   "model construction failed, verify the architecture settings and backbone availability",
		},
		{
			Topic:    "training",
			Keywords: []string{"training", "train", "nan", "diverge", "loss"},
			Advice:   "training failed or diverged, reduce the learning rate or the batch size",
		},
		{
			Topic:    "evaluation",
			Keywords: []string{"evaluation", "evaluate", "metric"},
			Advice:   "evaluation failed, make sure the held out set is non empty",
		},
		{
			Topic:    "accuracy",
			Keywords: []string{"accuracy", "underfit", "low score"},
			Advice:   "accuracy fell short, add training samples or try the ensemble approach",
		},
		{
			Topic:    "memory",
			Keywords: []string{"memory", "oom", "allocation"},
			Advice:   "the run exhausted memory, shrink the input size or the ensemble member count",
		},
	}}
}

// Search scores entries by keyword hits in text and returns the advice of
// the best matches, strongest first. limit <= 0 means the default of 3
func (b *Base) Search(text string, limit int) []string {
	if limit <= 0 {
		limit = defaultLimit
	}
	text = strings.ToLower(text)

	type scored struct {
		entry Entry
		score int
	}
	matches := make([]scored, 0, len(b.entries))
	for _, entry := range b.entries {
		score := 0
		for _, keyword := range entry.Keywords {
			if strings.Contains(text, keyword) {
				score = score + 1
			}
		}
		if score > 0 {
			matches = append(matches, scored{entry, score})
		}
	}
	if len(matches) == 0 {
		return nil
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	advice := make([]string, len(matches))
	for i, m := range matches {
		advice[i] = m.entry.Advice
	}
	return advice
}
