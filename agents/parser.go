package agents

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/Nooom01/automl-agent-system/log"
	"github.com/Nooom01/automl-agent-system/types"
)

var ErrEmptyDescription = errors.New("task description is empty")

var (
	versusPattern   = regexp.MustCompile(`(?i)([a-z][a-z0-9_-]*)\s+(?:vs\.?|versus)\s+([a-z][a-z0-9_-]*)`)
	percentPattern  = regexp.MustCompile(`(\d{1,3}(?:\.\d+)?)\s*%`)
	fractionPattern = regexp.MustCompile(`(?i)accuracy\s*(?:of|above|at least)?\s*(0?\.\d+)`)
	classifyPattern = regexp.MustCompile(`(?i)(?:classify|distinguish|recognize|detect|identify)\s+(?:between\s+)?(.+)`)
)

// TaskParser turns a free text description into a structured Task
type TaskParser struct {
	logger *log.Logger
}

func NewTaskParser(logger *log.Logger) *TaskParser {
	return &TaskParser{logger: logger}
}

// Parse extracts the categories and target accuracy mentioned in the
// description. Descriptions that name neither fall back to a binary
// cats/dogs task at 90%
func (p *TaskParser) Parse(description string) (*types.Task, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrEmptyDescription
	}

	task := &types.Task{
		Kind:            types.TaskImageClassification,
		Description:     description,
		Categories:      []string{"cats", "dogs"},
		TargetAccuracy:  0.9,
		SamplesPerClass: 50,
	}

	if m := versusPattern.FindStringSubmatch(description); m != nil {
		task.Categories = []string{strings.ToLower(m[1]), strings.ToLower(m[2])}
	} else if m := classifyPattern.FindStringSubmatch(description); m != nil {
		if categories := splitCategories(m[1]); len(categories) >= 2 {
			task.Categories = categories
		}
	}

	if m := percentPattern.FindStringSubmatch(description); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 && v <= 100 {
			task.TargetAccuracy = v / 100
		}
	} else if m := fractionPattern.FindStringSubmatch(description); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 && v < 1 {
			task.TargetAccuracy = v
		}
	}

	p.logger.With(log.LogParams{
		"categories": strings.Join(task.Categories, ","),
		"target":     task.TargetAccuracy,
	}).Debug("Parsed task")
	return task, nil
}

// splitCategories turns the tail of a classify clause into category names,
// cutting the clause off at qualifiers like "with 95% accuracy"
func splitCategories(raw string) []string {
	raw = strings.ToLower(raw)
	for _, cut := range []string{" with ", " at ", " using ", " reaching ", " images", " photos", " pictures"} {
		if i := strings.Index(raw, cut); i >= 0 {
			raw = raw[:i]
		}
	}
	raw = strings.Trim(raw, " .!?")
	raw = strings.ReplaceAll(raw, " and ", ",")
	raw = strings.ReplaceAll(raw, " or ", ",")

	parts := strings.Split(raw, ",")
	categories := make([]string, 0, len(parts))
	for _, part := range parts {
		if c := strings.TrimSpace(part); c != "" {
			categories = append(categories, c)
		}
	}
	return categories
}
