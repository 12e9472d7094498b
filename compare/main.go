package compare

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/Nooom01/automl-agent-system/types"
)

const (
	// accuracyTieDelta treats accuracies this close as a tie, which training
	// time then breaks
	accuracyTieDelta = 0.01
	// highAccuracy marks a best strategy good enough to stop optimizing for
	// accuracy
	highAccuracy = 0.95
)

var ErrNoSuccessfulStrategies = errors.New("no successful strategies to compare")

// Strategies ranks the successful results and derives winners and
// recommendations. The inputs are never mutated and comparing the same
// results again yields the same comparison
func Strategies(results []*types.ExecutionResult) (*types.StrategyComparison, error) {
	successful := make([]*types.ExecutionResult, 0, len(results))
	for _, result := range results {
		if result != nil && result.Success {
			successful = append(successful, result)
		}
	}
	if len(successful) == 0 {
		return nil, ErrNoSuccessfulStrategies
	}

	ranking := make([]*types.ExecutionResult, len(successful))
	copy(ranking, successful)
	sort.SliceStable(ranking, func(i, j int) bool {
		a, b := ranking[i], ranking[j]
		if math.Abs(a.Metrics.Accuracy-b.Metrics.Accuracy) < accuracyTieDelta {
			return a.Metrics.TrainingTime < b.Metrics.TrainingTime
		}
		return a.Metrics.Accuracy > b.Metrics.Accuracy
	})

	best := ranking[0]
	analysis := analyze(successful)

	return &types.StrategyComparison{
		Best:            best,
		Ranking:         ranking,
		Analysis:        analysis,
		Recommendations: recommend(best, analysis),
	}, nil
}

// analyze scans for the strict per category winners, independent of the tie
// adjusted ranking
func analyze(successful []*types.ExecutionResult) *types.Analysis {
	analysis := &types.Analysis{
		AccuracyWinner: successful[0],
		SpeedWinner:    successful[0],
		SizeWinner:     successful[0],
	}
	for _, result := range successful[1:] {
		if result.Metrics.Accuracy > analysis.AccuracyWinner.Metrics.Accuracy {
			analysis.AccuracyWinner = result
		}
		if result.Metrics.TrainingTime < analysis.SpeedWinner.Metrics.TrainingTime {
			analysis.SpeedWinner = result
		}
		if result.Metrics.SizeMB < analysis.SizeWinner.Metrics.SizeMB {
			analysis.SizeWinner = result
		}
	}
	return analysis
}

func recommend(best *types.ExecutionResult, analysis *types.Analysis) []string {
	recs := make([]string, 0, 3)

	if best.Metrics.Accuracy >= highAccuracy {
		recs = append(recs, fmt.Sprintf(
			"%s already reaches %.1f%% accuracy, optimize for speed or model size next",
			best.Name, best.Metrics.Accuracy*100))
	} else {
		recs = append(recs, fmt.Sprintf(
			"best accuracy is %.1f%%, consider ensembling the top strategies to push it higher",
			best.Metrics.Accuracy*100))
	}

	if analysis.SpeedWinner != analysis.AccuracyWinner && analysis.SpeedWinner.Metrics.TrainingTime > 0 {
		multiple := math.Round(float64(analysis.AccuracyWinner.Metrics.TrainingTime) / float64(analysis.SpeedWinner.Metrics.TrainingTime))
		recs = append(recs, fmt.Sprintf(
			"%s trains %.0fx faster than %s at %.1f%% accuracy, a candidate when iteration speed matters",
			analysis.SpeedWinner.Name, multiple, analysis.AccuracyWinner.Name,
			analysis.SpeedWinner.Metrics.Accuracy*100))
	}

	if analysis.SizeWinner != best && analysis.SizeWinner.Metrics.SizeMB > 0 && best.Metrics.SizeMB > 0 {
		multiple := math.Round(best.Metrics.SizeMB / analysis.SizeWinner.Metrics.SizeMB)
		recs = append(recs, fmt.Sprintf(
			"%s is %.0fx smaller than %s, prefer it for browser deployment if %.1f%% accuracy suffices",
			analysis.SizeWinner.Name, multiple, best.Name,
			analysis.SizeWinner.Metrics.Accuracy*100))
	}

	return recs
}
