package types

// Analysis singles out the per category winners among successful strategies.
// Each winner may be a different strategy than the overall best
type Analysis struct {
	AccuracyWinner *ExecutionResult `json:"accuracy_winner"`
	SpeedWinner    *ExecutionResult `json:"speed_winner"`
	SizeWinner     *ExecutionResult `json:"size_winner"`
}

// StrategyComparison ranks the successful strategies of one run and derives
// trade off recommendations
type StrategyComparison struct {
	Best            *ExecutionResult   `json:"best"`
	Ranking         []*ExecutionResult `json:"ranking"`
	Analysis        *Analysis          `json:"analysis"`
	Recommendations []string           `json:"recommendations"`
}
