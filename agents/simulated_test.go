package agents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Nooom01/automl-agent-system/log"
	"github.com/Nooom01/automl-agent-system/types"
)

func simulationPlan(approach types.Approach) *types.OptimizationPlan {
	plan := &types.OptimizationPlan{
		StrategyID: "sim-1",
		Name:       "Simulated",
		Approach:   approach,
		Categories: []string{"cats", "dogs"},
		Model: types.ModelConfig{
			Architecture: "cnn",
			InputSize:    128,
			Units:        128,
			Dropout:      0.3,
		},
		Training: types.TrainingConfig{
			Epochs:       5,
			BatchSize:    32,
			LearningRate: 1e-3,
			Optimizer:    "adam",
		},
	}
	if approach == types.ApproachTransferLearning {
		plan.Model.Architecture = "mobilenet_v2"
		plan.Model.Backbone = "mobilenet_v2"
	}
	if approach == types.ApproachDataCentric {
		plan.Training.Augment = true
	}
	if approach == types.ApproachEnsemble {
		plan.Model.Members = 3
	}
	return plan
}

func TestSimulatedPipeline(t *testing.T) {
	delegates := NewSimulatedDelegates(42, 0, log.DummyLogger())
	plan := simulationPlan(types.ApproachTransferLearning)
	ctx := context.Background()

	dataOut, err := delegates.PrepareData(ctx, plan, nil)
	if err != nil {
		t.Fatal(err)
	}
	profile, ok := dataOut.Payload.(*types.DatasetProfile)
	if !ok {
		t.Fatalf("data payload is %T, want *DatasetProfile", dataOut.Payload)
	}
	if profile.TotalSamples() != 2*defaultSamplesPerClass {
		t.Errorf("samples = %d, want %d", profile.TotalSamples(), 2*defaultSamplesPerClass)
	}

	modelOut, err := delegates.BuildModel(ctx, plan, dataOut)
	if err != nil {
		t.Fatal(err)
	}
	params, ok := modelOut.Metric(types.MetricParameters)
	if !ok || params <= 0 {
		t.Fatalf("model phase should report a positive parameter count, got %v", params)
	}

	trainedOut, err := delegates.Train(ctx, plan, modelOut)
	if err != nil {
		t.Fatal(err)
	}
	if ms, ok := trainedOut.Metric(types.MetricTrainingTimeMS); !ok || ms <= 0 {
		t.Errorf("training phase should report a positive duration, got %v", ms)
	}
	trained, ok := trainedOut.Payload.(*TrainedModel)
	if !ok {
		t.Fatalf("training payload is %T, want *TrainedModel", trainedOut.Payload)
	}
	if trained.Epochs != plan.Training.Epochs {
		t.Errorf("trained epochs = %d, want %d", trained.Epochs, plan.Training.Epochs)
	}

	evalOut, err := delegates.Evaluate(ctx, plan, trainedOut)
	if err != nil {
		t.Fatal(err)
	}
	accuracy, ok := evalOut.Metric(types.MetricAccuracy)
	if !ok || accuracy < 0.6 || accuracy > 0.995 {
		t.Errorf("accuracy = %v, want a clamped simulation value", accuracy)
	}
}

func TestSimulatedAugmentationDoublesSamples(t *testing.T) {
	delegates := NewSimulatedDelegates(1, 0, log.DummyLogger())
	plan := simulationPlan(types.ApproachDataCentric)

	out, err := delegates.PrepareData(context.Background(), plan, nil)
	if err != nil {
		t.Fatal(err)
	}
	profile := out.Payload.(*types.DatasetProfile)
	if !profile.Augmented {
		t.Error("augmenting plan should mark the profile augmented")
	}
	if profile.TotalSamples() != 4*defaultSamplesPerClass {
		t.Errorf("augmented samples = %d, want %d", profile.TotalSamples(), 4*defaultSamplesPerClass)
	}
}

func TestSimulatedReusesProvidedProfile(t *testing.T) {
	delegates := NewSimulatedDelegates(1, 0, log.DummyLogger())
	plan := simulationPlan(types.ApproachTransferLearning)
	provided := &types.DatasetProfile{
		Name:            "petset",
		Categories:      []string{"cats", "dogs"},
		SamplesPerClass: map[string]int{"cats": 80, "dogs": 70},
	}

	out, err := delegates.PrepareData(context.Background(), plan, provided)
	if err != nil {
		t.Fatal(err)
	}
	profile := out.Payload.(*types.DatasetProfile)
	if profile.TotalSamples() != 150 {
		t.Errorf("samples = %d, want the provided profile's 150", profile.TotalSamples())
	}
}

func TestSimulatedDeterminism(t *testing.T) {
	plan := simulationPlan(types.ApproachEnsemble)

	first := NewSimulatedDelegates(7, 0, log.DummyLogger())
	second := NewSimulatedDelegates(7, 0, log.DummyLogger())

	a, err := first.Evaluate(context.Background(), plan, &types.PhaseOutput{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := second.Evaluate(context.Background(), plan, &types.PhaseOutput{})
	if err != nil {
		t.Fatal(err)
	}
	accA, _ := a.Metric(types.MetricAccuracy)
	accB, _ := b.Metric(types.MetricAccuracy)
	if accA != accB {
		t.Errorf("same seed should evaluate identically: %v vs %v", accA, accB)
	}
}

func TestSimulatedTrainHonorsCancellation(t *testing.T) {
	delegates := NewSimulatedDelegates(1, 50*time.Millisecond, log.DummyLogger())
	plan := simulationPlan(types.ApproachDataCentric)
	plan.Training.Epochs = 100

	modelOut, err := delegates.BuildModel(context.Background(), plan, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(60*time.Millisecond, cancel)

	begin := time.Now()
	_, err = delegates.Train(ctx, plan, modelOut)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if elapsed := time.Since(begin); elapsed > time.Second {
		t.Errorf("training should stop at the next epoch boundary, took %v", elapsed)
	}
}
