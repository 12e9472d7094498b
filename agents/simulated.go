package agents

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/Nooom01/automl-agent-system/log"
	"github.com/Nooom01/automl-agent-system/types"
)

// defaultSamplesPerClass sizes synthesized datasets when no profile is handed
// in
const defaultSamplesPerClass = 50

var backboneParameters = map[string]int{
	"mobilenet_v2": 3538984,
	"resnet50":     25636712,
}

var approachBaseAccuracy = map[types.Approach]float64{
	types.ApproachTransferLearning: 0.91,
	types.ApproachDataCentric:      0.89,
	types.ApproachEnsemble:         0.93,
}

// ModelHandle identifies a model built inside the simulation
type ModelHandle struct {
	StrategyID   string
	Architecture string
	Parameters   int
}

// TrainedModel is the training phase's payload and the handle a successful
// result carries
type TrainedModel struct {
	ModelHandle
	Epochs    int
	FinalLoss float64
}

// SimulatedDelegates performs every pipeline phase as a seeded simulation.
// Timings and metrics follow the plan's configuration so strategies stay
// comparable run over run
type SimulatedDelegates struct {
	stepDelay time.Duration
	rng       *rand.Rand
	lock      *sync.Mutex
	logger    *log.Logger
}

// NewSimulatedDelegates builds delegates whose jitter derives from seed.
// stepDelay is the real wall clock cost charged per simulated step
func NewSimulatedDelegates(seed int64, stepDelay time.Duration, logger *log.Logger) *SimulatedDelegates {
	return &SimulatedDelegates{
		stepDelay: stepDelay,
		rng:       rand.New(rand.NewSource(seed)),
		lock:      new(sync.Mutex),
		logger:    logger,
	}
}

func (d *SimulatedDelegates) sleep(ctx context.Context, dur time.Duration) error {
	if dur <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(dur)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// jitter returns a deterministic pseudo random value in [-spread, spread]
func (d *SimulatedDelegates) jitter(spread float64) float64 {
	d.lock.Lock()
	defer d.lock.Unlock()
	return (d.rng.Float64()*2 - 1) * spread
}

// PrepareData assembles the dataset profile the strategy trains on. A
// profile handed in as the dataset is reused, otherwise one is synthesized
// from the plan's categories
func (d *SimulatedDelegates) PrepareData(ctx context.Context, plan *types.OptimizationPlan, dataset types.Dataset) (*types.PhaseOutput, error) {
	if err := d.sleep(ctx, d.stepDelay); err != nil {
		return nil, err
	}

	profile, ok := dataset.(*types.DatasetProfile)
	if !ok || profile == nil {
		samples := make(map[string]int, len(plan.Categories))
		for _, category := range plan.Categories {
			samples[category] = defaultSamplesPerClass
		}
		profile = &types.DatasetProfile{
			Name:            strings.Join(plan.Categories, "-"),
			Categories:      plan.Categories,
			SamplesPerClass: samples,
		}
	}
	if plan.Training.Augment {
		augmented := make(map[string]int, len(profile.SamplesPerClass))
		for category, n := range profile.SamplesPerClass {
			augmented[category] = n * 2
		}
		profile = &types.DatasetProfile{
			Name:            profile.Name + "-augmented",
			Categories:      profile.Categories,
			SamplesPerClass: augmented,
			Augmented:       true,
		}
	}

	return &types.PhaseOutput{
		Payload: profile,
		Metrics: map[string]float64{"samples": float64(profile.TotalSamples())},
	}, nil
}

// BuildModel constructs the simulated model and reports its parameter count
func (d *SimulatedDelegates) BuildModel(ctx context.Context, plan *types.OptimizationPlan, data *types.PhaseOutput) (*types.PhaseOutput, error) {
	if err := d.sleep(ctx, d.stepDelay); err != nil {
		return nil, err
	}

	params := modelParameters(plan)
	handle := &ModelHandle{
		StrategyID:   plan.StrategyID,
		Architecture: plan.Model.Architecture,
		Parameters:   params,
	}
	return &types.PhaseOutput{
		Payload: handle,
		Metrics: map[string]float64{types.MetricParameters: float64(params)},
	}, nil
}

// Train fits the model epoch by epoch, honoring cancellation between epochs
func (d *SimulatedDelegates) Train(ctx context.Context, plan *types.OptimizationPlan, model *types.PhaseOutput) (*types.PhaseOutput, error) {
	handle, ok := model.Payload.(*ModelHandle)
	if !ok {
		return nil, fmt.Errorf("training requires a model handle, got %T", model.Payload)
	}

	epochs := plan.Training.Epochs
	if epochs <= 0 {
		epochs = 1
	}
	loss := 2.0
	for epoch := 0; epoch < epochs; epoch++ {
		if err := d.sleep(ctx, d.stepDelay); err != nil {
			return nil, err
		}
		loss = loss*0.82 + d.jitter(0.02)
		if loss < 0.05 {
			loss = 0.05
		}
	}

	perEpochMS := 120 + float64(handle.Parameters)/100000 + d.jitter(20)
	if plan.Training.Augment {
		perEpochMS = perEpochMS * 1.3
	}
	trainingMS := math.Max(1, perEpochMS*float64(epochs))

	trained := &TrainedModel{
		ModelHandle: *handle,
		Epochs:      epochs,
		FinalLoss:   loss,
	}
	return &types.PhaseOutput{
		Payload: trained,
		Metrics: map[string]float64{
			types.MetricTrainingTimeMS: trainingMS,
			types.MetricLoss:           loss,
		},
	}, nil
}

// Evaluate scores the trained model. Accuracy follows the approach's base
// rate, the training budget and a seeded jitter
func (d *SimulatedDelegates) Evaluate(ctx context.Context, plan *types.OptimizationPlan, trained *types.PhaseOutput) (*types.PhaseOutput, error) {
	if err := d.sleep(ctx, d.stepDelay); err != nil {
		return nil, err
	}

	accuracy := approachBaseAccuracy[plan.Approach]
	if accuracy == 0 {
		accuracy = 0.85
	}
	accuracy = accuracy + float64(plan.Training.Epochs-10)*0.002
	if plan.Training.Augment {
		accuracy = accuracy + 0.015
	}
	if plan.Model.Members > 3 {
		accuracy = accuracy + 0.01
	}
	accuracy = accuracy + d.jitter(0.02)
	accuracy = math.Max(0.6, math.Min(0.995, accuracy))

	loss := math.Max(0.01, (1-accuracy)*2+d.jitter(0.05))

	d.logger.With(log.LogParams{
		"strategy": plan.StrategyID,
		"accuracy": accuracy,
	}).Debug("Evaluated strategy")

	return &types.PhaseOutput{
		Metrics: map[string]float64{
			types.MetricAccuracy: accuracy,
			types.MetricLoss:     loss,
		},
	}, nil
}

// modelParameters estimates the weight count the plan's model carries
func modelParameters(plan *types.OptimizationPlan) int {
	if plan.Approach == types.ApproachTransferLearning {
		base, ok := backboneParameters[plan.Model.Backbone]
		if !ok {
			base = backboneParameters["mobilenet_v2"]
		}
		// frozen backbone plus the trainable head
		return base + plan.Model.Units*1280 + plan.Model.Units*2
	}

	single := 200000 + plan.Model.Units*4096 + plan.Model.InputSize*1024
	if plan.Approach == types.ApproachEnsemble && plan.Model.Members > 1 {
		return single * plan.Model.Members
	}
	return single
}
