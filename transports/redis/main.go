package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Nooom01/automl-agent-system/config"
	"github.com/Nooom01/automl-agent-system/log"
	"github.com/Nooom01/automl-agent-system/types"
)

// subscriberLabel identifies the relay on the progress queue
const subscriberLabel = "redis-relay"

// Relay forwards progress events to Redis pub/sub channels so dashboards
// outside the process can follow runs live
type Relay struct {
	client *goredis.Client
	sub    chan *types.Progress
	prefix string
	*types.BaseService
}

// NewRelay connects to Redis and subscribes to the progress queue
func NewRelay(conf config.RelayConfig, queue *types.ProgressQueue, logger *log.Logger) (*Relay, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         conf.Addr,
		Password:     conf.Password,
		DB:           conf.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %s", err)
	}

	sub, err := queue.Subscribe(subscriberLabel)
	if err != nil {
		return nil, err
	}

	return &Relay{
		client:      client,
		sub:         sub,
		prefix:      conf.ChannelPrefix,
		BaseService: types.NewBaseService("ProgressRelay", logger),
	}, nil
}

// Start implements Service
func (r *Relay) Start() error {
	r.StartRunning()
	go r.loop()
	return nil
}

func (r *Relay) loop() {
	for {
		select {
		case event := <-r.sub:
			r.publish(event)
		case <-r.QuitCh():
			return
		}
	}
}

// publish sends one event. Failures are logged and never stall execution
func (r *Relay) publish(event *types.Progress) {
	payload, err := json.Marshal(event)
	if err != nil {
		r.Logger.With(log.LogParams{"err": err.Error()}).Error("Failed to encode progress event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.client.Publish(ctx, r.Channel(event.StrategyID), payload).Err(); err != nil {
		r.Logger.With(log.LogParams{
			"channel": r.Channel(event.StrategyID),
			"err":     err.Error(),
		}).Error("Failed to relay progress event")
	}
}

// Channel names the pub/sub channel carrying one strategy's events
func (r *Relay) Channel(strategyID string) string {
	return fmt.Sprintf("%s:progress:%s", r.prefix, strategyID)
}

// Stop implements Service
func (r *Relay) Stop() error {
	r.StopRunning()
	return r.client.Close()
}
