package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"SolanaPredictor/internal/model"
)

// CurrentModelKey holds the latest ModelUpdate so late subscribers can catch up.
const CurrentModelKey = "model:current"

// ModelUpdate is the event published after a new model is saved.
type ModelUpdate struct {
	RunID         string    `json:"run_id"`
	Version       string    `json:"version"`
	RetrainedDate time.Time `json:"retrained_date"`
	TestRMSE      float64   `json:"test_rmse"`
	TestR2        float64   `json:"test_r2"`
	ModelSHA256   string    `json:"model_sha256"`
	ScalerSHA256  string    `json:"scaler_sha256"`
}

// NewModelUpdate builds the event for info.
func NewModelUpdate(info *model.ModelInfo) ModelUpdate {
	return ModelUpdate{
		RunID:         info.RunID,
		Version:       info.Version,
		RetrainedDate: info.RetrainedDate,
		TestRMSE:      info.Metrics.Test.RMSE,
		TestR2:        info.Metrics.Test.R2,
		ModelSHA256:   info.Artifacts.ModelSHA256,
		ScalerSHA256:  info.Artifacts.ScalerSHA256,
	}
}

// RedisPublisher tells serving processes to reload the artifact.
type RedisPublisher struct {
	cli     *redis.Client
	channel string
}

// RedisConfig holds connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

func NewRedisPublisher(cfg RedisConfig) *RedisPublisher {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	return &RedisPublisher{cli: rdb, channel: cfg.Channel}
}

// PublishModelUpdate stores the event under CurrentModelKey and publishes it.
func (p *RedisPublisher) PublishModelUpdate(ctx context.Context, info *model.ModelInfo) error {
	payload, err := json.Marshal(NewModelUpdate(info))
	if err != nil {
		return fmt.Errorf("encode model update: %w", err)
	}
	pipe := p.cli.TxPipeline()
	pipe.Set(ctx, CurrentModelKey, payload, 0)
	pipe.Publish(ctx, p.channel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish model update: %w", err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.cli.Close()
}
