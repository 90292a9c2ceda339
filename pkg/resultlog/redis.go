// Package resultlog publishes run outcomes to Redis so an orchestrator can
// poll the latest state or subscribe to completion events.
package resultlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ruslano69/symexport/pkg/adapters"
	"github.com/ruslano69/symexport/pkg/export"
)

// Config selects the Redis instance and the key namespace.
type Config struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Name     string `yaml:"name"`
	TTL      int    `yaml:"ttl"` // seconds, 0 keeps the state key forever
}

// RunResult is the published form of an export.Outcome.
//
// Redis keys:
//
//	SET  symexport:run:<name>:state  <JSON>  EX <ttl>  (polling)
//	PUB  symexport:run:<name>                          (event-driven routing)
type RunResult struct {
	Name       string          `json:"name"`
	SourceID   uint32          `json:"source_id"`
	Status     string          `json:"status"` // "success" | "failed"
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	DurationMs int64           `json:"duration_ms"`
	Rows       int             `json:"rows"`
	Backends   []BackendResult `json:"backends"`
	Error      *string         `json:"error,omitempty"`
}

// BackendResult is the published form of an export.BackendOutcome.
type BackendResult struct {
	Backend  string              `json:"backend"`
	State    string              `json:"state"`
	FailedAt string              `json:"failed_at,omitempty"`
	Files    []adapters.FileStat `json:"files,omitempty"`
	Errors   []string            `json:"errors,omitempty"`
}

// NewRunResult flattens an outcome.
func NewRunResult(name string, o *export.Outcome) RunResult {
	r := RunResult{
		Name:       name,
		SourceID:   o.SourceID,
		Status:     "success",
		StartedAt:  o.Started,
		FinishedAt: o.Started.Add(o.Duration),
		DurationMs: o.Duration.Milliseconds(),
	}
	if o.Failed() {
		r.Status = "failed"
		msg := o.Err().Error()
		r.Error = &msg
	}
	for i := range o.Backends {
		bo := &o.Backends[i]
		br := BackendResult{
			Backend: bo.Backend,
			State:   bo.State.String(),
			Files:   bo.Files,
			Errors:  bo.Messages(),
		}
		if bo.Failed() {
			br.FailedAt = bo.FailedAt.String()
		}
		if i == 0 {
			for _, f := range bo.Files {
				r.Rows += f.Rows
			}
		}
		r.Backends = append(r.Backends, br)
	}
	return r
}

// RedisPublisher implements export.Publisher.
type RedisPublisher struct {
	client *redis.Client
	config Config
}

// NewRedisPublisher connects lazily to the configured Redis.
func NewRedisPublisher(config Config) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})
	return NewWithClient(client, config)
}

// NewWithClient uses an existing client.
func NewWithClient(client *redis.Client, config Config) *RedisPublisher {
	if config.Name == "" {
		config.Name = "symexport"
	}
	return &RedisPublisher{client: client, config: config}
}

// StateKey is the key holding the latest result.
func (p *RedisPublisher) StateKey() string {
	return fmt.Sprintf("symexport:run:%s:state", p.config.Name)
}

// Channel is the pub/sub channel results are announced on.
func (p *RedisPublisher) Channel() string {
	return fmt.Sprintf("symexport:run:%s", p.config.Name)
}

// Publish stores the result under StateKey and announces it on Channel,
// whatever the outcome.
func (p *RedisPublisher) Publish(ctx context.Context, o *export.Outcome) error {
	payload, err := json.Marshal(NewRunResult(p.config.Name, o))
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	ttl := time.Duration(p.config.TTL) * time.Second
	if err := p.client.Set(ctx, p.StateKey(), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}
	if err := p.client.Publish(ctx, p.Channel(), payload).Err(); err != nil {
		return fmt.Errorf("redis PUBLISH failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
