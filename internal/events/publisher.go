// Package events delivers SEND_EMAIL notifications through an asynq queue.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/mikemajesty/monorepo/internal/auth"
	"github.com/mikemajesty/monorepo/internal/ids"
	"github.com/mikemajesty/monorepo/internal/obs"
)

const (
	TypeSendEmail = "email:send"

	defaultQueue    = "default"
	defaultMaxRetry = 5
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Publisher turns domain events into asynq tasks.
type Publisher struct {
	client enqueuer
	queue  string
}

// NewPublisher connects to the redis instance given as a redis:// URL.
func NewPublisher(redisURL string) (*Publisher, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("events: parse redis url: %w", err)
	}
	return &Publisher{client: asynq.NewClient(opt), queue: defaultQueue}, nil
}

func (p *Publisher) Close() error {
	return p.client.Close()
}

// Emit enqueues the event. Only auth.EventSendEmail is routed.
func (p *Publisher) Emit(ctx context.Context, name string, payload any) error {
	task, err := newTask(name, payload)
	if err != nil {
		return err
	}
	info, err := p.client.EnqueueContext(ctx, task,
		asynq.TaskID(ids.New()),
		asynq.Queue(p.queue),
		asynq.MaxRetry(defaultMaxRetry),
	)
	if err != nil {
		obs.Logger().Warn().Err(err).Str("event", name).Msg("enqueue event failed")
		return fmt.Errorf("events: enqueue %s: %w", name, err)
	}
	obs.Logger().Debug().Str("event", name).Str("task_id", info.ID).Msg("event enqueued")
	return nil
}

func newTask(name string, payload any) (*asynq.Task, error) {
	if name != auth.EventSendEmail {
		return nil, fmt.Errorf("events: unsupported event %q", name)
	}
	var email auth.Email
	switch v := payload.(type) {
	case auth.Email:
		email = v
	case *auth.Email:
		if v == nil {
			return nil, fmt.Errorf("events: nil %s payload", name)
		}
		email = *v
	default:
		return nil, fmt.Errorf("events: %s expects auth.Email, got %T", name, payload)
	}
	if email.Email == "" {
		return nil, fmt.Errorf("events: %s without recipient", name)
	}
	body, err := json.Marshal(email)
	if err != nil {
		return nil, fmt.Errorf("events: marshal %s: %w", name, err)
	}
	return asynq.NewTask(TypeSendEmail, body), nil
}

// Noop drops every event. Used when no redis is configured.
type Noop struct{}

func (Noop) Emit(_ context.Context, name string, _ any) error {
	obs.Logger().Debug().Str("event", name).Msg("event dropped")
	return nil
}

var (
	_ auth.EventPublisher = (*Publisher)(nil)
	_ auth.EventPublisher = Noop{}
)
