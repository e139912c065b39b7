package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/mikemajesty/monorepo/internal/auth"
	"github.com/mikemajesty/monorepo/internal/obs"
)

// Mailer delivers a rendered email.
type Mailer interface {
	Send(ctx context.Context, from string, email auth.Email) error
}

// LogMailer writes emails to the structured log instead of sending them.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, from string, email auth.Email) error {
	obs.Logger().Info().
		Str("from", from).
		Str("to", email.Email).
		Str("subject", email.Subject).
		Str("template", email.Template).
		Interface("payload", email.Payload).
		Msg("email (log only)")
	return nil
}

// Worker consumes email:send tasks.
type Worker struct {
	srv    *asynq.Server
	mux    *asynq.ServeMux
	mailer Mailer
	from   string
}

// NewWorker builds the asynq server. Call Run to start consuming.
func NewWorker(redisURL string, concurrency int, mailer Mailer, from string) (*Worker, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("events: parse redis url: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 2
	}
	w := &Worker{
		srv: asynq.NewServer(opt, asynq.Config{
			Concurrency: concurrency,
			LogLevel:    asynq.InfoLevel,
		}),
		mux:    asynq.NewServeMux(),
		mailer: mailer,
		from:   from,
	}
	w.mux.HandleFunc(TypeSendEmail, w.HandleSendEmail)
	return w, nil
}

// HandleSendEmail decodes the payload and hands it to the mailer. A malformed
// payload is not retried.
func (w *Worker) HandleSendEmail(ctx context.Context, t *asynq.Task) error {
	var email auth.Email
	if err := json.Unmarshal(t.Payload(), &email); err != nil {
		obs.Logger().Error().Err(err).Str("type", t.Type()).Msg("email task payload invalid")
		return fmt.Errorf("decode email task: %v: %w", err, asynq.SkipRetry)
	}
	if err := w.mailer.Send(ctx, w.from, email); err != nil {
		obs.Logger().Warn().Err(err).Str("to", email.Email).Msg("send email failed")
		return err
	}
	return nil
}

// Run blocks until the server stops.
func (w *Worker) Run() error {
	return w.srv.Run(w.mux)
}

func (w *Worker) Shutdown() {
	w.srv.Shutdown()
}
