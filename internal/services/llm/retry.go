package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"podflow/internal/logging"
	"podflow/internal/metrics"
	"podflow/internal/services"
	"podflow/internal/stage"
)

const (
	retryTokenFloor     = 300
	retryPromptCharsCap = 1000
)

// RetryingGenerator retries a rate-limited call exactly once. The retry uses
// half the output budget (never below 300 tokens), a low search context and,
// for web-search calls, a prompt truncated to 1000 characters. The wait before
// the retry honours the provider's hint but never exceeds waitCap.
type RetryingGenerator struct {
	next    Generator
	waitCap time.Duration
	logger  *slog.Logger
	sleep   func(context.Context, time.Duration) error
}

// NewRetryingGenerator wraps next.
func NewRetryingGenerator(next Generator, waitCap time.Duration, logger *slog.Logger) *RetryingGenerator {
	return &RetryingGenerator{
		next:    next,
		waitCap: waitCap,
		logger:  logging.NewComponentLogger(logger, "llm"),
		sleep:   sleepContext,
	}
}

// Generate implements Generator.
func (g *RetryingGenerator) Generate(ctx context.Context, req Request) (string, error) {
	text, err := g.next.Generate(ctx, req)
	if err == nil || !errors.Is(err, services.ErrTransient) || errors.Is(err, services.ErrProviderFatal) {
		return text, err
	}

	wait := SuggestedWait(err)
	if wait > g.waitCap {
		wait = g.waitCap
	}
	retry := reduceBudget(req)
	logging.WarnWithContext(logging.WithContext(ctx, g.logger), "rate limited; retrying once with reduced budget", "generation_retry",
		logging.String("model", req.Model),
		logging.Duration("wait", wait),
		logging.Int("max_output_tokens", retry.MaxOutputTokens),
		logging.String("search_context", retry.SearchContext),
		logging.Error(err),
		logging.String(logging.FieldImpact, "step is delayed"),
	)
	metrics.RecordProviderRetry(ProviderFor(req.Model))
	if err := g.sleep(ctx, wait); err != nil {
		return "", services.Wrap(services.ErrProviderFatal, "llm", "retry", "interrupted while waiting to retry", err)
	}

	text, err = g.next.Generate(ctx, retry)
	if err != nil {
		return "", services.Wrap(services.ErrProviderFatal, "llm", "retry", "second attempt failed for model "+req.Model, err)
	}
	return text, nil
}

func reduceBudget(req Request) Request {
	retry := req
	retry.SearchContext = SearchContextLow
	budget := req.MaxOutputTokens
	if budget <= 0 {
		budget = defaultMaxOutputTokens
	}
	retry.MaxOutputTokens = budget / 2
	if retry.MaxOutputTokens < retryTokenFloor {
		retry.MaxOutputTokens = retryTokenFloor
	}
	if req.WebSearch {
		if runes := []rune(req.Prompt); len(runes) > retryPromptCharsCap {
			retry.Prompt = string(runes[:retryPromptCharsCap])
		}
	}
	return retry
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// HealthCheck reports the wrapped generator's health when it has one.
func (g *RetryingGenerator) HealthCheck(ctx context.Context) stage.Health {
	if checker, ok := g.next.(stage.Checker); ok {
		return checker.HealthCheck(ctx)
	}
	return stage.Healthy("generation")
}
