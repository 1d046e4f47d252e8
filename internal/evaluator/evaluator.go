// Package evaluator sequences the gates in front of the paid AI call:
// input guard, session rate limiter, budget gate, provider dispatch and
// usage recording.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/conjugo/gateway/internal/budget"
	"github.com/conjugo/gateway/internal/guard"
	"github.com/conjugo/gateway/internal/ledger"
	"github.com/conjugo/gateway/internal/metrics"
	"github.com/conjugo/gateway/internal/pricing"
	"github.com/conjugo/gateway/internal/provider"
	"github.com/conjugo/gateway/internal/ratelimit"
)

// ProviderConfig resolves the active provider, model and credential at
// evaluation time so runtime configuration changes take effect immediately.
type ProviderConfig interface {
	ActiveProvider() string
	ActiveModel() string
	Credential(provider string) string
}

// ProviderFactory builds a vendor client; registry.New in production.
type ProviderFactory func(name, apiKey string) (provider.Provider, error)

type Evaluator struct {
	cfg         ProviderConfig
	ledger      *ledger.Ledger
	budget      *budget.Gate
	limiters    *ratelimit.Registry
	dispatcher  *provider.Dispatcher
	newProvider ProviderFactory
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	timeout     time.Duration
}

func New(
	cfg ProviderConfig,
	l *ledger.Ledger,
	gate *budget.Gate,
	limiters *ratelimit.Registry,
	dispatcher *provider.Dispatcher,
	factory ProviderFactory,
	m *metrics.Metrics,
	tracer trace.Tracer,
	timeout time.Duration,
) *Evaluator {
	return &Evaluator{
		cfg:         cfg,
		ledger:      l,
		budget:      gate,
		limiters:    limiters,
		dispatcher:  dispatcher,
		newProvider: factory,
		metrics:     m,
		tracer:      tracer,
		timeout:     timeout,
	}
}

// Evaluate runs one practice submission through the governance gates and,
// if they all pass, the external AI call. Exactly one rate-limit slot is
// consumed per submission that reaches dispatch, no matter how the dispatch
// ends.
func (e *Evaluator) Evaluate(ctx context.Context, userID, verb, tense, sentence string) (*Feedback, error) {
	evalID := uuid.New().String()

	ctx, span := e.tracer.Start(ctx, "evaluator.evaluate")
	defer span.End()
	span.SetAttributes(
		attribute.String("evaluation_id", evalID),
		attribute.String("user_id", userID),
		attribute.String("verb", verb),
		attribute.String("tense", tense),
	)

	verb = strings.TrimSpace(verb)
	tense = strings.TrimSpace(tense)
	if verb == "" || tense == "" {
		e.metrics.RecordEvaluation("invalid_input")
		return nil, fmt.Errorf("verb and tense are required: %w", guard.ErrInvalidInput)
	}

	clean, err := guard.Sanitize(sentence)
	if err != nil {
		e.metrics.RecordEvaluation("invalid_input")
		return nil, err
	}
	if !guard.LooksLikeSentence(clean) {
		e.metrics.RecordEvaluation("not_a_sentence")
		return nil, ErrNotASentence
	}

	limiter := e.limiters.For(userID)
	if d := limiter.Check(); !d.Allowed {
		e.metrics.RecordDenial("rate_limit")
		e.metrics.RecordEvaluation("rate_limited")
		return nil, &RateLimitedError{Reason: d.Reason, WaitSeconds: d.WaitSeconds}
	}

	decision, err := e.budget.Check(ctx, userID)
	if err != nil {
		e.metrics.RecordEvaluation("error")
		return nil, err
	}
	if !decision.Allowed {
		e.metrics.RecordDenial("budget")
		e.metrics.RecordEvaluation("budget_exceeded")
		return nil, &BudgetExceededError{
			Reason:      decision.Reason,
			Period:      decision.Period,
			CurrentCost: decision.CurrentCost,
			Limit:       decision.Limit,
		}
	}

	// Resolve the provider before consuming a rate-limit slot: a missing
	// key or unknown provider never counts against the user's throttle.
	providerName := e.cfg.ActiveProvider()
	apiKey := e.cfg.Credential(providerName)
	if apiKey == "" {
		e.metrics.RecordEvaluation("no_api_key")
		return nil, ErrNoAPIKey
	}
	p, err := e.newProvider(providerName, apiKey)
	if err != nil {
		e.metrics.RecordEvaluation("unknown_provider")
		return nil, err
	}

	// One slot per submission, recorded before dispatch so a failed or
	// cancelled call still spaces out retries.
	limiter.Record()

	model := e.cfg.ActiveModel()
	req := &provider.Request{
		Model:        model,
		SystemPrompt: buildSystemPrompt(verb, tense),
		UserPrompt:   clean,
		MaxTokens:    1024,
		Temperature:  0.3,
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	started := time.Now()
	resp, err := e.dispatcher.Send(callCtx, p, req)
	e.metrics.ObserveProviderDuration(providerName, time.Since(started).Seconds())
	if err != nil {
		e.metrics.RecordEvaluation("provider_error")
		return nil, translateProviderError(err)
	}

	inputTokens, outputTokens := resp.InputTokens, resp.OutputTokens
	if inputTokens == 0 && outputTokens == 0 {
		inputTokens = pricing.EstimateTokens(req.SystemPrompt + req.UserPrompt)
		outputTokens = pricing.EstimateTokens(resp.Text)
	}
	usedModel := resp.Model
	if usedModel == "" {
		usedModel = model
	}

	fb := parseFeedback(resp.Text)
	fb.Model = usedModel

	cost := pricing.Cost(usedModel, inputTokens, outputTokens)
	costF, _ := cost.Float64()
	e.metrics.AddCost(providerName, usedModel, costF)

	// The user already paid for this answer: a failed usage write is
	// logged and surfaced as a warning, never a hard failure. Budget
	// enforcement degrades while persistence is down; that trade-off is
	// intentional.
	if _, err := e.ledger.RecordUsage(ctx, userID, usedModel, inputTokens, outputTokens); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"evaluation_id": evalID,
			"user_id":       userID,
		}).Error("evaluator: usage record lost")
		fb.PersistenceWarning = "usage could not be recorded for this request"
	}

	e.metrics.RecordEvaluation("ok")
	return fb, nil
}

// LimiterStats exposes the session limiter occupancy for display.
func (e *Evaluator) LimiterStats(userID string) ratelimit.Stats {
	return e.limiters.For(userID).Stats()
}

func buildSystemPrompt(verb, tense string) string {
	return fmt.Sprintf(
		"You are a French grammar teacher evaluating a student's practice sentence. "+
			"The student was asked to write a sentence using the verb %q in the %s tense. "+
			"Check conjugation, agreement and tense usage. "+
			`Reply with JSON only, no prose, in the shape `+
			`{"isCorrect":boolean,"correctedSentence":string,"explanation":string,"encouragement":string}. `+
			"Write explanation and encouragement in simple French.",
		verb, tense,
	)
}

func translateProviderError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrProviderTimeout
	}

	var apiErr *provider.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case 401:
			return ErrInvalidCredential
		case 429:
			return ErrProviderRateLimited
		default:
			return &ProviderCallError{Status: apiErr.Status, Message: apiErr.Message}
		}
	}

	return fmt.Errorf("provider call failed: %w", err)
}
