package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mercator-hq/polyglot/pkg/prompts"
	"mercator-hq/polyglot/pkg/providers"
	"mercator-hq/polyglot/pkg/telemetry/metrics"
	"mercator-hq/polyglot/pkg/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Call statuses recorded in metrics.
const (
	statusSuccess = "success"
	statusEmpty   = "empty"
	statusError   = "error"
)

// LLMConfig configures an LLMAgent.
type LLMConfig struct {
	Model       string
	Temperature float64
}

// LLMAgent implements Agent over a chat completion provider. Each role
// renders its prompt template, asks for a JSON object and decodes the
// role's schema from the reply.
type LLMAgent struct {
	provider providers.Provider
	prompts  *prompts.Store
	config   LLMConfig
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	logger   *slog.Logger
}

// Option configures an LLMAgent.
type Option func(*LLMAgent)

// WithMetrics records agent calls on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(a *LLMAgent) { a.metrics = c }
}

// WithTracer wraps every call in an agent.call span.
func WithTracer(t *tracing.Tracer) Option {
	return func(a *LLMAgent) { a.tracer = t }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *LLMAgent) { a.logger = l }
}

// NewLLMAgent creates an agent backed by provider.
func NewLLMAgent(provider providers.Provider, store *prompts.Store, cfg LLMConfig, opts ...Option) *LLMAgent {
	a := &LLMAgent{
		provider: provider,
		prompts:  store,
		config:   cfg,
		tracer:   tracing.Noop(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("component", "agent", "provider", provider.GetName())
	return a
}

// Generate implements Agent.
func (a *LLMAgent) Generate(ctx context.Context, role Role, in Input) (string, error) {
	var tmpl string
	switch role {
	case RoleTranslate:
		tmpl = prompts.Translate
	case RoleRefine:
		tmpl = prompts.Refine
	default:
		return "", fmt.Errorf("role %q is not a generation role", role)
	}

	start := time.Now()
	content, err := a.call(ctx, role, tmpl, in)
	if err != nil {
		a.metrics.RecordAgentCall(string(role), statusError, time.Since(start))
		return "", err
	}

	var resp generationResponse
	if err := json.Unmarshal([]byte(extractJSON(content)), &resp); err != nil {
		a.metrics.RecordAgentCall(string(role), statusError, time.Since(start))
		return "", &MalformedResponseError{Role: role, Reason: "invalid JSON", Raw: content, Cause: err}
	}

	hypo := strings.TrimSpace(resp.Hypo)
	if hypo == "" {
		a.metrics.RecordAgentCall(string(role), statusEmpty, time.Since(start))
		return "", &EmptyResponseError{Role: role}
	}

	a.metrics.RecordAgentCall(string(role), statusSuccess, time.Since(start))
	return hypo, nil
}

// Evaluate implements Agent.
func (a *LLMAgent) Evaluate(ctx context.Context, evaluator string, in Input) (*Evaluation, error) {
	spec, ok := evaluators[evaluator]
	if !ok {
		return nil, &UnknownEvaluatorError{Evaluator: evaluator}
	}
	role := EvaluatorRole(evaluator)

	start := time.Now()
	content, err := a.call(ctx, role, spec.template, in)
	if err != nil {
		a.metrics.RecordAgentCall(string(role), statusError, time.Since(start))
		return nil, err
	}

	ev, err := decodeEvaluation(evaluator, spec, content)
	if err != nil {
		a.metrics.RecordAgentCall(string(role), statusError, time.Since(start))
		return nil, err
	}

	a.metrics.RecordAgentCall(string(role), statusSuccess, time.Since(start))
	return ev, nil
}

func decodeEvaluation(evaluator string, spec evaluatorSpec, content string) (*Evaluation, error) {
	role := EvaluatorRole(evaluator)
	body := []byte(extractJSON(content))

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &MalformedResponseError{Role: role, Reason: "invalid JSON", Raw: content, Cause: err}
	}
	if _, ok := raw[spec.scoreKey]; !ok {
		return nil, &MalformedResponseError{Role: role, Reason: fmt.Sprintf("missing %q", spec.scoreKey), Raw: content}
	}

	ev, err := spec.decode(body)
	if err != nil {
		return nil, &MalformedResponseError{Role: role, Reason: "schema mismatch", Raw: content, Cause: err}
	}
	if err := validateScore(evaluator, ev.Score); err != nil {
		var me *MalformedResponseError
		if errors.As(err, &me) {
			me.Raw = content
		}
		return nil, err
	}

	ev.Evaluator = evaluator
	ev.Raw = raw
	return &ev, nil
}

// call renders the template and sends one completion.
func (a *LLMAgent) call(ctx context.Context, role Role, tmpl string, in Input) (string, error) {
	ctx, span := a.tracer.Start(ctx, tracing.SpanAgentCall, trace.WithAttributes(
		tracing.AttrRole.String(string(role)),
		tracing.AttrModel.String(a.config.Model),
	))
	defer span.End()

	prompt, err := a.prompts.Render(tmpl, in.promptData())
	if err != nil {
		tracing.SetError(span, err)
		return "", err
	}

	temperature := a.config.Temperature
	req := &providers.CompletionRequest{
		Model: a.config.Model,
		Messages: []providers.Message{
			{Role: providers.RoleUser, Content: prompt},
		},
		Temperature:    &temperature,
		ResponseFormat: providers.ResponseFormatJSON,
		Metadata:       map[string]string{"role": string(role)},
	}

	resp, err := a.provider.SendCompletion(ctx, req)
	if err != nil {
		tracing.SetError(span, err)
		a.logger.DebugContext(ctx, "agent call failed", "role", role, "error", err)
		return "", fmt.Errorf("agent role %q: %w", role, err)
	}

	tracing.SetAttributes(span,
		attribute.Int("polyglot.agent.tokens", resp.Usage.TotalTokens),
		attribute.String("polyglot.agent.finish_reason", resp.FinishReason),
	)
	tracing.SetOK(span)
	return resp.Content, nil
}
