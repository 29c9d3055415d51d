package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/analysis"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/generation"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/policy"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/store"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/synthesis"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/telemetry/metrics"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/telemetry/tracing"
)

// defaultPreamble is the system message sent with every generation
// request. It frames the upstream model without referencing the gate's
// internals.
const defaultPreamble = "You are a careful, honest assistant. Answer the user directly and decline anything harmful."

// Options configures a Pipeline. Policies and Orchestrator are required;
// everything else degrades gracefully when absent.
type Options struct {
	// Policies owns the current gate. Required.
	Policies *policy.Manager

	// Orchestrator runs the advisory analyzers. Required.
	Orchestrator *analysis.Orchestrator

	// Provider issues external completions. Nil disables generation; all
	// requests then take the synthesizer path.
	Provider generation.Provider

	// Store persists exchanges when non-nil. The pipeline only writes.
	Store store.Store

	// Metrics records pipeline counters. Nil means disabled.
	Metrics *metrics.Collector

	// Tracer opens spans around the stages. Nil means disabled.
	Tracer *tracing.Tracer

	// DefaultLevel applies when a request carries no level. Empty means
	// standard.
	DefaultLevel analysis.Level

	// Preamble overrides the generation system message.
	Preamble string

	// IncludeSummary appends the compliance checklist to synthesized
	// responses.
	IncludeSummary bool

	Logger *slog.Logger
}

// Pipeline composes the gate, orchestrator, provider, synthesizer, and
// store into the per-request state machine. Safe for concurrent use.
type Pipeline struct {
	policies     *policy.Manager
	orchestrator *analysis.Orchestrator
	provider     generation.Provider
	store        store.Store
	metrics      *metrics.Collector
	tracer       *tracing.Tracer
	synth        *synthesis.Synthesizer
	defaultLevel analysis.Level
	preamble     string
	logger       *slog.Logger
}

// New builds a pipeline. Missing optional collaborators are replaced with
// disabled stand-ins so callers never branch on nil.
func New(opts Options) (*Pipeline, error) {
	if opts.Policies == nil {
		return nil, fmt.Errorf("pipeline: policy manager is required")
	}
	if opts.Orchestrator == nil {
		return nil, fmt.Errorf("pipeline: orchestrator is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	collector := opts.Metrics
	if collector == nil {
		collector = metrics.NewCollector(metrics.Config{}, nil)
	}

	tracer := opts.Tracer
	if tracer == nil {
		var err error
		tracer, err = tracing.New(tracing.Config{})
		if err != nil {
			return nil, err
		}
	}

	level := opts.DefaultLevel
	if level == "" {
		level = analysis.LevelStandard
	}

	preamble := opts.Preamble
	if preamble == "" {
		preamble = defaultPreamble
	}

	return &Pipeline{
		policies:     opts.Policies,
		orchestrator: opts.Orchestrator,
		provider:     opts.Provider,
		store:        opts.Store,
		metrics:      collector,
		tracer:       tracer,
		synth:        &synthesis.Synthesizer{IncludeSummary: opts.IncludeSummary},
		defaultLevel: level,
		preamble:     preamble,
		logger:       logger.With("component", "pipeline"),
	}, nil
}

// Process runs one request through the state machine and returns a
// well-formed Response. It never returns an error: total failure degrades
// to a synthetic non-compliant record, treated exactly like a violation.
func (p *Pipeline) Process(ctx context.Context, req *Request) (resp *Response) {
	start := time.Now()
	requestID := uuid.NewString()

	ctx, span := p.tracer.Start(ctx, "pipeline.process")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline panicked",
				"request_id", requestID,
				"panic", r,
			)
			record := policy.Unevaluable(policy.SourcePre,
				fmt.Sprintf("pipeline could not evaluate the request: %v", r))
			resp = &Response{
				RequestID:      requestID,
				ConversationID: req.ConversationID,
				Status:         StatusBlockedPre,
				State:          StateBlockedPre,
				Text:           p.synth.Refusal(record),
				Compliance:     record,
				Level:          string(p.level(req)),
			}
		}
		p.metrics.RecordRequest(string(resp.Status), resp.Level, time.Since(start))
	}()

	level := p.level(req)
	logger := p.logger.With("request_id", requestID, "level", string(level))

	history := append([]generation.Message(nil), req.History...)
	resp = p.runTurn(ctx, requestID, req, req.Text, history, level, logger)

	if req.FollowUp != "" {
		// The whole machine re-enters for the follow-up; nothing from the
		// first turn's checks is reused, only its transcript.
		if resp.Status == StatusDone && resp.GenerationUsed {
			history = append(history,
				generation.Message{Role: generation.RoleUser, Content: req.Text},
				generation.Message{Role: generation.RoleAssistant, Content: resp.Text},
			)
		}
		resp = p.runTurn(ctx, requestID, req, req.FollowUp, history, level, logger)
	}

	logger.Info("request processed",
		"status", string(resp.Status),
		"state", string(resp.State),
		"generation_used", resp.GenerationUsed,
		"duration", time.Since(start),
	)
	return resp
}

func (p *Pipeline) level(req *Request) analysis.Level {
	if req.Level == "" {
		return p.defaultLevel
	}
	return analysis.ParseLevel(req.Level)
}

// runTurn drives one pass of the state machine for a single text payload.
func (p *Pipeline) runTurn(ctx context.Context, requestID string, req *Request, text string, history []generation.Message, level analysis.Level, logger *slog.Logger) *Response {
	resp := &Response{
		RequestID:      requestID,
		ConversationID: req.ConversationID,
		State:          StateInit,
		Level:          string(level),
	}

	// INIT → PRE_CHECKED. The gate is authoritative; nothing below runs
	// on a violation.
	pre := p.checkPolicy(ctx, text, &policy.EvalContext{
		Source:    policy.SourcePre,
		RequestID: requestID,
	})
	resp.Compliance = pre
	p.recordGate(pre)

	if !pre.OverallCompliant {
		resp.State = StateBlockedPre
		resp.Status = statusFor(pre)
		resp.Text = p.synth.Refusal(pre)
		logger.Warn("input blocked",
			"layer", string(pre.BlockingLayer),
			"action", string(pre.BlockingAction),
		)
		p.persist(ctx, req, text, resp)
		return resp
	}
	resp.State = StatePreChecked

	resp.Analysis = p.analyze(ctx, text, &analysis.Context{
		Source:    "pre",
		RequestID: requestID,
	}, level)

	// PRE_CHECKED → GENERATING. Generation off means the synthesizer is
	// the normal path, not a degradation.
	if !req.UseGeneration || p.provider == nil {
		resp.State = StateDone
		resp.Status = StatusDone
		resp.Text = p.synth.Fallback(text, pre, len(resp.Analysis))
		p.persist(ctx, req, text, resp)
		return resp
	}

	resp.State = StateGenerating
	genStart := time.Now()
	genCtx, genSpan := p.tracer.Start(ctx, "pipeline.generation")
	genSpan.SetAttributes(tracing.String("generation.provider", p.provider.Name()))
	result, err := p.provider.Complete(genCtx, p.buildRequest(text, history))
	tracing.SetStatus(genSpan, err)
	genSpan.End()
	prompt, completion := usageTokens(result)
	p.metrics.RecordGeneration(p.provider.Name(), err, time.Since(genStart), prompt, completion)

	if err != nil {
		// GENERATION_FAILED: fall back to the synthesizer with the
		// pre-side results only. The empty completion is never gated.
		resp.State = StateGenerationFailed
		resp.Status = StatusDegraded
		resp.Text = p.synth.Fallback(text, pre, len(resp.Analysis))
		logger.Warn("generation failed, degrading to synthesizer", "error", err)
		p.persist(ctx, req, text, resp)
		return resp
	}
	resp.State = StateGenerated
	resp.Model = result.Model

	// GENERATED → POST_CHECKED. Same gate, same rules, annotated as the
	// post side.
	post := p.checkPolicy(ctx, result.Content, &policy.EvalContext{
		Source:        policy.SourcePost,
		RequestID:     requestID,
		OriginalInput: text,
	})
	resp.PostCompliance = post
	p.recordGate(post)

	if !post.OverallCompliant {
		// The completion is discarded; only the synthesized alternative
		// ever reaches the caller.
		resp.State = StateBlockedPost
		resp.Status = statusFor(post)
		resp.Text = p.synth.Refusal(post)
		logger.Warn("generated content withheld",
			"layer", string(post.BlockingLayer),
			"action", string(post.BlockingAction),
		)
		p.persist(ctx, req, text, resp)
		return resp
	}
	resp.State = StatePostChecked

	content := result.Content
	if synthesis.EchoesInput(content, text) {
		logger.Warn("completion echoed the input, replaced with fallback")
		content = p.synth.Fallback(text, pre, len(resp.Analysis))
	} else {
		resp.GenerationUsed = true
		if result.Usage.TotalTokens > 0 {
			usage := result.Usage
			resp.Usage = &usage
		}
	}

	resp.PostAnalysis = p.analyze(ctx, content, &analysis.Context{
		Source:        "post",
		RequestID:     requestID,
		OriginalInput: text,
	}, level)

	resp.State = StateDone
	resp.Status = StatusDone
	resp.Text = content
	p.persist(ctx, req, text, resp)
	return resp
}

// checkPolicy evaluates the current gate, converting any internal failure
// into a synthetic non-compliant record (fail-closed).
func (p *Pipeline) checkPolicy(ctx context.Context, text string, ectx *policy.EvalContext) (record *policy.ComplianceRecord) {
	_, span := p.tracer.Start(ctx, "pipeline.gate")
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			record = policy.Unevaluable(ectx.Source,
				fmt.Sprintf("policy gate could not run: %v", r))
		}
		span.SetAttributes(
			tracing.String("gate.source", string(ectx.Source)),
			tracing.Bool("gate.compliant", record.OverallCompliant),
		)
	}()
	return p.policies.Gate().Evaluate(text, ectx)
}

func (p *Pipeline) analyze(ctx context.Context, text string, actx *analysis.Context, level analysis.Level) []analysis.Result {
	ctx, span := p.tracer.Start(ctx, "pipeline.analysis")
	defer span.End()
	span.SetAttributes(tracing.String("analysis.source", actx.Source))

	start := time.Now()
	results := p.orchestrator.Run(ctx, text, actx, level)
	p.metrics.RecordAnalysisPass(string(level), time.Since(start))
	for _, r := range results {
		p.metrics.RecordAnalyzerRun(r.AnalyzerID, r.OK)
	}
	return results
}

func (p *Pipeline) buildRequest(text string, history []generation.Message) *generation.Request {
	messages := make([]generation.Message, 0, len(history)+2)
	messages = append(messages, generation.Message{
		Role:    generation.RoleSystem,
		Content: p.preamble,
	})
	messages = append(messages, history...)
	messages = append(messages, generation.Message{
		Role:    generation.RoleUser,
		Content: text,
	})
	return &generation.Request{Messages: messages}
}

func (p *Pipeline) recordGate(record *policy.ComplianceRecord) {
	p.metrics.RecordGateEvaluation(string(record.Source), record.OverallCompliant)
	if !record.OverallCompliant {
		p.metrics.RecordGateViolation(
			string(record.BlockingLayer),
			string(record.BlockingAction),
			string(record.Source),
		)
	}
}

// persist writes the turn's exchange when a store and conversation id are
// present. Storage failures are logged, never surfaced.
func (p *Pipeline) persist(ctx context.Context, req *Request, input string, resp *Response) {
	if p.store == nil || req.ConversationID == "" {
		return
	}

	if _, err := p.store.EnsureConversation(ctx, req.ConversationID); err != nil {
		p.logger.Error("failed to ensure conversation",
			"conversation_id", req.ConversationID,
			"error", err,
		)
		return
	}

	ex := store.Exchange{
		ID:        uuid.NewString(),
		RequestID: resp.RequestID,
		Input:     input,
		Response:  resp.Text,
		Status:    string(resp.Status),
		Level:     resp.Level,
		CreatedAt: time.Now().UTC(),
	}
	if resp.Status.Blocked() {
		record := resp.Compliance
		if resp.PostCompliance != nil && !resp.PostCompliance.OverallCompliant {
			record = resp.PostCompliance
		}
		ex.BlockingLayer = string(record.BlockingLayer)
	}

	if err := p.store.AppendExchange(ctx, req.ConversationID, ex); err != nil {
		p.logger.Error("failed to persist exchange",
			"conversation_id", req.ConversationID,
			"error", err,
		)
		return
	}

	if n, err := p.store.Count(ctx); err == nil {
		p.metrics.SetActiveConversations(n)
	}
}

// statusFor maps a non-compliant record to its terminal status.
func statusFor(record *policy.ComplianceRecord) Status {
	switch record.BlockingAction {
	case policy.ActionRefuse:
		return StatusRefused
	case policy.ActionProtect:
		return StatusProtected
	}
	if record.Source == policy.SourcePost {
		return StatusBlockedPost
	}
	return StatusBlockedPre
}

func usageTokens(result *generation.Result) (prompt, completion int) {
	if result == nil {
		return 0, 0
	}
	return result.Usage.PromptTokens, result.Usage.CompletionTokens
}
