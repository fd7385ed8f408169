package rewriter

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/remedyd/internal/issue"
	"github.com/fyrsmithlabs/remedyd/internal/logging"
	"github.com/fyrsmithlabs/remedyd/internal/secrets"
)

const instrumentationName = "github.com/fyrsmithlabs/remedyd/internal/rewriter"

// ErrRewriteFailed is returned when the collaborator cannot produce a
// usable rewrite: transport failure, refusal, or a reply without code.
var ErrRewriteFailed = errors.New("rewriter: rewrite failed")

const systemPrompt = `You are a code remediation assistant. You receive a source file and a code-quality finding. Return the complete corrected file in a single fenced code block. Change only what the finding requires. Do not add commentary outside the code block.`

// Config configures the rewriter service.
type Config struct {
	// BaseURL is the openai-compatible endpoint.
	// Default: http://localhost:11434/v1 (Ollama).
	BaseURL string

	// Model is the chat model name.
	Model string

	// APIKey authenticates against hosted endpoints. Optional for
	// local backends.
	APIKey string
}

// Service implements the rewrite capability against a chat model.
type Service struct {
	llm      llms.Model
	scrubber secrets.Scrubber
	logger   *logging.Logger

	tracer         trace.Tracer
	meter          metric.Meter
	rewriteCounter metric.Int64Counter
}

// NewService creates a rewriter backed by an openai-compatible endpoint.
// scrubber may be nil to disable outbound redaction.
func NewService(cfg *Config, scrubber secrets.Scrubber, logger *logging.Logger) (*Service, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "qwen2.5-coder"
	}

	token := cfg.APIKey
	if token == "" {
		// The client requires a token even for local endpoints.
		token = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
		openai.WithToken(token),
	)
	if err != nil {
		return nil, fmt.Errorf("creating chat client: %w", err)
	}

	return NewServiceWithModel(llm, scrubber, logger), nil
}

// NewServiceWithModel creates a rewriter over an existing chat model.
// Used by tests with a deterministic double.
func NewServiceWithModel(llm llms.Model, scrubber secrets.Scrubber, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Service{
		llm:      llm,
		scrubber: scrubber,
		logger:   logger.Named("rewriter"),
		tracer:   otel.Tracer(instrumentationName),
		meter:    otel.Meter(instrumentationName),
	}
	s.initMetrics()
	return s
}

func (s *Service) initMetrics() {
	var err error
	s.rewriteCounter, err = s.meter.Int64Counter(
		"remedyd.rewriter.rewrites_total",
		metric.WithDescription("Total rewrite attempts, labeled by outcome"),
		metric.WithUnit("{rewrite}"),
	)
	if err != nil {
		s.logger.Warn(context.Background(), "failed to create rewrite counter", zap.Error(err))
	}
}

// Rewrite sends the file and finding to the collaborator and returns the
// rewritten content.
//
// With scrubbing enabled the model rewrites the redacted text, so a
// credential detected in the input is also absent from the returned
// code: the fix removes the secret rather than re-embedding it.
func (s *Service) Rewrite(ctx context.Context, content, language string, iss *issue.Issue) (string, error) {
	ctx, span := s.tracer.Start(ctx, "rewriter.rewrite")
	defer span.End()

	if iss == nil {
		return "", fmt.Errorf("%w: issue is required", ErrRewriteFailed)
	}
	span.SetAttributes(
		attribute.String("language", language),
		attribute.Int("content_bytes", len(content)),
	)

	outbound := content
	finding := iss.Text()
	suggestion := iss.FixSuggestion
	if s.scrubber != nil && s.scrubber.IsEnabled() {
		res := s.scrubber.Scrub(outbound)
		if len(res.Findings) > 0 {
			s.logger.Warn(ctx, "redacted secrets before rewrite",
				zap.Int("findings", len(res.Findings)),
			)
		}
		outbound = res.Scrubbed
		finding = s.scrubber.Scrub(finding).Scrubbed
		suggestion = s.scrubber.Scrub(suggestion).Scrubbed
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Finding: %s\n", finding)
	if suggestion != "" {
		fmt.Fprintf(&prompt, "Suggested fix: %s\n", suggestion)
	}
	fmt.Fprintf(&prompt, "\nFile (%s):\n```%s\n%s\n```\n", language, language, outbound)
	prompt.WriteString("\nReturn the full corrected file.")

	resp, err := s.llm.GenerateContent(ctx,
		[]llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
			llms.TextParts(llms.ChatMessageTypeHuman, prompt.String()),
		},
		llms.WithTemperature(0),
	)
	if err != nil {
		s.recordRewrite(ctx, "error")
		span.RecordError(err)
		return "", fmt.Errorf("%w: %v", ErrRewriteFailed, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		s.recordRewrite(ctx, "empty")
		return "", fmt.Errorf("%w: empty reply", ErrRewriteFailed)
	}

	code := extractCodeBlock(resp.Choices[0].Content)
	if code == "" {
		s.recordRewrite(ctx, "no_code")
		return "", fmt.Errorf("%w: reply contains no code block", ErrRewriteFailed)
	}

	code = matchTrailingNewline(content, code)

	s.recordRewrite(ctx, "success")
	s.logger.Debug(ctx, "rewrite produced",
		zap.String("language", language),
		zap.Int("bytes", len(code)),
	)
	return code, nil
}

func (s *Service) recordRewrite(ctx context.Context, outcome string) {
	if s.rewriteCounter != nil {
		s.rewriteCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

var fencePattern = regexp.MustCompile("(?s)```[\\w+.-]*\\r?\\n(.*?)```")

// extractCodeBlock returns the body of the first fenced code block.
func extractCodeBlock(reply string) string {
	m := fencePattern.FindStringSubmatch(reply)
	if m == nil {
		return ""
	}
	return m[1]
}

// matchTrailingNewline aligns the rewrite's trailing-newline disposition
// with the original so the fence framing never introduces a spurious
// end-of-file change.
func matchTrailingNewline(original, code string) string {
	origEOL := strings.HasSuffix(original, "\n")
	codeEOL := strings.HasSuffix(code, "\n")
	switch {
	case origEOL && !codeEOL:
		return code + "\n"
	case !origEOL && codeEOL:
		return strings.TrimRight(code, "\n")
	default:
		return code
	}
}
