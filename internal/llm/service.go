// Package llm wraps the OpenAI client with the completion shapes the engine
// needs: plain text, JSON-mode and streaming text. Every call is traced with
// GenAI semantic-convention attributes and tagged with the session id so
// turns group per session in the trace backend.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"storyengine/internal/debug"
	"storyengine/internal/observability"
)

type contextKey string

const operationTypeKey contextKey = "operation_type"

type Service struct {
	client *openai.Client
	model  string
	debug  *debug.Logger
	tracer trace.Tracer
}

func NewService(apiKey, model string, debug *debug.Logger) *Service {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Service{
		client: &client,
		model:  model,
		debug:  debug,
		tracer: otel.Tracer("llm-service"),
	}
}

type TextCompletionRequest struct {
	SystemPrompt    string
	UserPrompt      string
	MaxTokens       int
	Model           string // optional override
	ReasoningEffort string // optional: minimal, low, medium, high
}

type JSONCompletionRequest struct {
	SystemPrompt    string
	UserPrompt      string
	MaxTokens       int
	Model           string
	ReasoningEffort string
}

type StreamCompletionRequest struct {
	SystemPrompt    string
	UserPrompt      string
	MaxTokens       int
	Model           string
	ReasoningEffort string
}

// CompleteText runs a plain chat completion and returns the content.
func (s *Service) CompleteText(ctx context.Context, req TextCompletionRequest) (string, error) {
	model := s.resolveModel(req.Model)
	ctx, span := s.startSpan(ctx, "llm.complete_text", model, req.MaxTokens, "text")
	defer span.End()

	params := s.buildParams(model, req.SystemPrompt, req.UserPrompt, req.MaxTokens, req.ReasoningEffort)

	startTime := time.Now()
	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("text completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no completion choices returned")
		span.RecordError(err)
		return "", err
	}

	content := resp.Choices[0].Message.Content
	s.finishSpan(span, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, time.Since(startTime), content)
	return content, nil
}

// CompleteJSON runs a completion in JSON mode.
func (s *Service) CompleteJSON(ctx context.Context, req JSONCompletionRequest) (string, error) {
	model := s.resolveModel(req.Model)
	ctx, span := s.startSpan(ctx, "llm.complete_json", model, req.MaxTokens, "json")
	defer span.End()

	params := s.buildParams(model, req.SystemPrompt, req.UserPrompt, req.MaxTokens, req.ReasoningEffort)
	jsonObject := shared.NewResponseFormatJSONObjectParam()
	params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONObject: &jsonObject,
	}

	startTime := time.Now()
	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("JSON completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no completion choices returned")
		span.RecordError(err)
		return "", err
	}

	content := resp.Choices[0].Message.Content
	if s.debug.Enabled() && resp.Choices[0].FinishReason == "length" {
		s.debug.Printf("JSON completion truncated at %d tokens", resp.Usage.CompletionTokens)
	}
	s.finishSpan(span, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, time.Since(startTime), content)
	return content, nil
}

// CompleteStreamText streams a completion, invoking onChunk per content
// delta, and returns the accumulated text once the stream ends.
func (s *Service) CompleteStreamText(ctx context.Context, req StreamCompletionRequest, onChunk func(string)) (string, error) {
	model := s.resolveModel(req.Model)
	ctx, span := s.startSpan(ctx, "llm.complete_stream", model, req.MaxTokens, "text")
	defer span.End()

	params := s.buildParams(model, req.SystemPrompt, req.UserPrompt, req.MaxTokens, req.ReasoningEffort)

	startTime := time.Now()
	stream := s.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	var sb strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		sb.WriteString(delta)
		if onChunk != nil {
			onChunk(delta)
		}
	}
	if err := stream.Err(); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("stream completion failed: %w", err)
	}

	content := sb.String()
	s.finishSpan(span, 0, 0, time.Since(startTime), content)
	return content, nil
}

func (s *Service) resolveModel(override string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	return s.model
}

func (s *Service) buildParams(model, systemPrompt, userPrompt string, maxTokens int, reasoningEffort string) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
	}
	if reasoningEffort != "" {
		params.ReasoningEffort = shared.ReasoningEffort(reasoningEffort)
	}
	return params
}

func (s *Service) startSpan(ctx context.Context, fallbackName, model string, maxTokens int, format string) (context.Context, trace.Span) {
	spanName := fallbackName
	if opType := getOperationType(ctx); opType != "" {
		spanName = opType
	}
	ctx, span := s.tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(observability.CreateGenAIAttributes("openai", model, 0, 0, 0.0)...),
	)
	span.SetAttributes(
		attribute.Int("gen_ai.request.max_tokens", maxTokens),
		attribute.String("langfuse.observation.type", "generation"),
		attribute.String("response_format", format),
	)
	if sessionID := observability.GetSessionIDFromContext(ctx); sessionID != "" {
		span.SetAttributes(
			attribute.String("langfuse.session.id", sessionID),
			attribute.String("session.id", sessionID),
		)
	}
	return ctx, span
}

func (s *Service) finishSpan(span trace.Span, inputTokens, outputTokens int64, duration time.Duration, content string) {
	span.SetAttributes(
		attribute.Int64("gen_ai.usage.input_tokens", inputTokens),
		attribute.Int64("gen_ai.usage.output_tokens", outputTokens),
		attribute.Int64("response_time_ms", duration.Milliseconds()),
		attribute.String("langfuse.observation.output", content),
	)
	s.debug.Printf("LLM completion: %d chars, tokens %d/%d, duration %v",
		len(content), inputTokens, outputTokens, duration)
}

// WithOperationType names the span the next LLM call creates.
func WithOperationType(ctx context.Context, opType string) context.Context {
	return context.WithValue(ctx, operationTypeKey, opType)
}

// WithSessionID tags subsequent spans with the session id.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, observability.GetSessionIDKey(), sessionID)
}

func getOperationType(ctx context.Context) string {
	if opType, ok := ctx.Value(operationTypeKey).(string); ok {
		return opType
	}
	return ""
}
