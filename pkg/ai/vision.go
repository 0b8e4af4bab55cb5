package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	visionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "arena",
		Subsystem: "ai",
		Name:      "vision_request_duration_seconds",
		Help:      "Duration of vision model scoring requests",
	}, []string{"model"})

	visionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Subsystem: "ai",
		Name:      "vision_request_failures_total",
		Help:      "Number of failed vision model scoring requests",
	}, []string{"model"})
)

// Token budgets per response shape: objective answers are a bare number,
// subjective answers carry full review text.
const (
	objectiveMaxTokens  = 50
	subjectiveMaxTokens = 500
)

// VisionConfig defines configuration options for the OpenAI-compatible
// vision client.
type VisionConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	RequestTimeout time.Duration
	Logger         zerolog.Logger
}

// OpenAIVision implements VisionModel against any OpenAI-compatible chat
// completion endpoint that accepts image parts.
type OpenAIVision struct {
	client *openai.Client
	cfg    VisionConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIVision builds a vision client using the provided configuration.
func NewOpenAIVision(cfg VisionConfig) (*OpenAIVision, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("vision api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = time.Minute
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIVision{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/skillarena/arena-api/pkg/ai/vision"),
		logger: logger,
	}, nil
}

// Evaluate sends one image and prompt to the model and returns the raw text
// response. The call carries its own deadline so a hung upstream cannot pin
// an evaluation run forever.
func (v *OpenAIVision) Evaluate(parent context.Context, req VisionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(parent, v.cfg.RequestTimeout)
	defer cancel()

	ctx, span := v.tracer.Start(ctx, "vision.evaluate", trace.WithAttributes(
		attribute.String("model", v.cfg.Model),
		attribute.Bool("objective", req.Objective),
	))
	defer span.End()

	maxTokens := subjectiveMaxTokens
	if req.Objective {
		maxTokens = objectiveMaxTokens
	}

	request := openai.ChatCompletionRequest{
		Model:     v.cfg.Model,
		MaxTokens: maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: req.Prompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: encodeImageDataURL(req),
						},
					},
				},
			},
		},
	}

	start := time.Now()
	resp, err := v.client.CreateChatCompletion(ctx, request)
	visionDuration.WithLabelValues(v.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		visionFailures.WithLabelValues(v.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("vision evaluate: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from vision model")
		visionFailures.WithLabelValues(v.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func encodeImageDataURL(req VisionRequest) string {
	mime := req.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(req.ImageData))
}
