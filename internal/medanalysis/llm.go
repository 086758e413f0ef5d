package medanalysis

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"regexp"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ErrUnusableResponse marks a model response that survived transport but
// never passed content validation across all attempts.
var ErrUnusableResponse = errors.New("model response failed validation")

var statusCodeRe = regexp.MustCompile(`(?i)status(?:\s+code)?[:=\s]+(\d{3})`)

type llmFailureClass int

const (
	failureNone llmFailureClass = iota
	failureTimeout
	failureRateLimit
	failureServer
	failureClient
)

// Generation settings applied to every provider call.
const (
	modelMaxTokens   = 4000
	modelTemperature = 0.1
)

// ModelCaller is the narrow surface the analysis agents need from a
// vision/text model provider. Image attachments are prepared JPEG bytes.
type ModelCaller interface {
	GenerateText(ctx context.Context, prompt string, images ...[]byte) (string, error)
	ModelName() string
}

// GeminiCaller calls the Gemini API. It is the primary provider; the image
// and text paths share one client and differ only in the configured model.
type GeminiCaller struct {
	client *genai.Client
	model  string
}

func NewGeminiCaller(ctx context.Context, apiKey, model string) (*GeminiCaller, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY not configured")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiCaller{client: client, model: model}, nil
}

func (g *GeminiCaller) Close() error {
	if g == nil || g.client == nil {
		return nil
	}
	return g.client.Close()
}

func (g *GeminiCaller) ModelName() string { return g.model }

func (g *GeminiCaller) GenerateText(ctx context.Context, prompt string, images ...[]byte) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(modelTemperature)
	model.SetMaxOutputTokens(modelMaxTokens)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(analysisSystemPrompt)}}
	parts := make([]genai.Part, 0, len(images)+1)
	parts = append(parts, genai.Text(prompt))
	for _, img := range images {
		parts = append(parts, genai.ImageData("jpeg", img))
	}
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}
	return sb.String(), nil
}

// AnthropicMessager defines the subset of the Anthropic client we use.
type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...anthropicoption.RequestOption) (*anthropic.Message, error)
}

type AnthropicClientCreator func(apiKey string) AnthropicMessager

func defaultAnthropicCreator(apiKey string) AnthropicMessager {
	c := anthropic.NewClient(anthropicoption.WithAPIKey(apiKey))
	return &c.Messages
}

// newAnthropicClient is the package-level creator, overridable in tests.
var newAnthropicClient AnthropicClientCreator = defaultAnthropicCreator

// AnthropicCaller is the alternate provider, selected with
// MODEL_PROVIDER=anthropic.
type AnthropicCaller struct {
	messages AnthropicMessager
	model    string
}

func NewAnthropicCaller(apiKey, model string) (*AnthropicCaller, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	if strings.TrimSpace(model) == "" {
		model = string(anthropic.ModelClaudeSonnet4_20250514)
	}
	return &AnthropicCaller{messages: newAnthropicClient(apiKey), model: model}, nil
}

func (a *AnthropicCaller) ModelName() string { return a.model }

func (a *AnthropicCaller) GenerateText(ctx context.Context, prompt string, images ...[]byte) (string, error) {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(images)+1)
	for _, img := range images {
		blocks = append(blocks, anthropic.NewImageBlockBase64("image/jpeg", base64.StdEncoding.EncodeToString(img)))
	}
	blocks = append(blocks, anthropic.NewTextBlock(prompt))
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   modelMaxTokens,
		System:      []anthropic.TextBlockParam{{Text: analysisSystemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
		Temperature: anthropic.Float(modelTemperature),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}

// VisionCallerFromEnv builds the caller for image stages from MODEL_PROVIDER
// (default gemini) and the provider's key/model variables.
func VisionCallerFromEnv(ctx context.Context) (ModelCaller, error) {
	return callerFromEnv(ctx, "GEMINI_IMAGE_MODEL")
}

// TextCallerFromEnv builds the caller for text-only stages.
func TextCallerFromEnv(ctx context.Context) (ModelCaller, error) {
	return callerFromEnv(ctx, "GEMINI_TEXT_MODEL")
}

func callerFromEnv(ctx context.Context, geminiModelEnv string) (ModelCaller, error) {
	provider := strings.ToLower(strings.TrimSpace(os.Getenv("MODEL_PROVIDER")))
	switch provider {
	case "", "gemini":
		key := os.Getenv("GEMINI_API_KEY")
		if strings.TrimSpace(key) == "" {
			// Older deployments configured the key under the Google AI name.
			key = os.Getenv("GOOGLE_AI_API_KEY")
		}
		return NewGeminiCaller(ctx, key, os.Getenv(geminiModelEnv))
	case "anthropic":
		return NewAnthropicCaller(os.Getenv("ANTHROPIC_API_KEY"), os.Getenv("ANTHROPIC_MODEL"))
	default:
		return nil, fmt.Errorf("unknown MODEL_PROVIDER %q", provider)
	}
}

// CallMetrics counts the work one executor run did.
type CallMetrics struct {
	Attempts       int
	ContentRetries int
}

// CallExecutor wraps a ModelCaller with retries: transport failures are
// classified and backed off, empty or unparseable responses are retried with
// corrective feedback appended to the prompt.
type CallExecutor struct {
	caller ModelCaller
}

func NewCallExecutor(caller ModelCaller) *CallExecutor {
	return &CallExecutor{caller: caller}
}

func (e *CallExecutor) ModelName() string {
	if e == nil || e.caller == nil {
		return DefaultGeminiModel
	}
	return e.caller.ModelName()
}

// Run executes one model call with up to 3 attempts. On success it returns
// the cleaned response text. When every attempt produced text that failed
// validation, the last text is returned alongside an ErrUnusableResponse so
// callers can degrade instead of discarding the response.
func (e *CallExecutor) Run(ctx context.Context, stageName, prompt string, images [][]byte, validate func(string) error) (string, CallMetrics, error) {
	metrics := CallMetrics{}
	feedback := ""
	lastClean := ""
	for attempt := 1; attempt <= 3; attempt++ {
		metrics.Attempts = attempt
		fullPrompt := prompt
		if feedback != "" {
			fullPrompt += "\n\n" + feedback
		}

		attemptStart := time.Now()
		log.Printf("med-analysis llm_attempt_start stage=%s attempt=%d images=%d", stageName, attempt, len(images))
		raw, err := e.caller.GenerateText(ctx, fullPrompt, images...)
		if err != nil {
			class := classifyTransportError(err)
			log.Printf("med-analysis llm_attempt_transport_error stage=%s attempt=%d class=%d elapsed_ms=%d err=%q", stageName, attempt, class, time.Since(attemptStart).Milliseconds(), err.Error())
			if class == failureTimeout || class == failureRateLimit || class == failureServer {
				if attempt < 3 {
					if serr := sleepCtx(ctx, backoffDelay(attempt)); serr != nil {
						return "", metrics, serr
					}
					continue
				}
			}
			return "", metrics, fmt.Errorf("%s transport failure: %w", stageName, err)
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			log.Printf("med-analysis llm_attempt_empty stage=%s attempt=%d elapsed_ms=%d", stageName, attempt, time.Since(attemptStart).Milliseconds())
			if attempt < 3 {
				metrics.ContentRetries++
				feedback = "Your previous response was empty. Respond using the requested section format."
				continue
			}
			return "", metrics, fmt.Errorf("%s failed: empty response", stageName)
		}

		clean := stripCodeFences(raw)
		lastClean = clean
		if validate != nil {
			if verr := validate(clean); verr != nil {
				log.Printf("med-analysis llm_attempt_validation_error stage=%s attempt=%d elapsed_ms=%d err=%q", stageName, attempt, time.Since(attemptStart).Milliseconds(), verr.Error())
				if attempt < 3 {
					metrics.ContentRetries++
					feedback = fmt.Sprintf("Your previous response could not be used: %s. Respond again using exactly the requested **Section:** headings.", verr)
					continue
				}
				return lastClean, metrics, fmt.Errorf("%s failed validation (%v): %w", stageName, verr, ErrUnusableResponse)
			}
		}
		log.Printf("med-analysis llm_attempt_success stage=%s attempt=%d elapsed_ms=%d response_chars=%d", stageName, attempt, time.Since(attemptStart).Milliseconds(), len(clean))
		return clean, metrics, nil
	}
	return lastClean, metrics, fmt.Errorf("%s failed after retries", stageName)
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		}
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

func classifyTransportError(err error) llmFailureClass {
	msg := strings.ToLower(err.Error())
	if errors.Is(err, context.DeadlineExceeded) {
		return failureTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return failureTimeout
	}
	m := statusCodeRe.FindStringSubmatch(msg)
	if len(m) == 2 {
		switch {
		case strings.HasPrefix(m[1], "429"):
			return failureRateLimit
		case strings.HasPrefix(m[1], "5"):
			return failureServer
		case strings.HasPrefix(m[1], "4"):
			return failureClient
		}
	}
	switch {
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "quota"):
		return failureRateLimit
	case strings.Contains(msg, "server error"), strings.Contains(msg, "unavailable"):
		return failureServer
	case strings.Contains(msg, "invalid argument"), strings.Contains(msg, "permission"), strings.Contains(msg, "unauthenticated"):
		return failureClient
	default:
		return failureServer
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func backoffDelay(attempt int) time.Duration {
	switch attempt {
	case 1:
		return 1 * time.Second
	case 2:
		return 2 * time.Second
	default:
		return 4 * time.Second
	}
}
