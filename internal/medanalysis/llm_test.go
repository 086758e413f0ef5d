package medanalysis

import (
	"context"
	"encoding/base64"
	"errors"
	"net"
	"strings"
	"testing"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
)

func TestExecutorRetriesEmptyResponseWithFeedback(t *testing.T) {
	fake := &fakeCaller{responses: []string{"", "**Diagnosis:** influenza"}}
	exec := NewCallExecutor(fake)

	text, metrics, err := exec.Run(context.Background(), "report-analysis", "analyze this", nil, validateAnalysisText)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "Diagnosis") {
		t.Fatalf("unexpected text: %q", text)
	}
	if fake.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", fake.calls)
	}
	if !strings.Contains(fake.prompts[1], "previous response was empty") {
		t.Fatalf("second prompt missing empty-response feedback: %q", fake.prompts[1])
	}
	if metrics.Attempts != 2 || metrics.ContentRetries != 1 {
		t.Fatalf("metrics = %+v", metrics)
	}
}

func TestExecutorRetriesValidationFailureWithFeedback(t *testing.T) {
	fake := &fakeCaller{responses: []string{"no structure in this reply", "**Diagnosis:** influenza"}}
	exec := NewCallExecutor(fake)

	_, metrics, err := exec.Run(context.Background(), "report-analysis", "analyze this", nil, validateAnalysisText)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", fake.calls)
	}
	if !strings.Contains(fake.prompts[1], "could not be used") {
		t.Fatalf("second prompt missing validation feedback: %q", fake.prompts[1])
	}
	if !strings.Contains(fake.prompts[1], "analyze this") {
		t.Fatalf("second prompt lost the original instruction: %q", fake.prompts[1])
	}
	if metrics.ContentRetries != 1 {
		t.Fatalf("metrics = %+v", metrics)
	}
}

func TestExecutorReturnsLastTextWithUnusableError(t *testing.T) {
	fake := &fakeCaller{responses: []string{"first narrative", "second narrative", "third narrative"}}
	exec := NewCallExecutor(fake)

	text, metrics, err := exec.Run(context.Background(), "xray-analysis", "analyze this", nil, validateAnalysisText)
	if !errors.Is(err, ErrUnusableResponse) {
		t.Fatalf("expected ErrUnusableResponse, got %v", err)
	}
	if text != "third narrative" {
		t.Fatalf("expected last cleaned text, got %q", text)
	}
	if metrics.Attempts != 3 || metrics.ContentRetries != 2 {
		t.Fatalf("metrics = %+v", metrics)
	}
}

func TestExecutorClientErrorFailsImmediately(t *testing.T) {
	fake := &fakeCaller{errs: []error{errors.New("API error: status code: 400 bad request")}}
	exec := NewCallExecutor(fake)

	_, _, err := exec.Run(context.Background(), "report-analysis", "analyze", nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "transport failure") {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.calls != 1 {
		t.Fatalf("client error should not be retried, got %d calls", fake.calls)
	}
}

func TestExecutorServerErrorRetried(t *testing.T) {
	fake := &fakeCaller{
		errs:      []error{errors.New("status code: 503 service unavailable")},
		responses: []string{"", "recovered text"},
	}
	exec := NewCallExecutor(fake)

	text, _, err := exec.Run(context.Background(), "report-ocr", "extract", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "recovered text" {
		t.Fatalf("text = %q", text)
	}
	if fake.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", fake.calls)
	}
}

func TestExecutorTimeoutRetried(t *testing.T) {
	fake := &fakeCaller{
		errs:      []error{context.DeadlineExceeded},
		responses: []string{"", "**Symptoms:** cough"},
	}
	exec := NewCallExecutor(fake)

	_, _, err := exec.Run(context.Background(), "xray-analysis", "analyze", nil, validateAnalysisText)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", fake.calls)
	}
}

func TestExecutorStopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := &fakeCaller{errs: []error{errors.New("status code: 500 internal")}}
	exec := NewCallExecutor(fake)

	_, _, err := exec.Run(ctx, "report-analysis", "analyze", nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if fake.calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", fake.calls)
	}
}

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\nplain fenced\n```", "plain fenced"},
		{"no fences here", "no fences here"},
	}
	for _, tc := range cases {
		if got := stripCodeFences(tc.in); got != tc.want {
			t.Fatalf("stripCodeFences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestClassifyTransportError(t *testing.T) {
	cases := []struct {
		err  error
		want llmFailureClass
	}{
		{context.DeadlineExceeded, failureTimeout},
		{&net.DNSError{Err: "lookup timeout", IsTimeout: true}, failureTimeout},
		{errors.New("status code: 429 too many requests"), failureRateLimit},
		{errors.New("googleapi: Error 429: rate limit exceeded"), failureRateLimit},
		{errors.New("status code: 503 unavailable"), failureServer},
		{errors.New("status 404 not found"), failureClient},
		{errors.New("googleapi: Error 400: invalid argument"), failureClient},
		{errors.New("connection reset by peer"), failureServer},
	}
	for _, tc := range cases {
		if got := classifyTransportError(tc.err); got != tc.want {
			t.Fatalf("classifyTransportError(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestAnthropicCallerSendsPromptAndImages(t *testing.T) {
	mock := &capturingMessager{response: newAnthropicText("**Primary Findings:** clear lungs")}
	restore := withAnthropicCreator(mock)
	defer restore()

	caller, err := NewAnthropicCaller("test-key", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if caller.ModelName() != string(anthropic.ModelClaudeSonnet4_20250514) {
		t.Fatalf("default model = %q", caller.ModelName())
	}

	img := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	got, err := caller.GenerateText(context.Background(), "describe the study", img)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "**Primary Findings:** clear lungs" {
		t.Fatalf("text = %q", got)
	}

	if mock.params.MaxTokens != 4000 {
		t.Fatalf("max tokens = %d", mock.params.MaxTokens)
	}
	if len(mock.params.System) != 1 || mock.params.System[0].Text != analysisSystemPrompt {
		t.Fatalf("system prompt not forwarded: %+v", mock.params.System)
	}
	if len(mock.params.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(mock.params.Messages))
	}
	blocks := mock.params.Messages[0].Content
	if len(blocks) != 2 {
		t.Fatalf("content blocks = %d, want image then prompt", len(blocks))
	}
	imgBlock := blocks[0].OfImage
	if imgBlock == nil || imgBlock.Source.OfBase64 == nil {
		t.Fatal("first block is not a base64 image")
	}
	if imgBlock.Source.OfBase64.Data != base64.StdEncoding.EncodeToString(img) {
		t.Fatal("image bytes were not base64-forwarded")
	}
	if imgBlock.Source.OfBase64.MediaType != "image/jpeg" {
		t.Fatalf("media type = %q", imgBlock.Source.OfBase64.MediaType)
	}
	if blocks[1].OfText == nil || blocks[1].OfText.Text != "describe the study" {
		t.Fatal("second block does not carry the prompt")
	}
}

func TestAnthropicCallerTextOnly(t *testing.T) {
	mock := &capturingMessager{response: newAnthropicText("short summary")}
	restore := withAnthropicCreator(mock)
	defer restore()

	caller, err := NewAnthropicCaller("test-key", "claude-3-5-haiku-latest")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := caller.GenerateText(context.Background(), "summarize the findings"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(mock.params.Model) != "claude-3-5-haiku-latest" {
		t.Fatalf("model = %q", mock.params.Model)
	}
	blocks := mock.params.Messages[0].Content
	if len(blocks) != 1 || blocks[0].OfText == nil {
		t.Fatalf("text-only call sent %d blocks", len(blocks))
	}
}

func TestAnthropicCallerRequiresAPIKey(t *testing.T) {
	if _, err := NewAnthropicCaller("   ", ""); err == nil {
		t.Fatal("expected error for missing key")
	}
}

func TestCallerFromEnvSelectsAnthropic(t *testing.T) {
	restore := withAnthropicCreator(&capturingMessager{response: newAnthropicText("ok")})
	defer restore()
	t.Setenv("MODEL_PROVIDER", "Anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	t.Setenv("ANTHROPIC_MODEL", "")

	caller, err := VisionCallerFromEnv(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := caller.(*AnthropicCaller); !ok {
		t.Fatalf("caller type = %T", caller)
	}
}

func TestCallerFromEnvRejectsUnknownProvider(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "copilot")
	if _, err := TextCallerFromEnv(context.Background()); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestCallerFromEnvGeminiModelByStage(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "")
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("GEMINI_IMAGE_MODEL", "gemini-vision-test")
	t.Setenv("GEMINI_TEXT_MODEL", "")

	vision, err := VisionCallerFromEnv(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gem, ok := vision.(*GeminiCaller)
	if !ok {
		t.Fatalf("caller type = %T", vision)
	}
	defer gem.Close()
	if gem.ModelName() != "gemini-vision-test" {
		t.Fatalf("vision model = %q", gem.ModelName())
	}

	text, err := TextCallerFromEnv(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer text.(*GeminiCaller).Close()
	if text.ModelName() != DefaultGeminiModel {
		t.Fatalf("text model = %q, want default", text.ModelName())
	}
}

func TestCallerFromEnvGeminiLegacyKey(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_AI_API_KEY", "legacy-key")
	t.Setenv("GEMINI_IMAGE_MODEL", "")

	caller, err := VisionCallerFromEnv(context.Background())
	if err != nil {
		t.Fatalf("legacy key name not honored: %v", err)
	}
	caller.(*GeminiCaller).Close()
}

func TestCallerFromEnvMissingGeminiKey(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_AI_API_KEY", "")

	_, err := VisionCallerFromEnv(context.Background())
	if err == nil || !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Fatalf("err = %v", err)
	}
}

// fakeCaller scripts model responses per call; errs takes precedence over
// responses at the same index.
type fakeCaller struct {
	responses   []string
	errs        []error
	calls       int
	prompts     []string
	imageCounts []int
}

func (f *fakeCaller) GenerateText(_ context.Context, prompt string, images ...[]byte) (string, error) {
	idx := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.imageCounts = append(f.imageCounts, len(images))
	if idx < len(f.errs) && f.errs[idx] != nil {
		return "", f.errs[idx]
	}
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return "", errors.New("fakeCaller: no scripted response")
}

func (f *fakeCaller) ModelName() string { return "fake-model" }

// capturingMessager implements AnthropicMessager and records the last params.
type capturingMessager struct {
	params   anthropic.MessageNewParams
	response *anthropic.Message
	err      error
}

func (m *capturingMessager) New(_ context.Context, params anthropic.MessageNewParams, _ ...anthropicoption.RequestOption) (*anthropic.Message, error) {
	m.params = params
	return m.response, m.err
}

func newAnthropicText(text string) *anthropic.Message {
	return &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: text},
		},
	}
}

func withAnthropicCreator(m AnthropicMessager) func() {
	old := newAnthropicClient
	newAnthropicClient = func(string) AnthropicMessager { return m }
	return func() { newAnthropicClient = old }
}
