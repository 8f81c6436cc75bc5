package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"docutrain/admin/internal/settings"
	"docutrain/admin/internal/worker"
)

const defaultModel = "gemini-1.5-flash"

// DynamicGenerator creates quiz questions with Gemini. The API key and
// model come from platform settings on every call, so an admin can rotate
// the key without a restart; the underlying client is rebuilt only when
// the key actually changes.
type DynamicGenerator struct {
	settingsSvc *settings.Service
	client      *genai.Client
	currentKey  string
	mu          sync.RWMutex
	clientOpts  []option.ClientOption
}

func NewDynamicGenerator(svc *settings.Service, opts ...option.ClientOption) *DynamicGenerator {
	return &DynamicGenerator{
		settingsSvc: svc,
		clientOpts:  opts,
	}
}

func (g *DynamicGenerator) GenerateQuestions(ctx context.Context, title string, chunks []worker.Chunk, count int) ([]worker.Question, error) {
	s, err := g.settingsSvc.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	if s.GeminiAPIKey == "" {
		return nil, fmt.Errorf("gemini api key not configured")
	}

	client, err := g.getClient(ctx, s.GeminiAPIKey)
	if err != nil {
		return nil, err
	}

	modelName := s.QuizModel
	if modelName == "" {
		modelName = defaultModel
	}
	if count <= 0 {
		count = 5
	}

	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"

	res, err := model.GenerateContent(ctx, genai.Text(buildPrompt(title, chunks, count)))
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}
	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty generation response")
	}

	var raw strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			raw.WriteString(string(text))
		}
	}

	questions, err := parseQuestions(raw.String())
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "quiz questions generated", "model", modelName, "count", len(questions))
	return questions, nil
}

func buildPrompt(title string, chunks []worker.Chunk, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d multiple-choice quiz questions about the document %q.\n", count, title)
	b.WriteString("Answer with a JSON array of objects with keys: prompt, choices (4 strings), answer (index into choices), explanation.\n")
	b.WriteString("Base every question strictly on the excerpts below.\n\n")
	for _, c := range chunks {
		b.WriteString("---\n")
		b.WriteString(c.Content)
		b.WriteString("\n")
	}
	return b.String()
}

func parseQuestions(raw string) ([]worker.Question, error) {
	cleaned := strings.TrimSpace(raw)
	// Some models wrap JSON in a fenced block even with a JSON MIME type.
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var questions []worker.Question
	if err := json.Unmarshal([]byte(cleaned), &questions); err != nil {
		return nil, fmt.Errorf("unparseable generation output: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("generation produced no questions")
	}
	return questions, nil
}

func (g *DynamicGenerator) getClient(ctx context.Context, key string) (*genai.Client, error) {
	g.mu.RLock()
	if g.client != nil && g.currentKey == key {
		defer g.mu.RUnlock()
		return g.client, nil
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	// Double check
	if g.client != nil && g.currentKey == key {
		return g.client, nil
	}

	if g.client != nil {
		if err := g.client.Close(); err != nil {
			slog.Warn("failed to close previous genai client", "error", err)
		}
	}

	opts := append(g.clientOpts, option.WithAPIKey(key))
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	g.client = client
	g.currentKey = key
	return client, nil
}
