// Package assist turns free-form note text into structured note fields with a
// chat completion model.
package assist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/efrenluis/agenda-inteligente-ai/internal/database/models"
	"github.com/sashabaranov/go-openai"
)

const DefaultModel = openai.GPT4oMini

var ErrEmptyResponse = errors.New("assist: model returned no choices")

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

func (c Config) Enabled() bool {
	return c.APIKey != ""
}

// Suggestion is the normalized form of a note. Empty fields mean the model
// found nothing for them.
type Suggestion struct {
	Text       string   `json:"text"`
	Date       string   `json:"date,omitempty"` // YYYY-MM-DD
	Time       string   `json:"time,omitempty"` // HH:MM
	Location   string   `json:"location,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// Apply copies the suggested fields onto draft. Categories are added to the
// ones the draft already has.
func (s Suggestion) Apply(draft *models.NoteDraft) {
	if s.Text != "" {
		draft.Text = s.Text
	}
	if s.Date != "" {
		draft.Date = s.Date
	}
	if s.Time != "" {
		draft.Time = s.Time
	}
	if s.Location != "" {
		draft.Location = s.Location
	}
	for _, c := range s.Categories {
		if !containsFold(draft.Categories, c) {
			draft.Categories = append(draft.Categories, c)
		}
	}
}

// Normalizer is implemented by Service; the bot depends on it so a disabled
// assistant can be left nil.
type Normalizer interface {
	Normalize(ctx context.Context, text string, categories []string) (*Suggestion, error)
}

type Service struct {
	client *openai.Client
	model  string
	now    func() time.Time
	log    *slog.Logger
}

func New(cfg Config, log *slog.Logger) *Service {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		now:    time.Now,
		log:    log,
	}
}

// Normalize asks the model to clean up text and extract the date, time,
// location and the subset of categories that apply. Categories outside the
// permitted list are dropped.
func (s *Service) Normalize(ctx context.Context, text string, categories []string) (*Suggestion, error) {
	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(s.now(), categories)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("assist: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	var sg Suggestion
	content := stripFences(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &sg); err != nil {
		return nil, fmt.Errorf("assist: decode suggestion: %w", err)
	}

	sg.Text = strings.TrimSpace(sg.Text)
	if sg.Text == "" {
		sg.Text = strings.TrimSpace(text)
	}
	sg.Categories = permitted(sg.Categories, categories)
	if _, err := time.Parse(time.DateOnly, sg.Date); sg.Date != "" && err != nil {
		s.log.Debug("dropping unparseable date", "date", sg.Date)
		sg.Date = ""
	}
	return &sg, nil
}

func systemPrompt(now time.Time, categories []string) string {
	var b strings.Builder
	b.WriteString("You organize notes for a personal agenda. ")
	b.WriteString("Rewrite the user's note as a short, clear task and reply with a JSON object ")
	b.WriteString(`with the keys "text", "date" (YYYY-MM-DD), "time" (HH:MM), "location" and "categories". `)
	b.WriteString("Leave out any key you cannot infer. ")
	fmt.Fprintf(&b, "Today is %s. ", now.Format("Monday 2006-01-02"))
	if len(categories) == 0 {
		b.WriteString(`Always return "categories" as an empty list.`)
	} else {
		fmt.Fprintf(&b, "Pick categories only from: %s.", strings.Join(categories, ", "))
	}
	return b.String()
}

// permitted keeps the suggested names found in allowed, spelled as in allowed.
func permitted(suggested, allowed []string) []string {
	out := []string{}
	for _, name := range suggested {
		for _, a := range allowed {
			if strings.EqualFold(strings.TrimSpace(name), a) && !containsFold(out, a) {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// stripFences removes a Markdown code fence some models wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
