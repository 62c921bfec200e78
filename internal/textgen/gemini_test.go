package textgen

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"
)

type fakeModels struct {
	calls  int
	model  string
	system string
	prompt string
	resp   *genai.GenerateContentResponse
	err    error
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.model = model
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	if config != nil && config.SystemInstruction != nil {
		f.system = config.SystemInstruction.Parts[0].Text
	}
	return f.resp, f.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	c := &genai.Content{Role: "model"}
	for _, p := range parts {
		c.Parts = append(c.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: c}}}
}

func TestGenerate_Success(t *testing.T) {
	models := &fakeModels{resp: textResponse("Estimated magnitude 4.5 earthquake detected. ", "Drop, cover, and hold on.\n")}
	g := New(models, "gemini-2.0-flash-lite", 0)

	got, err := g.Generate(context.Background(), "prompt text", "system text")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "Estimated magnitude 4.5 earthquake detected. Drop, cover, and hold on." {
		t.Errorf("text = %q", got)
	}
	if models.model != "gemini-2.0-flash-lite" || models.prompt != "prompt text" || models.system != "system text" {
		t.Errorf("request = %+v", models)
	}
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		models *fakeModels
		want   error
	}{
		{"empty candidates", &fakeModels{resp: &genai.GenerateContentResponse{}}, ErrEmptyResponse},
		{"blank text", &fakeModels{resp: textResponse("  ")}, ErrEmptyResponse},
		{"nil response", &fakeModels{}, ErrEmptyResponse},
		{"quota", &fakeModels{err: errors.New("Error 429, Message: quota, Status: RESOURCE_EXHAUSTED")}, ErrRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.models, "m", 0).Generate(context.Background(), "p", "")
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGenerate_OtherErrorNotRateLimited(t *testing.T) {
	_, err := New(&fakeModels{err: errors.New("connection reset")}, "m", 0).Generate(context.Background(), "p", "")
	if err == nil || errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v", err)
	}
}

func TestGenerate_LocalLimiter(t *testing.T) {
	models := &fakeModels{resp: textResponse("ok")}
	g := New(models, "m", 1)

	if _, err := g.Generate(context.Background(), "p", ""); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := g.Generate(context.Background(), "p", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("second call err = %v, want ErrRateLimited", err)
	}
	if models.calls != 1 {
		t.Errorf("model called %d times, want 1", models.calls)
	}
}

func TestNewGemini_RequiresKey(t *testing.T) {
	if _, err := NewGemini(context.Background(), "", "m", 0); err == nil {
		t.Fatal("expected error without api key")
	}
}
