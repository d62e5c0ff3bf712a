package genai

import (
	"context"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

// mockChatService implements chatService for testing.
type mockChatService struct {
	resp openai.ChatCompletionResponse
	err  error
	got  openai.ChatCompletionRequest
}

func (m *mockChatService) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.got = req
	return m.resp, m.err
}

func TestGenerate_Success(t *testing.T) {
	mockResp := openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: "Hello World"}},
		},
	}
	mock := &mockChatService{resp: mockResp}
	client := &Client{chat: mock, model: DefaultModel}
	out, err := client.Generate(context.Background(), "system prompt", "user prompt")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "Hello World" {
		t.Errorf("expected 'Hello World', got '%s'", out)
	}
	if len(mock.got.Messages) != 2 || mock.got.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Errorf("unexpected request messages: %+v", mock.got.Messages)
	}
}

func TestGenerate_ServiceError(t *testing.T) {
	client := &Client{chat: &mockChatService{err: errors.New("service failure")}, model: DefaultModel}
	_, err := client.Generate(context.Background(), "sys", "usr")
	if err == nil || !strings.Contains(err.Error(), "service failure") {
		t.Errorf("expected service failure error, got %v", err)
	}
}

func TestGenerate_NoChoices(t *testing.T) {
	client := &Client{chat: &mockChatService{}, model: DefaultModel}
	_, err := client.Generate(context.Background(), "sys", "usr")
	if !errors.Is(err, ErrNoChoicesReturned) {
		t.Errorf("expected ErrNoChoicesReturned, got %v", err)
	}
}

func TestGenerateJSON_SetsResponseFormat(t *testing.T) {
	mock := &mockChatService{resp: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: `{"ok":true}`}},
		},
	}}
	client := &Client{chat: mock, model: DefaultModel}
	if _, err := client.GenerateJSON(context.Background(), "sys", "usr"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if mock.got.ResponseFormat == nil || mock.got.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
		t.Errorf("expected JSON response format, got %+v", mock.got.ResponseFormat)
	}
}

func TestNewClient_NoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewClient()
	if err == nil {
		t.Error("expected error when API key not provided, got nil")
	}
}

func TestNewClient_WithKey(t *testing.T) {
	cli, err := NewClient(WithAPIKey("test-key"), WithModel("gpt-4o"), WithTemperature(0.7))
	if err != nil {
		t.Fatalf("expected no error with API key, got %v", err)
	}
	if cli == nil {
		t.Fatal("expected client instance, got nil")
	}
	if cli.model != "gpt-4o" {
		t.Errorf("model override not applied: %q", cli.model)
	}
	if cli.temperature != 0.7 {
		t.Errorf("temperature override not applied: %v", cli.temperature)
	}
}
