package scoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lessonlens/api-gateway/models"
)

func completionPayload(content string) map[string]any {
	return map[string]any{
		"choices": []any{
			map[string]any{
				"message": map[string]any{"content": content},
			},
		},
	}
}

func TestClientScore(t *testing.T) {
	var captured chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization header = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if err := json.NewEncoder(w).Encode(completionPayload("학생 참여: 15")); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL, Model: "demo-model"})
	content, err := client.Score(context.Background(), []models.Utterance{
		{Speaker: "A", Text: "봅시다", Start: 0, End: 1000},
	}, "en")
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	if content != "학생 참여: 15" {
		t.Errorf("content = %q", content)
	}

	if captured.Model != "demo-model" {
		t.Errorf("model = %q", captured.Model)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" || captured.Messages[1].Role != "user" {
		t.Fatalf("unexpected messages: %+v", captured.Messages)
	}
	if !strings.Contains(captured.Messages[1].Content, "봅시다") {
		t.Errorf("user prompt missing transcript: %q", captured.Messages[1].Content)
	}
}

func TestClientScoreEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(completionPayload("   "))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	if _, err := client.Score(context.Background(), nil, "en"); err != ErrEmptyResponse {
		t.Fatalf("err = %v, want ErrEmptyResponse", err)
	}
}

func TestClientScoreHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	_, err := client.Score(context.Background(), nil, "en")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("err = %v, want http 429 error", err)
	}
}

func TestClientScoreMissingAPIKey(t *testing.T) {
	client := NewClient(Config{})
	if _, err := client.Score(context.Background(), nil, "en"); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestBuildPromptEmptyTranscript(t *testing.T) {
	prompt := BuildPrompt(nil, "en")
	if !strings.Contains(prompt, "(발화 없음)") {
		t.Errorf("prompt missing empty-utterance marker:\n%s", prompt)
	}
	if !strings.Contains(prompt, "(대화 없음)") {
		t.Errorf("prompt missing empty-dialogue marker:\n%s", prompt)
	}
	if !strings.Contains(prompt, "총 발화 수: 0개") {
		t.Errorf("prompt missing zero utterance count:\n%s", prompt)
	}
}

func TestBuildPromptSectionsAndStats(t *testing.T) {
	utterances := []models.Utterance{
		{Speaker: "A", Text: "이제 분수를 배워봅시다", Start: 60_000},
		{Speaker: "B", Text: "네!", Start: 65_000},
		{Speaker: "A", Text: "분자끼리 곱하면 됩니다", Start: 70_000},
		{Speaker: "C", Text: "알겠어요", Start: 75_000},
	}
	prompt := BuildPrompt(utterances, "en")

	if !strings.Contains(prompt, "[1:00] 이제 분수를 배워봅시다") {
		t.Errorf("teacher section missing stamped utterance:\n%s", prompt)
	}
	if !strings.Contains(prompt, "화자 C: 알겠어요") {
		t.Errorf("student section missing tag attribution:\n%s", prompt)
	}
	if !strings.Contains(prompt, "[1:05] 학생: 네!") {
		t.Errorf("interleave missing role attribution:\n%s", prompt)
	}
	if !strings.Contains(prompt, "총 발화 수: 4개") {
		t.Errorf("utterance count wrong:\n%s", prompt)
	}
	if !strings.Contains(prompt, "교사 발화 비율: 50%") || !strings.Contains(prompt, "학생 발화 비율: 50%") {
		t.Errorf("turn ratios wrong:\n%s", prompt)
	}
}

func TestBuildPromptTruncatesInterleave(t *testing.T) {
	utterances := make([]models.Utterance, 25)
	for i := range utterances {
		utterances[i] = models.Utterance{Speaker: "B", Text: "네", Start: int64(i) * 1000}
	}
	prompt := BuildPrompt(utterances, "en")
	if strings.Contains(prompt, "[0:24]") {
		// utterance 24 is beyond the 20-line interleave and B-tagged lines
		// appear in the student section, so check the flow section only.
		flow := prompt[strings.Index(prompt, "전체 대화 흐름"):]
		stats := strings.Index(flow, "총 발화 수")
		if strings.Contains(flow[:stats], "[0:24] 학생") {
			t.Errorf("interleave not truncated:\n%s", flow[:stats])
		}
	}
}
