package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lessonlens/api-gateway/models"
)

const (
	defaultBaseURL     = "https://api.assemblyai.com/v2"
	defaultLanguage    = "en"
	defaultHTTPTimeout = 120 * time.Second
)

// ErrUnavailable marks transport and auth failures against the transcription
// service. The orchestrator treats it as fatal for the job without touching
// previously written state; a job-level "error" status is NOT this error but
// a normal Job with StatusError.
var ErrUnavailable = errors.New("transcription service unavailable")

// Job states reported by the service. The adapter never invents additional
// states; callers poll until completed or error.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Job is a transcription job snapshot. Utterances is non-nil (possibly
// empty) once Status is completed; Error is set when Status is error.
type Job struct {
	ID         string             `json:"id"`
	Status     string             `json:"status"`
	Utterances []models.Utterance `json:"utterances"`
	Error      string             `json:"error"`
}

// Vocabulary boosted for the classroom domain, carried on every submission.
var classroomWordBoost = []string{
	"teacher", "student", "math", "problem", "answer",
	"calculation", "fraction", "multiplication", "division",
}

// Config captures the runtime settings for the speech-to-text service.
type Config struct {
	APIKey         string
	BaseURL        string
	LanguageCode   string
	TimeoutSeconds int
}

// Client talks to the AssemblyAI v2 REST API: raw-bytes upload, transcript
// submission with diarization, and poll-by-id. It keeps no local state.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a transcription client from the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.LanguageCode == "" {
		client.cfg.LanguageCode = defaultLanguage
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Language returns the speech-recognition language code submissions use.
func (c *Client) Language() string {
	return c.cfg.LanguageCode
}

type submitRequest struct {
	AudioURL        string   `json:"audio_url"`
	LanguageCode    string   `json:"language_code"`
	Punctuate       bool     `json:"punctuate"`
	FormatText      bool     `json:"format_text"`
	SpeakerLabels   bool     `json:"speaker_labels"`
	WordBoost       []string `json:"word_boost"`
	BoostParam      string   `json:"boost_param"`
	FilterProfanity bool     `json:"filter_profanity"`
	Disfluencies    bool     `json:"disfluencies"`
	EntityDetection bool     `json:"entity_detection"`
}

type transcriptResponse struct {
	ID         string             `json:"id"`
	Status     string             `json:"status"`
	Utterances []models.Utterance `json:"utterances"`
	Error      string             `json:"error"`
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

// Upload streams raw media bytes to the service and returns a URL usable as
// a transcription source. The service extracts audio from video itself.
func (c *Client) Upload(ctx context.Context, media io.Reader) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/upload", media)
	if err != nil {
		return "", fmt.Errorf("transcription upload: %w", err)
	}
	req.Header.Set("Authorization", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	var decoded uploadResponse
	if err := c.do(req, &decoded); err != nil {
		return "", fmt.Errorf("transcription upload: %w", err)
	}
	if decoded.UploadURL == "" {
		return "", fmt.Errorf("transcription upload: %w: no upload_url in response", ErrUnavailable)
	}
	return decoded.UploadURL, nil
}

// Submit starts a transcription job for a fetchable media URL and returns
// the job handle. The job is asynchronous; poll with Get.
func (c *Client) Submit(ctx context.Context, audioURL string) (Job, error) {
	payload := submitRequest{
		AudioURL:        audioURL,
		LanguageCode:    c.cfg.LanguageCode,
		Punctuate:       true,
		FormatText:      true,
		SpeakerLabels:   true,
		WordBoost:       classroomWordBoost,
		BoostParam:      "high",
		FilterProfanity: false,
		Disfluencies:    false,
		EntityDetection: true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Job{}, fmt.Errorf("transcription submit: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/transcript", bytes.NewReader(body))
	if err != nil {
		return Job{}, fmt.Errorf("transcription submit: %w", err)
	}
	req.Header.Set("Authorization", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	var decoded transcriptResponse
	if err := c.do(req, &decoded); err != nil {
		return Job{}, fmt.Errorf("transcription submit: %w", err)
	}
	return jobFromResponse(decoded), nil
}

// Get fetches the current snapshot of a transcription job.
func (c *Client) Get(ctx context.Context, transcriptID string) (Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/transcript/"+transcriptID, nil)
	if err != nil {
		return Job{}, fmt.Errorf("transcription get: %w", err)
	}
	req.Header.Set("Authorization", c.cfg.APIKey)

	var decoded transcriptResponse
	if err := c.do(req, &decoded); err != nil {
		return Job{}, fmt.Errorf("transcription get: %w", err)
	}
	return jobFromResponse(decoded), nil
}

func jobFromResponse(resp transcriptResponse) Job {
	job := Job{
		ID:         resp.ID,
		Status:     resp.Status,
		Utterances: resp.Utterances,
		Error:      resp.Error,
	}
	if job.Status == StatusCompleted && job.Utterances == nil {
		job.Utterances = []models.Utterance{}
	}
	return job
}

func (c *Client) do(req *http.Request, out interface{}) error {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return fmt.Errorf("%w: api key required", ErrUnavailable)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: http %d: %s", ErrUnavailable, resp.StatusCode, snippet(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
