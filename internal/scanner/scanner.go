// Package scanner extracts medication form prefill data from a photo of a
// package label, using an OpenAI-compatible vision chat endpoint.
package scanner

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/starford/medlog/internal/models"
)

// Prefill is what a successful scan feeds into the add-medication form.
// Fields the model could not read come back empty and the form keeps its
// defaults; a scan never creates a medication by itself.
type Prefill struct {
	Name        string `json:"name"`
	DosageValue string `json:"dosageValue"`
	DosageUnit  string `json:"dosageUnit"`
	Form        string `json:"type"`
	Category    string `json:"category"`
	Frequency   int    `json:"frequency"`
}

// Client turns a label photo into form prefill data.
type Client interface {
	Scan(ctx context.Context, image []byte, mimeType string) (*Prefill, error)
}

// Config holds the vision endpoint settings.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

const extractionPrompt = `You are reading a photo of a medication package label.
Return a single JSON object with these keys:
"name" (product name), "dosageValue" (number as a string),
"dosageUnit" (one of mg, ml, mcg, g, pills, drop, IU),
"type" (one of Tablet, Capsule, Softgel, Liquid, Syringe),
"category" (short uppercase purpose, e.g. PAIN RELIEF),
"frequency" (doses per day, 1-6).
Use an empty string (or 0 for frequency) for anything you cannot read.
Respond with the JSON object only, no prose.`

type visionClient struct {
	cfg        Config
	httpClient *http.Client
}

// New returns a Client backed by the configured chat completions endpoint.
func New(cfg Config) Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &visionClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *visionClient) Scan(ctx context.Context, image []byte, mimeType string) (*Prefill, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("scanner: empty image")
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	dataURI := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)
	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: extractionPrompt},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURI}},
			},
		}},
		ResponseFormat: &respFormat{Type: "json_object"},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("scanner: marshal request: %w", err)
	}

	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("scanner: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scanner: call vision endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("scanner: vision endpoint returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("scanner: decode response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("scanner: response has no choices")
	}

	prefill, err := parsePrefill(chat.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	normalize(prefill)
	return prefill, nil
}

// parsePrefill tolerates the model wrapping its JSON in a code fence.
func parsePrefill(content string) (*Prefill, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var p Prefill
	if err := json.Unmarshal([]byte(content), &p); err != nil {
		return nil, fmt.Errorf("scanner: label data unparsable: %w", err)
	}
	return &p, nil
}

// normalize coerces model output into the vocabulary the form uses.
func normalize(p *Prefill) {
	p.Name = strings.TrimSpace(p.Name)
	p.DosageValue = strings.TrimSpace(p.DosageValue)
	p.Category = strings.ToUpper(strings.TrimSpace(p.Category))

	if p.Form != "" {
		p.Form = string(models.ParseForm(p.Form))
	}

	p.DosageUnit = strings.ToLower(strings.TrimSpace(p.DosageUnit))
	if p.DosageUnit == "iu" {
		p.DosageUnit = "IU"
	}
	form := models.Form(p.Form)
	if form == models.FormLiquid || form == models.FormSyringe {
		p.DosageUnit = "ml"
	}

	if p.Frequency < 0 {
		p.Frequency = 0
	}
	if p.Frequency > 6 {
		p.Frequency = 6
	}
}
