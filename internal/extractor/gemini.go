package extractor

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

	"go.uber.org/zap"

	"github.com/racewatch/racewatch/internal/results"
)

// GeminiConfig configures the generative extraction service handle.
type GeminiConfig struct {
	Endpoint string
	Model    string
	APIKey   string
	Timeout  time.Duration
}

// Gemini implements results.Extractor against the Gemini
// generateContent API. The handle is constructed once per run and
// passed by reference to the orchestrator; it holds no mutable state.
type Gemini struct {
	httpClient *http.Client
	endpoint   string
	model      string
	apiKey     string
	logger     *zap.Logger
}

// NewGemini constructs a service handle from explicit configuration.
func NewGemini(cfg GeminiConfig, logger *zap.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("gemini model is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://generativelanguage.googleapis.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Gemini{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		logger:     logger,
	}, nil
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Extract sends the document plus the criteria-derived prompt to the
// service and returns its raw text output. Any transport or API error,
// and an empty candidate set, surface as results.ExtractionError.
func (g *Gemini) Extract(ctx context.Context, document []byte, criteria results.Criteria) (string, error) {
	payload := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{Text: BuildPrompt(criteria)},
				{InlineData: &geminiInlineData{
					MimeType: "application/pdf",
					Data:     base64.StdEncoding.EncodeToString(document),
				}},
			},
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", &results.ExtractionError{Err: fmt.Errorf("encode request: %w", err)}
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.endpoint, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", &results.ExtractionError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", &results.ExtractionError{Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck // nothing actionable on close failure

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &results.ExtractionError{Err: fmt.Errorf("read response: %w", err)}
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &results.ExtractionError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if parsed.Error != nil {
		return "", &results.ExtractionError{
			Err: fmt.Errorf("api error %d: %s", parsed.Error.Code, parsed.Error.Message),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &results.ExtractionError{Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	if len(parsed.Candidates) == 0 {
		return "", &results.ExtractionError{Err: fmt.Errorf("no candidates in response")}
	}

	var out strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		out.WriteString(part.Text)
	}

	g.logger.Debug("extraction call finished",
		zap.String("model", g.model),
		zap.Int("document_bytes", len(document)),
		zap.Duration("duration", time.Since(start)),
	)
	return out.String(), nil
}
