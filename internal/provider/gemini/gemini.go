package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/manash/slidegen/internal/provider"
	"github.com/manash/slidegen/pkg/models"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultTimeout = 300 * time.Second
)

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
	Error      *apiError   `json:"error,omitempty"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	registry   *models.ModelRegistry
	logger     *slog.Logger
}

func New(cfg *provider.Config, registry *models.ModelRegistry) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %s", models.ErrMissingCredential, models.ProviderGemini.EnvVar())
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := defaultTimeout
	if cfg.TimeoutSec > 0 {
		timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}

	return &Provider{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		registry:   registry,
		logger:     cfg.LoggerOrDiscard().With("provider", models.ProviderGemini),
	}, nil
}

// NewProvider adapts New to provider.Constructor.
func NewProvider(cfg *provider.Config, registry *models.ModelRegistry) (provider.Provider, error) {
	return New(cfg, registry)
}

func (p *Provider) Name() models.ProviderType {
	return models.ProviderGemini
}

func (p *Provider) SupportsModel(model string) bool {
	return p.registry.Resolve(model).Provider == models.ProviderGemini
}

// Edit sends the prompt and the template as inline data to generateContent
// and returns the first image part of the first candidate.
func (p *Provider) Edit(ctx context.Context, req *models.EditRequest) (*models.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("%w: model %s is not served by gemini", models.ErrInvalidArgument, req.Model)
	}

	jsonData, err := json.Marshal(buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, req.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-goog-api-key", p.apiKey)

	p.logger.Debug("request",
		"method", http.MethodPost,
		"url", url,
		"image_bytes", len(req.Image),
		"mime_type", req.MimeType,
		"prompt_chars", len([]rune(req.Prompt)),
	)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to send request: %w", models.ErrServiceError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", models.ErrServiceError, err)
	}

	p.logger.Debug("response", "status", resp.StatusCode, "bytes", len(body))

	var apiResp generateResponse
	parseErr := json.Unmarshal(body, &apiResp)

	if resp.StatusCode >= http.StatusBadRequest {
		if parseErr == nil && apiResp.Error != nil {
			return nil, fmt.Errorf("%w: status %d: %s", models.ErrServiceError, resp.StatusCode, apiResp.Error.Message)
		}
		return nil, fmt.Errorf("%w: status %d", models.ErrServiceError, resp.StatusCode)
	}

	if parseErr != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", models.ErrServiceError, parseErr)
	}

	return buildResponse(apiResp)
}

func buildRequest(req *models.EditRequest) *generateRequest {
	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = http.DetectContentType(req.Image)
	}

	return &generateRequest{
		Contents: []content{
			{
				Parts: []part{
					{Text: req.Prompt},
					{InlineData: &inlineData{
						MimeType: mimeType,
						Data:     base64.StdEncoding.EncodeToString(req.Image),
					}},
				},
			},
		},
		GenerationConfig: generationConfig{
			Temperature:     1.0,
			TopP:            0.95,
			TopK:            40,
			MaxOutputTokens: 8192,
		},
	}
}

func buildResponse(apiResp generateResponse) (*models.Response, error) {
	if len(apiResp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates in response", models.ErrServiceError)
	}

	response := &models.Response{}
	var texts []string

	for _, pt := range apiResp.Candidates[0].Content.Parts {
		if pt.Text != "" {
			texts = append(texts, pt.Text)
		}
		if pt.InlineData == nil || pt.InlineData.Data == "" {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(pt.InlineData.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: inline data is not valid base64: %v", models.ErrDecode, err)
		}
		response.Images = append(response.Images, models.GeneratedImage{
			Data:     decoded,
			MimeType: pt.InlineData.MimeType,
			Index:    len(response.Images),
		})
	}
	response.Text = strings.Join(texts, "\n")

	if len(response.Images) == 0 {
		reason := apiResp.Candidates[0].FinishReason
		if reason == "" {
			reason = "unknown"
		}
		return nil, fmt.Errorf("%w: no image in response (finish reason: %s)", models.ErrServiceError, reason)
	}

	return response, nil
}
