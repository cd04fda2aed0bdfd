package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/manash/slidegen/internal/provider"
	"github.com/manash/slidegen/pkg/models"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 300 * time.Second
)

type apiResponse struct {
	Created int64       `json:"created"`
	Data    []imageData `json:"data"`
	Error   *apiError   `json:"error,omitempty"`
}

type imageData struct {
	B64JSON       string `json:"b64_json,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
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
		return nil, fmt.Errorf("%w: %s", models.ErrMissingCredential, models.ProviderOpenAI.EnvVar())
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
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		registry: registry,
		logger:   cfg.LoggerOrDiscard().With("provider", models.ProviderOpenAI),
	}, nil
}

// NewProvider adapts New to provider.Constructor.
func NewProvider(cfg *provider.Config, registry *models.ModelRegistry) (provider.Provider, error) {
	return New(cfg, registry)
}

func (p *Provider) Name() models.ProviderType {
	return models.ProviderOpenAI
}

func (p *Provider) SupportsModel(model string) bool {
	return p.registry.Resolve(model).Provider == models.ProviderOpenAI
}

func (p *Provider) buildResponse(apiResp apiResponse) (*models.Response, error) {
	if len(apiResp.Data) == 0 {
		return nil, fmt.Errorf("%w: response contained no image", models.ErrServiceError)
	}

	response := &models.Response{
		Images: make([]models.GeneratedImage, 0, len(apiResp.Data)),
	}

	for i, data := range apiResp.Data {
		img := models.GeneratedImage{
			Index:    i,
			MimeType: "image/png",
		}

		if data.B64JSON != "" {
			decoded, err := base64.StdEncoding.DecodeString(data.B64JSON)
			if err != nil {
				return nil, fmt.Errorf("%w: image %d is not valid base64: %v", models.ErrDecode, i, err)
			}
			img.Data = decoded
		}

		if i == 0 && data.RevisedPrompt != "" {
			response.Text = data.RevisedPrompt
		}

		response.Images = append(response.Images, img)
	}

	if _, ok := response.First(); !ok {
		return nil, fmt.Errorf("%w: response contained no image data", models.ErrServiceError)
	}

	return response, nil
}

func (p *Provider) logResponse(statusCode int, headers http.Header, body []byte) {
	if !p.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	attrs := []any{
		"status", statusCode,
		"request_id", headers.Get("X-Request-Id"),
	}
	if len(body) > 0 {
		truncated := truncateBase64InJSON(body)
		var compact bytes.Buffer
		if err := json.Compact(&compact, truncated); err == nil {
			attrs = append(attrs, "body", compact.String())
		} else {
			attrs = append(attrs, "body", string(truncated))
		}
	}
	p.logger.Debug("response", attrs...)
}

func truncateBase64InJSON(body []byte) []byte {
	var data map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return body
	}

	truncateBase64Fields(data)

	result, err := json.Marshal(data)
	if err != nil {
		return body
	}
	return result
}

func truncateBase64Fields(data map[string]interface{}) {
	for key, value := range data {
		switch v := value.(type) {
		case string:
			if key == "b64_json" && len(v) > 100 {
				data[key] = v[:100] + "... [truncated]"
			}
		case map[string]interface{}:
			truncateBase64Fields(v)
		case []interface{}:
			for _, item := range v {
				if m, ok := item.(map[string]interface{}); ok {
					truncateBase64Fields(m)
				}
			}
		}
	}
}
