package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/manash/slidegen/pkg/models"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Edit sends the template and prompt to the images/edits endpoint.
func (p *Provider) Edit(ctx context.Context, req *models.EditRequest) (*models.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("%w: model %s is not served by openai", models.ErrInvalidArgument, req.Model)
	}

	body, contentType, err := buildEditBody(req)
	if err != nil {
		return nil, err
	}

	url := p.baseURL + "/images/edits"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	p.logger.Debug("request",
		"method", http.MethodPost,
		"url", url,
		"model", req.Model,
		"size", req.Size,
		"quality", req.Quality,
		"input_fidelity", req.Fidelity,
		"image_bytes", len(req.Image),
		"prompt_chars", len([]rune(req.Prompt)),
	)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to send request: %w", models.ErrServiceError, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", models.ErrServiceError, err)
	}

	p.logResponse(resp.StatusCode, resp.Header, bodyBytes)

	var apiResp apiResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: status %d", models.ErrServiceError, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: failed to parse response: %v", models.ErrServiceError, err)
	}

	if apiResp.Error != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrServiceError, apiResp.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", models.ErrServiceError, resp.StatusCode)
	}

	return p.buildResponse(apiResp)
}

func buildEditBody(req *models.EditRequest) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	name := req.ImageName
	if name == "" {
		name = "template.png"
	}
	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = http.DetectContentType(req.Image)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, quoteEscaper.Replace(name)))
	h.Set("Content-Type", mimeType)
	imagePart, err := writer.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create image part: %w", err)
	}
	if _, err := imagePart.Write(req.Image); err != nil {
		return nil, "", fmt.Errorf("failed to write image: %w", err)
	}

	fields := []struct {
		name  string
		value string
	}{
		{"prompt", req.Prompt},
		{"model", req.Model},
		{"n", "1"},
		{"size", req.Size},
		{"quality", req.Quality.String()},
		{"input_fidelity", req.Fidelity.String()},
		{"output_format", models.FormatPNG},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := writer.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("failed to write %s: %w", f.name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return body, writer.FormDataContentType(), nil
}
