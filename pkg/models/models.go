package models

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Error kinds surfaced by a render. Call sites wrap these with context.
var (
	ErrMissingCredential = errors.New("missing API credential")
	ErrTemplateNotFound  = errors.New("template not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrServiceError      = errors.New("image service error")
	ErrDecode            = errors.New("failed to decode image")
)

var (
	ErrEmptyPrompt       = fmt.Errorf("%w: prompt cannot be empty", ErrInvalidArgument)
	ErrNoImageData       = fmt.Errorf("%w: template image data is required", ErrInvalidArgument)
	ErrInvalidQuality    = fmt.Errorf("%w: invalid quality", ErrInvalidArgument)
	ErrInvalidFidelity   = fmt.Errorf("%w: invalid fidelity", ErrInvalidArgument)
	ErrModelNotSupported = fmt.Errorf("%w: unknown model", ErrInvalidArgument)
)

type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderGemini ProviderType = "gemini"
)

func (p ProviderType) String() string {
	return string(p)
}

// ParseProviderType accepts a provider name such as "openai" or "gemini".
func ParseProviderType(s string) (ProviderType, error) {
	switch p := ProviderType(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderOpenAI, ProviderGemini:
		return p, nil
	}
	return "", fmt.Errorf("%w: unknown provider %q (openai, gemini)", ErrInvalidArgument, s)
}

// EnvVar is the environment variable holding the provider's credential.
func (p ProviderType) EnvVar() string {
	switch p {
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
	QualityAuto   Quality = "auto"
)

func ValidQualities() []Quality {
	return []Quality{QualityLow, QualityMedium, QualityHigh, QualityAuto}
}

func (q Quality) IsValid() bool {
	return slices.Contains(ValidQualities(), q)
}

func (q Quality) String() string {
	return string(q)
}

// Fidelity controls how closely the output keeps the template's composition.
type Fidelity string

const (
	FidelityLow  Fidelity = "low"
	FidelityHigh Fidelity = "high"
)

func ValidFidelities() []Fidelity {
	return []Fidelity{FidelityLow, FidelityHigh}
}

func (f Fidelity) IsValid() bool {
	return slices.Contains(ValidFidelities(), f)
}

func (f Fidelity) String() string {
	return string(f)
}

const FormatPNG = "png"

type EditRequest struct {
	Image     []byte
	ImageName string
	MimeType  string
	Prompt    string
	Model     string
	Size      string
	Quality   Quality
	Fidelity  Fidelity
}

func NewEditRequest(image []byte, prompt string) *EditRequest {
	return &EditRequest{
		Image:     image,
		ImageName: "template.png",
		MimeType:  "image/png",
		Prompt:    prompt,
	}
}

func (r *EditRequest) Validate() error {
	if len(r.Image) == 0 {
		return ErrNoImageData
	}
	if r.Prompt == "" {
		return ErrEmptyPrompt
	}
	return nil
}

type Response struct {
	Images []GeneratedImage
	// Text is any commentary or revised prompt returned alongside the image.
	Text string
}

// First returns the first image carrying data.
func (r *Response) First() (*GeneratedImage, bool) {
	for i := range r.Images {
		if len(r.Images[i].Data) > 0 {
			return &r.Images[i], true
		}
	}
	return nil, false
}

type GeneratedImage struct {
	Data     []byte
	MimeType string
	Index    int
}

type CostInfo struct {
	Total    float64
	Currency string
}

type ModelCapabilities struct {
	Name               string
	Provider           ProviderType
	SupportedSizes     []string
	SupportedQualities []Quality
	DefaultSize        string
	DefaultQuality     Quality
	SupportsFidelity   bool
	// SizeIgnored marks models that choose their own output size; size is never sent.
	SizeIgnored bool
}

// KnownSize reports whether size is one the model is documented to accept.
// An empty SupportedSizes list accepts anything. Sizes are not enforced
// locally; the service has the final word.
func (c *ModelCapabilities) KnownSize(size string) bool {
	return size == "" || len(c.SupportedSizes) == 0 || slices.Contains(c.SupportedSizes, size)
}

func (c *ModelCapabilities) Validate(req *EditRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	if req.Quality != "" && !req.Quality.IsValid() {
		return fmt.Errorf("%w: %q not in %v", ErrInvalidQuality, req.Quality, ValidQualities())
	}

	if req.Fidelity != "" && !req.Fidelity.IsValid() {
		return fmt.Errorf("%w: %q not in %v", ErrInvalidFidelity, req.Fidelity, ValidFidelities())
	}

	return nil
}

// ApplyDefaults fills empty fields and clears the ones the model ignores.
func (c *ModelCapabilities) ApplyDefaults(req *EditRequest) {
	if req.Model == "" {
		req.Model = c.Name
	}
	if req.Size == "" {
		req.Size = c.DefaultSize
	}
	if c.SizeIgnored {
		req.Size = ""
	}
	if req.Quality == "" {
		req.Quality = c.DefaultQuality
	}
	if len(c.SupportedQualities) == 0 {
		req.Quality = ""
	}
	if !c.SupportsFidelity {
		req.Fidelity = ""
	}
}

type ModelRegistry struct {
	models map[string]*ModelCapabilities
}

func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{
		models: make(map[string]*ModelCapabilities),
	}
}

func (r *ModelRegistry) Register(cap *ModelCapabilities) {
	r.models[cap.Name] = cap
}

func (r *ModelRegistry) Get(name string) (*ModelCapabilities, bool) {
	cap, ok := r.models[name]
	return cap, ok
}

// Lookup is Get with an error suitable for surfacing to the user.
func (r *ModelRegistry) Lookup(name string) (*ModelCapabilities, error) {
	cap, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("%w %q: available models: %v", ErrModelNotSupported, name, r.List())
	}
	return cap, nil
}

// Resolve returns the registered capabilities for name, or FallbackCapabilities
// when the model is not registered so new service models work without a release.
func (r *ModelRegistry) Resolve(name string) *ModelCapabilities {
	if cap, ok := r.models[name]; ok {
		return cap
	}
	return FallbackCapabilities(name)
}

// FallbackCapabilities describes a model the registry does not know. A
// "gemini-" prefix routes to Gemini; everything else is assumed to be OpenAI,
// with any size and fidelity passed through for the service to judge.
func FallbackCapabilities(name string) *ModelCapabilities {
	if strings.HasPrefix(name, "gemini-") {
		return &ModelCapabilities{
			Name:        name,
			Provider:    ProviderGemini,
			SizeIgnored: true,
		}
	}
	return &ModelCapabilities{
		Name:               name,
		Provider:           ProviderOpenAI,
		SupportedQualities: ValidQualities(),
		SupportsFidelity:   true,
	}
}

func (r *ModelRegistry) List() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *ModelRegistry) ListByProvider(provider ProviderType) []string {
	var names []string
	for name, cap := range r.models {
		if cap.Provider == provider {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func DefaultRegistry() *ModelRegistry {
	r := NewModelRegistry()

	gptImageSizes := []string{"1024x1024", "1536x1024", "1024x1536", "auto"}

	r.Register(&ModelCapabilities{
		Name:               "gpt-image-1.5",
		Provider:           ProviderOpenAI,
		SupportedSizes:     gptImageSizes,
		SupportedQualities: ValidQualities(),
		DefaultSize:        "1536x1024",
		DefaultQuality:     QualityHigh,
		SupportsFidelity:   true,
	})

	r.Register(&ModelCapabilities{
		Name:               "gpt-image-1",
		Provider:           ProviderOpenAI,
		SupportedSizes:     gptImageSizes,
		SupportedQualities: ValidQualities(),
		DefaultSize:        "1536x1024",
		DefaultQuality:     QualityHigh,
		SupportsFidelity:   true,
	})

	r.Register(&ModelCapabilities{
		Name:               "gpt-image-1-mini",
		Provider:           ProviderOpenAI,
		SupportedSizes:     gptImageSizes,
		SupportedQualities: ValidQualities(),
		DefaultSize:        "1536x1024",
		DefaultQuality:     QualityMedium,
		SupportsFidelity:   false,
	})

	// Gemini picks its own output size; size and quality are not sent.
	r.Register(&ModelCapabilities{
		Name:        "gemini-3-pro-image-preview",
		Provider:    ProviderGemini,
		SizeIgnored: true,
	})

	r.Register(&ModelCapabilities{
		Name:        "gemini-2.5-flash-image",
		Provider:    ProviderGemini,
		SizeIgnored: true,
	})

	return r
}
