package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/manash/slidegen/pkg/models"
)

// Provider turns a template image and a prompt into a generated image.
type Provider interface {
	Name() models.ProviderType
	Edit(ctx context.Context, req *models.EditRequest) (*models.Response, error)
	SupportsModel(model string) bool
}

type Config struct {
	APIKey     string
	BaseURL    string
	TimeoutSec int
	Logger     *slog.Logger
}

// Constructor builds a provider from its config.
type Constructor func(cfg *Config, registry *models.ModelRegistry) (Provider, error)

type Factory struct {
	registry     *models.ModelRegistry
	constructors map[models.ProviderType]Constructor
}

func NewFactory(registry *models.ModelRegistry) *Factory {
	return &Factory{
		registry:     registry,
		constructors: make(map[models.ProviderType]Constructor),
	}
}

func (f *Factory) Register(providerType models.ProviderType, c Constructor) {
	f.constructors[providerType] = c
}

// ProviderFor returns the provider type serving model. Unregistered models
// are routed by name, see models.FallbackCapabilities.
func (f *Factory) ProviderFor(model string) (models.ProviderType, error) {
	cap := f.registry.Resolve(model)
	if _, ok := f.constructors[cap.Provider]; !ok {
		return "", fmt.Errorf("%w: no provider %s registered for model %s", models.ErrInvalidArgument, cap.Provider, model)
	}
	return cap.Provider, nil
}

// New builds the provider serving model.
func (f *Factory) New(model string, cfg *Config) (Provider, error) {
	providerType, err := f.ProviderFor(model)
	if err != nil {
		return nil, err
	}
	return f.constructors[providerType](cfg, f.registry)
}

func (f *Factory) ListProviders() []models.ProviderType {
	types := make([]models.ProviderType, 0, len(f.constructors))
	for t := range f.constructors {
		types = append(types, t)
	}
	return types
}

// LoggerOrDiscard returns cfg.Logger, or a logger that drops everything.
func (cfg *Config) LoggerOrDiscard() *slog.Logger {
	if cfg.Logger != nil {
		return cfg.Logger
	}
	return slog.New(slog.DiscardHandler)
}
