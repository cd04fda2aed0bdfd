package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/manash/slidegen/pkg/models"
)

const appName = "slidegen"

// Defaults used when neither a flag nor the config file sets a value.
const (
	DefaultOut      = "./out/slide.png"
	DefaultModel    = "gpt-image-1.5"
	DefaultSize     = "1536x1024"
	DefaultQuality  = models.QualityHigh
	DefaultFidelity = models.FidelityHigh
	DefaultCrop     = "center"
)

type Config struct {
	// Output path or directory
	Out string `yaml:"out,omitempty"`
	// Image model name
	Model string `yaml:"model,omitempty"`
	// Size passed to the service, e.g. 1536x1024
	Size string `yaml:"size,omitempty"`
	// Crop aspect applied after generation, e.g. 16:9
	Aspect string `yaml:"aspect,omitempty"`
	// low, medium, high or auto
	Quality string `yaml:"quality,omitempty"`
	// low or high
	Fidelity string `yaml:"fidelity,omitempty"`
	// center or smart
	Crop string `yaml:"crop,omitempty"`
	// Path to a text/template file replacing the built-in prompt
	PromptTemplate string `yaml:"promptTemplate,omitempty"`
	// Override the provider endpoint, mostly for proxies
	BaseURL string `yaml:"baseURL,omitempty"`
	// HTTP timeout in seconds
	TimeoutSec int `yaml:"timeoutSec,omitempty"`
	// Whether to record renders in the history database
	History *bool `yaml:"history,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	history := true
	return &Config{
		Out:      DefaultOut,
		Model:    DefaultModel,
		Size:     DefaultSize,
		Quality:  DefaultQuality.String(),
		Fidelity: DefaultFidelity.String(),
		Crop:     DefaultCrop,
		History:  &history,
	}
}

// Paths holds the XDG base directories for the application.
type Paths struct {
	ConfigDir string
	DataDir   string
	StateDir  string
}

// ResolvePaths computes the application directories from the environment
// lookup function, usually os.Getenv.
func ResolvePaths(getenv func(string) string) (*Paths, error) {
	home, homeErr := os.UserHomeDir()
	needHome := false

	dir := func(env string, fallback ...string) string {
		if v := getenv(env); v != "" {
			return filepath.Join(v, appName)
		}
		needHome = true
		return filepath.Join(append([]string{home}, append(fallback, appName)...)...)
	}

	p := &Paths{
		ConfigDir: dir("XDG_CONFIG_HOME", ".config"),
		DataDir:   dir("XDG_DATA_HOME", ".local", "share"),
		StateDir:  dir("XDG_STATE_HOME", ".local", "state"),
	}
	if needHome && homeErr != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", homeErr)
	}
	return p, nil
}

// Load reads the configuration from dir. It searches for:
// 1. dir/config-{profile}.yml
// 2. dir/config.yml
// The first file found is merged over Default. A missing file is not an
// error; a named profile without its file is.
func Load(dir, profile string) (*Config, error) {
	var basePaths []string
	if profile != "" {
		basePaths = append(basePaths, filepath.Join(dir, fmt.Sprintf("config-%s", profile)))
	}
	basePaths = append(basePaths, filepath.Join(dir, "config"))

	cfg := Default()
	for i, basePath := range basePaths {
		for _, ext := range []string{".yml", ".yaml"} {
			b, err := os.ReadFile(basePath + ext)
			if err != nil {
				continue
			}
			file := &Config{}
			if err := yaml.Unmarshal(b, file); err != nil {
				return nil, fmt.Errorf("%w: failed to unmarshal %s: %v", models.ErrInvalidArgument, basePath+ext, err)
			}
			cfg.merge(file)
			return cfg, nil
		}
		if profile != "" && i == 0 {
			return nil, fmt.Errorf("%w: profile %q not found in %s", models.ErrInvalidArgument, profile, dir)
		}
	}
	return cfg, nil
}

// HistoryEnabled reports whether renders should be recorded.
func (c *Config) HistoryEnabled() bool {
	return c.History == nil || *c.History
}

// merge copies the fields set in o over c.
func (c *Config) merge(o *Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Out, o.Out)
	set(&c.Model, o.Model)
	set(&c.Size, o.Size)
	set(&c.Aspect, o.Aspect)
	set(&c.Quality, o.Quality)
	set(&c.Fidelity, o.Fidelity)
	set(&c.Crop, o.Crop)
	set(&c.PromptTemplate, o.PromptTemplate)
	set(&c.BaseURL, o.BaseURL)
	if o.TimeoutSec > 0 {
		c.TimeoutSec = o.TimeoutSec
	}
	if o.History != nil {
		c.History = o.History
	}
}
