package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/k1LoW/errors"
	"github.com/spf13/cobra"

	"github.com/manash/slidegen/internal/aspect"
	"github.com/manash/slidegen/internal/config"
	"github.com/manash/slidegen/internal/cost"
	"github.com/manash/slidegen/internal/display"
	"github.com/manash/slidegen/internal/history"
	"github.com/manash/slidegen/internal/image"
	"github.com/manash/slidegen/internal/keys"
	"github.com/manash/slidegen/internal/logger"
	"github.com/manash/slidegen/internal/prompt"
	"github.com/manash/slidegen/internal/provider"
	"github.com/manash/slidegen/internal/provider/gemini"
	"github.com/manash/slidegen/internal/provider/openai"
	"github.com/manash/slidegen/pkg/models"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	flagText      string
	flagTemplate  string
	flagOut       string
	flagModel     string
	flagSize      string
	flagAspect    string
	flagQuality   string
	flagFidelity  string
	flagCrop      string
	flagAPIKey    string
	flagShow      bool
	flagNoHistory bool
	flagVerbose   bool
	flagProfile   string
)

type App struct {
	Out          io.Writer
	Err          io.Writer
	In           io.Reader
	Registry     *models.ModelRegistry
	GetEnv       func(string) string
	Now          func() time.Time
	NewProvider  func(model string, cfg *provider.Config, registry *models.ModelRegistry) (provider.Provider, error)
	NewSaver     func() *image.Saver
	NewDisplayer func(out io.Writer) *display.Displayer
	// Tail keeps recent log records for the error report.
	Tail *logger.TailBuffer
}

func DefaultApp() *App {
	return &App{
		Out:          os.Stdout,
		Err:          os.Stderr,
		In:           os.Stdin,
		Registry:     models.DefaultRegistry(),
		GetEnv:       os.Getenv,
		Now:          time.Now,
		NewProvider:  newProvider,
		NewSaver:     image.NewSaver,
		NewDisplayer: display.New,
		Tail:         logger.NewTailBuffer(0),
	}
}

func newProvider(model string, cfg *provider.Config, registry *models.ModelRegistry) (provider.Provider, error) {
	f := provider.NewFactory(registry)
	f.Register(models.ProviderOpenAI, openai.NewProvider)
	f.Register(models.ProviderGemini, gemini.NewProvider)
	return f.New(model, cfg)
}

func main() {
	app := DefaultApp()
	if err := run(app); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if werr := writeErrorReport(app, err); werr != nil {
			fmt.Fprintf(os.Stderr, "failed to write error report: %v\n", werr)
		}
		os.Exit(1)
	}
}

func run(app *App) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return errors.WithStack(newRootCmd(app).ExecuteContext(ctx))
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slidegen",
		Short: "Render presentation slides from text with an image model",
		Long: `slidegen turns a block of text into a presentation slide image by sending
a slide template and designer instructions to an image editing model.

Supported providers:
  - OpenAI (gpt-image-1.5, gpt-image-1, gpt-image-1-mini)
  - Google Gemini (gemini-3-pro-image-preview, gemini-2.5-flash-image)

Examples:
  slidegen --text "Q3 results: revenue up 12%" --template template.png
  slidegen --text "Roadmap" --template t.png --aspect 16:9 --out slides/
  slidegen --text "Agenda" --template t.png --model gemini-3-pro-image-preview`,
		Args:          cobra.NoArgs,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd, app)
		},
	}

	cmd.Flags().StringVar(&flagText, "text", "", "slide text (required)")
	cmd.Flags().StringVar(&flagTemplate, "template", "", "slide template image (required)")
	cmd.Flags().StringVarP(&flagOut, "out", "o", config.DefaultOut, "output file, or directory for a timestamped name")
	cmd.Flags().StringVarP(&flagModel, "model", "m", config.DefaultModel, "image model")
	cmd.Flags().StringVarP(&flagSize, "size", "s", config.DefaultSize, "size requested from the model")
	cmd.Flags().StringVarP(&flagAspect, "aspect", "a", "", "crop the result to this aspect ratio, e.g. 16:9")
	cmd.Flags().StringVarP(&flagQuality, "quality", "q", config.DefaultQuality.String(), "quality (low, medium, high, auto)")
	cmd.Flags().StringVar(&flagFidelity, "fidelity", config.DefaultFidelity.String(), "input fidelity (low, high), OpenAI only")
	cmd.Flags().StringVar(&flagCrop, "crop", config.DefaultCrop, "crop placement (center, smart)")
	cmd.Flags().StringVar(&flagAPIKey, "api-key", "", "API key (defaults to stored key, then OPENAI_API_KEY or GEMINI_API_KEY)")
	cmd.Flags().BoolVarP(&flagShow, "show", "S", false, "display the slide in the terminal (kitty graphics protocol)")
	cmd.Flags().BoolVar(&flagNoHistory, "no-history", false, "do not record this render in the history")

	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&flagProfile, "profile", "", "config profile name")

	cmd.AddCommand(newHistoryCmd(app))
	cmd.AddCommand(newKeysCmd(app))

	return cmd
}

// renderOptions is the effective configuration of one render.
type renderOptions struct {
	Text     string
	Template string
	Out      string
	Model    string
	Size     string
	Aspect   string
	Quality  models.Quality
	Fidelity models.Fidelity
	Crop     string
	History  bool
}

// resolveOptions merges flags over the config file. A flag wins only when it
// was set explicitly.
func resolveOptions(cmd *cobra.Command, cfg *config.Config) renderOptions {
	pick := func(name, flagValue, cfgValue string) string {
		if cmd.Flags().Changed(name) || cfgValue == "" {
			return flagValue
		}
		return cfgValue
	}

	return renderOptions{
		Text:     flagText,
		Template: flagTemplate,
		Out:      pick("out", flagOut, cfg.Out),
		Model:    pick("model", flagModel, cfg.Model),
		Size:     pick("size", flagSize, cfg.Size),
		Aspect:   pick("aspect", flagAspect, cfg.Aspect),
		Quality:  models.Quality(pick("quality", flagQuality, cfg.Quality)),
		Fidelity: models.Fidelity(pick("fidelity", flagFidelity, cfg.Fidelity)),
		Crop:     pick("crop", flagCrop, cfg.Crop),
		History:  cfg.HistoryEnabled() && !flagNoHistory,
	}
}

func (app *App) newLogger() *slog.Logger {
	return logger.New(logger.Options{Console: app.Err, Verbose: flagVerbose, Tail: app.Tail})
}

func runRender(cmd *cobra.Command, app *App) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	log := app.newLogger()

	paths, err := config.ResolvePaths(app.GetEnv)
	if err != nil {
		return err
	}
	cfg, err := config.Load(paths.ConfigDir, flagProfile)
	if err != nil {
		return err
	}
	opts := resolveOptions(cmd, cfg)

	if strings.TrimSpace(opts.Text) == "" {
		return fmt.Errorf("%w: --text is required", models.ErrInvalidArgument)
	}
	if opts.Template == "" {
		return fmt.Errorf("%w: --template is required", models.ErrInvalidArgument)
	}
	if !opts.Quality.IsValid() {
		return fmt.Errorf("%w: %q must be one of %v", models.ErrInvalidQuality, opts.Quality, models.ValidQualities())
	}
	if !opts.Fidelity.IsValid() {
		return fmt.Errorf("%w: %q must be one of %v", models.ErrInvalidFidelity, opts.Fidelity, models.ValidFidelities())
	}

	var ratio *aspect.Ratio
	if opts.Aspect != "" {
		r, err := aspect.ParseRatio(opts.Aspect)
		if err != nil {
			return err
		}
		ratio = &r
	}
	mode, err := aspect.ParseMode(opts.Crop)
	if err != nil {
		return err
	}

	caps := app.Registry.Resolve(opts.Model)
	if _, ok := app.Registry.Get(opts.Model); !ok {
		log.Debug("model not in registry, passing through", "model", opts.Model, "provider", caps.Provider)
	}

	apiKey, source, err := keys.Resolve(flagAPIKey, caps.Provider, app.GetEnv, keys.NewStore(paths.ConfigDir))
	if err != nil {
		return err
	}
	log.Debug("resolved credential", "provider", caps.Provider, "source", source)

	info, err := os.Stat(opts.Template)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w: %s", models.ErrTemplateNotFound, opts.Template)
	}

	builder, err := prompt.Load(cfg.PromptTemplate)
	if err != nil {
		return err
	}
	aspectText := ""
	if ratio != nil {
		aspectText = opts.Aspect
	}
	promptText, err := builder.Build(opts.Text, aspectText)
	if err != nil {
		return err
	}

	tmpl, err := os.ReadFile(opts.Template)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrTemplateNotFound, err)
	}

	req := models.NewEditRequest(tmpl, promptText)
	req.ImageName = filepath.Base(opts.Template)
	req.MimeType = image.DetectMimeType(opts.Template, tmpl)
	req.Model = opts.Model
	req.Size = opts.Size
	req.Quality = opts.Quality
	req.Fidelity = opts.Fidelity
	caps.ApplyDefaults(req)
	if err := caps.Validate(req); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	if !caps.KnownSize(req.Size) {
		log.Debug("size not listed for model, the service decides", "model", req.Model, "size", req.Size, "listed", caps.SupportedSizes)
	}

	// Reject crops that would collapse before paying for a render.
	if ratio != nil {
		if w, h, ok := parseSize(req.Size); ok {
			if _, err := aspect.Window(w, h, *ratio); err != nil {
				return fmt.Errorf("--aspect %s with --size %s: %w", opts.Aspect, req.Size, err)
			}
		}
	}

	prov, err := app.NewProvider(req.Model, &provider.Config{
		APIKey:     apiKey,
		BaseURL:    cfg.BaseURL,
		TimeoutSec: cfg.TimeoutSec,
		Logger:     log,
	}, app.Registry)
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}

	log.Info("rendering slide", "model", req.Model, "size", req.Size, "quality", req.Quality)

	resp, err := prov.Edit(ctx, req)
	if err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	generated, ok := resp.First()
	if !ok {
		return fmt.Errorf("%w: response contained no image", models.ErrServiceError)
	}
	if resp.Text != "" {
		log.Info("model response", "text", resp.Text)
	}

	saver := app.NewSaver()
	img, err := saver.Process(generated.Data, image.CropOptions{Ratio: ratio, Mode: mode})
	if err != nil {
		return err
	}
	outPath := image.ResolvePath(opts.Out, app.Now())
	if err := saver.Save(img, outPath); err != nil {
		return err
	}

	estimate := cost.NewCalculator().Estimate(caps.Provider, req.Model, req.Size, req.Quality)
	log.Info("saved slide",
		"path", outPath,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy(),
		"estimated_cost", cost.Format(estimate))

	if opts.History {
		r := &history.Render{
			CreatedAt:    app.Now(),
			Provider:     caps.Provider.String(),
			Model:        req.Model,
			TemplatePath: opts.Template,
			OutputPath:   outPath,
			Size:         req.Size,
			Quality:      req.Quality.String(),
			Aspect:       aspectText,
			CropMode:     string(mode),
			Width:        img.Bounds().Dx(),
			Height:       img.Bounds().Dy(),
			Cost:         estimate.Total,
			Currency:     estimate.Currency,
		}
		if err := recordHistory(ctx, paths, r); err != nil {
			log.Warn("failed to record history", "error", err)
		}
	}

	fmt.Fprintln(app.Out, outPath)

	if flagShow {
		if !display.IsTerminalSupported(app.Out, app.GetEnv) {
			log.Warn("--show needs a terminal with kitty graphics support; skipping preview")
		} else if err := app.NewDisplayer(app.Out).DisplayFile(outPath); err != nil {
			log.Warn("failed to display slide", "error", err)
		}
	}

	return nil
}

func recordHistory(ctx context.Context, paths *config.Paths, r *history.Render) error {
	store, err := history.NewStoreWithPath(history.DBPath(paths.DataDir))
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Record(ctx, r)
}

// parseSize parses "WxH". Sizes such as "auto" report ok=false.
func parseSize(s string) (w, h int, ok bool) {
	ws, hs, found := strings.Cut(strings.ToLower(s), "x")
	if !found {
		return 0, 0, false
	}
	w, err := strconv.Atoi(ws)
	if err != nil || w <= 0 {
		return 0, 0, false
	}
	h, err = strconv.Atoi(hs)
	if err != nil || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}
