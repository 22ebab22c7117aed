package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/label-measure/internal/config"
	"github.com/ironsheep/label-measure/internal/display"
	"github.com/ironsheep/label-measure/internal/imaging"
	"github.com/ironsheep/label-measure/internal/logger"
	"github.com/ironsheep/label-measure/internal/measure"
	"github.com/ironsheep/label-measure/internal/ocr"
	"github.com/ironsheep/label-measure/internal/operator"
	"github.com/ironsheep/label-measure/internal/selection"
	"github.com/ironsheep/label-measure/internal/server"
	"github.com/ironsheep/label-measure/internal/vision"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 2
	}

	switch args[0] {
	case "--version", "-v", "version":
		fmt.Fprintf(stdout, "label-measure %s\n", Version)
		fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
		if v := ocr.Version(); v != "" {
			fmt.Fprintf(stdout, "  Tesseract:  %s\n", v)
		}
		return 0
	case "--help", "-h", "help":
		printUsage(stdout)
		return 0
	case "measure":
		return runMeasure(args[1:], stdin, stdout, stderr)
	case "serve":
		return runServe(args[1:], stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "label-measure - measure specimen labels against a scale bar")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  label-measure measure [options] <image>   Measure a label interactively")
	fmt.Fprintln(w, "  label-measure serve [options]             Run the MCP server on stdin/stdout")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --version, -v    Print version information")
	fmt.Fprintln(w, "  --help, -h       Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'label-measure measure -h' for the measurement options.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables:")
	fmt.Fprintln(w, "  LABEL_MEASURE_LOG_LEVEL=debug    Enable debug logging")
	fmt.Fprintln(w, "  LABEL_MEASURE_*                  Override any config file setting")
}

// common holds the flags shared by both commands.
type common struct {
	configPath string
	backend    string
	logLevel   string
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "TOML config file")
	fs.StringVar(&c.backend, "backend", "", "vision backend: "+fmt.Sprint(vision.Available()))
	fs.StringVar(&c.logLevel, "log-level", "", "debug, info, warn or error")
}

// load reads the configuration and applies the flags that were set.
func (c *common) load(fs *flag.FlagSet, apply func(cfg *config.Config, name string)) (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			cfg.Backend = c.backend
		case "log-level":
			cfg.Log.Level = c.logLevel
		default:
			if apply != nil {
				apply(cfg, f.Name)
			}
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runMeasure(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("measure", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		c            common
		resize       bool
		resizeFactor float64
		answers      string
		preview      string
		transcribe   bool
		asJSON       bool
	)
	c.register(fs)
	fs.BoolVar(&resize, "resize", false, "downscale the image before extraction")
	fs.Float64Var(&resizeFactor, "resize-factor", measure.DefaultResizeFactor, "downscale factor used with -resize")
	fs.StringVar(&answers, "answers", "", "comma separated answers instead of asking, e.g. \"n,y,y,y\"")
	fs.StringVar(&preview, "preview", "", "PNG file showing the current candidate; empty disables it")
	fs.BoolVar(&transcribe, "ocr", false, "transcribe the label's text")
	fs.BoolVar(&asJSON, "json", false, "print the full result as JSON")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: label-measure measure [options] <image>")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	cfg, err := c.load(fs, func(cfg *config.Config, name string) {
		switch name {
		case "resize":
			cfg.Resize = resize
		case "resize-factor":
			cfg.ResizeFactor = resizeFactor
		case "preview":
			cfg.Annotation.Preview = preview
		case "ocr":
			cfg.OCR.Enabled = transcribe
		}
	})
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return 2
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return 2
	}

	// With -json stdout carries only the result, so prompts go to stderr.
	prompts := stdout
	if asJSON {
		prompts = stderr
	}
	m, err := newMeasurer(cfg, answers, stdin, prompts, stderr, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	path := fs.Arg(0)
	img, err := imaging.Open(path)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	log.WithFields(logrus.Fields{
		"path":    path,
		"width":   img.Bounds().Dx(),
		"height":  img.Bounds().Dy(),
		"backend": cfg.Backend,
	}).Debug("image loaded")

	res, err := m.Measure(img)
	if err != nil {
		var f *measure.Failure
		if errors.As(err, &f) {
			fmt.Fprintf(stderr, "Measurement failed: %s\n", f.Message)
		} else {
			fmt.Fprintf(stderr, "Measurement failed: %v\n", err)
		}
		if measure.IsType(err, measure.FailureBackend) {
			log.WithError(err).Error("vision backend failed")
		} else {
			log.WithError(err).Debug("measurement failed")
		}
		return 1
	}

	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Fprintln(stdout, res.Report())
	if res.LabelFit != nil {
		fmt.Fprintf(stdout, "Best fit: %s %v\n", res.LabelFit.Kind, res.LabelFit.Dimensions)
	}
	if res.LabelText != "" {
		fmt.Fprintf(stdout, "Label text: %s\n", res.LabelText)
	}
	return 0
}

func newMeasurer(cfg *config.Config, answers string, stdin io.Reader, prompts, stderr io.Writer, log *logrus.Logger) (*measure.Measurer, error) {
	backend, err := vision.New(cfg.Backend)
	if err != nil {
		return nil, err
	}
	stroke, err := cfg.Stroke()
	if err != nil {
		return nil, err
	}
	pause, err := cfg.Pause()
	if err != nil {
		return nil, err
	}

	var prompter operator.Prompter = operator.NewConsole(stdin, prompts)
	if answers != "" {
		prompter = operator.ParseScript(answers)
	}

	var d display.Display = display.Nop{}
	if cfg.Annotation.Preview != "" {
		p := display.NewPreview(cfg.Annotation.Preview, log)
		fmt.Fprintf(stderr, "Candidates are shown in %s; keep it open in an image viewer.\n", p.Path())
		d = p
	}

	options := []measure.Option{
		measure.WithResize(cfg.EffectiveResize()),
		measure.WithSelectionOptions(selection.WithStroke(stroke), selection.WithPause(pause)),
	}
	if cfg.OCR.Enabled {
		options = append(options, measure.WithTranscriber(ocr.New(cfg.OCR.Language, cfg.OCR.Tessdata)))
	}

	return measure.New(backend, cfg.Options(), prompter, d, log, options...), nil
}

func runServe(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var c common
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := c.load(fs, nil)
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return 2
	}

	// Logs go to stderr; stdout is for the MCP protocol.
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return 2
	}

	backend, err := vision.New(cfg.Backend)
	if err != nil {
		log.WithError(err).Error("failed to create backend")
		return 1
	}
	stroke, err := cfg.Stroke()
	if err != nil {
		log.WithError(err).Error("invalid annotation")
		return 1
	}

	log.WithFields(logrus.Fields{
		"version": Version,
		"built":   BuildTime,
		"commit":  GitCommit,
		"backend": backend.Name(),
	}).Debug("label-measure MCP server starting")

	srv := server.New(backend, cfg.Options(), log, server.WithStroke(stroke), server.WithVersion(Version))
	if err := srv.Run(); err != nil {
		log.WithError(err).Error("server error")
		return 1
	}
	return 0
}
