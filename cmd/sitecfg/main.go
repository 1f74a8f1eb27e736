package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"slices"
	"syscall"

	"github.com/pitabwire/util"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/pitabwire/sitecfg/config"
	"github.com/pitabwire/sitecfg/descriptor"
	"github.com/pitabwire/sitecfg/internal/logging"
	"github.com/pitabwire/sitecfg/internal/metrics"
	"github.com/pitabwire/sitecfg/localization"
	"github.com/pitabwire/sitecfg/version"
)

var errNotConforming = errors.New("descriptor does not conform")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args, os.Stdout, os.Stderr); err != nil {
		cancel()
		os.Exit(1) //nolint:gocritic // cancel already called
	}
}

// run executes the cli and logs a failure through the logger configured from the environment.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.FromEnv[config.ConfigurationDefault]()
	if err != nil {
		err = fmt.Errorf("reading configuration: %w", err)
		util.Log(ctx).WithError(err).Error("sitecfg failed")
		return err
	}

	ctx, log := logging.New(ctx, &cfg, util.WithLogOutput(stderr))
	ctx = config.ToContext(ctx, &cfg)

	if err = createCliApp(&cfg, stdout).RunContext(ctx, args); err != nil {
		log.WithError(err).Error("sitecfg failed")
		return err
	}
	return nil
}

func createCliApp(cfg *config.ConfigurationDefault, stdout io.Writer) *cli.App {
	return &cli.App{
		Name:    "sitecfg",
		Usage:   "Inspect and validate the site configuration descriptor",
		Version: version.String(),
		Writer:  stdout,
		Commands: []*cli.Command{
			createShowCommand(cfg),
			createValidateCommand(),
			createCheckCommand(cfg),
			createExportCommand(cfg),
			createWatchCommand(cfg),
		},
	}
}

// fileFlag selects an authored descriptor file; each command gets its own flag instance.
func fileFlag(cfg *config.ConfigurationDefault) cli.Flag {
	return &cli.StringFlag{
		Name:    "file",
		Usage:   "Descriptor file (json, yaml or toml) to use instead of the built-in descriptor",
		Aliases: []string{"F"},
		Value:   cfg.DescriptorPath(),
	}
}

func createShowCommand(cfg *config.ConfigurationDefault) *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Print the descriptor",
		Flags: []cli.Flag{
			fileFlag(cfg),
			&cli.StringFlag{
				Name:    "format",
				Usage:   "Output format: json, yaml, toml",
				Aliases: []string{"f"},
				Value:   cfg.DefaultOutputFormat(),
			},
		},
		Action: func(c *cli.Context) error {
			f, err := descriptor.ParseFormat(c.String("format"))
			if err != nil {
				return err
			}
			d, err := resolveDescriptor(c.Context, c.String("file"))
			if err != nil {
				return err
			}
			return descriptor.Encode(c.App.Writer, d, f)
		},
	}
}

func createValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate descriptor files",
		ArgsUsage: "<file>...",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return errors.New("at least one descriptor file is required")
			}

			paths := c.Args().Slice()
			results := make([]error, len(paths))

			var g errgroup.Group
			g.SetLimit(runtime.NumCPU())
			for i, path := range paths {
				g.Go(func() error {
					_, results[i] = descriptor.LoadFile(path)
					return nil
				})
			}
			_ = g.Wait()

			for i, path := range paths {
				if results[i] != nil {
					_, _ = fmt.Fprintf(c.App.Writer, "%s: %v\n", path, results[i])
					continue
				}
				_, _ = fmt.Fprintf(c.App.Writer, "%s: ok\n", path)
			}
			return errors.Join(results...)
		},
	}
}

func createCheckCommand(cfg *config.ConfigurationDefault) *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Print the conformance report of the descriptor",
		Flags: []cli.Flag{
			fileFlag(cfg),
			&cli.StringFlag{
				Name:    "lang",
				Usage:   "Report language, defaults to the descriptor default locale",
				Aliases: []string{"l"},
				Value:   cfg.Language(),
			},
		},
		Action: func(c *cli.Context) error {
			d, err := resolveDescriptor(c.Context, c.String("file"))
			if err != nil {
				return err
			}

			lang := c.String("lang")
			if lang == "" {
				lang = d.DefaultTag().String()
			}

			tr, err := reportTranslator(d)
			if err != nil {
				return err
			}

			report := descriptor.Check(d)
			_, _ = fmt.Fprint(c.App.Writer, report.Explain(c.Context, tr, lang))
			if !report.Conforms() {
				return errNotConforming
			}
			return nil
		},
	}
}

func createExportCommand(cfg *config.ConfigurationDefault) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write the descriptor to a file, the format follows the extension",
		Flags: []cli.Flag{
			fileFlag(cfg),
			&cli.StringFlag{
				Name:     "out",
				Usage:    "Destination file",
				Aliases:  []string{"o"},
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			d, err := resolveDescriptor(c.Context, c.String("file"))
			if err != nil {
				return err
			}
			out := c.String("out")
			if err = descriptor.WriteFile(out, d); err != nil {
				return err
			}
			util.Log(c.Context).WithField("path", out).Info("descriptor exported")
			return nil
		},
	}
}

func createWatchCommand(cfg *config.ConfigurationDefault) *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Re-validate a descriptor file whenever it changes",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "debounce",
				Usage: "Quiet period after the last change before validating",
				Value: cfg.WatchDebounce(),
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address, e.g. :9090",
				Value: cfg.MetricsAddress(),
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("exactly one descriptor file is required")
			}

			m := metrics.New()
			w, err := descriptor.NewWatcher(c.Args().First(),
				descriptor.WithDebounce(c.Duration("debounce")),
				descriptor.WithWatchHandler(func(_ context.Context, res descriptor.WatchResult) {
					m.Observe(res.Err, res.At)
					if res.Err != nil {
						_, _ = fmt.Fprintf(c.App.Writer, "%s: %v\n", res.Path, res.Err)
						return
					}
					_, _ = fmt.Fprintf(c.App.Writer, "%s: ok\n", res.Path)
				}),
			)
			if err != nil {
				return err
			}

			if err = w.Start(c.Context); err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(c.Context)
			if addr := c.String("metrics-addr"); addr != "" {
				g.Go(func() error {
					util.Log(ctx).WithField("addr", addr).Info("serving metrics")
					return m.Serve(ctx, addr)
				})
			}
			g.Go(func() error {
				<-ctx.Done()
				return w.Close()
			})
			return g.Wait()
		},
	}
}

func resolveDescriptor(ctx context.Context, path string) (*descriptor.Descriptor, error) {
	if path == "" {
		return descriptor.Load(), nil
	}

	d, err := descriptor.LoadFile(path)
	if err != nil {
		return nil, err
	}
	util.Log(ctx).WithField("path", path).Debug("using descriptor file")
	return d, nil
}

// reportTranslator loads messages for the descriptor locales that have a message file.
// Locales are matched in canonical form, so "MN" uses the mn messages.
func reportTranslator(d *descriptor.Descriptor) (descriptor.Translator, error) {
	available := localization.Available()

	var languages []string
	for _, tag := range d.Tags() {
		l := tag.String()
		if slices.Contains(available, l) && !slices.Contains(languages, l) {
			languages = append(languages, l)
		}
	}

	fallback := d.DefaultTag().String()
	if !slices.Contains(available, fallback) {
		fallback = "en"
	}

	return localization.NewManager(fallback, languages...)
}
