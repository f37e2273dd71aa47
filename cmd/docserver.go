package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conneroisu/cargo-docserver/internal/config"
	docerrors "github.com/conneroisu/cargo-docserver/internal/errors"
	"github.com/conneroisu/cargo-docserver/internal/logging"
	"github.com/conneroisu/cargo-docserver/internal/metadata"
	"github.com/conneroisu/cargo-docserver/internal/rebuild"
	"github.com/conneroisu/cargo-docserver/internal/server"
)

var docserverCmd = &cobra.Command{
	Use:     "docserver",
	Aliases: []string{"serve"},
	Short:   "Serve target/doc and rebuild it on demand",
	Long: `Serve the crate's generated documentation over HTTP.

GET / redirects to the package landing page. Every line typed on stdin runs
` + "`cargo doc`" + ` again (plus --recompile-args); with --watch, changes to the
listed source paths do the same.

Examples:
  cargo docserver
  cargo docserver --port 8000 --host 127.0.0.1
  cargo docserver -r "--all-features --document-private-items"
  cargo docserver -w src -w Cargo.toml --live-reload --open`,
	Args: cobra.NoArgs,
	RunE: runDocServer,
}

func init() {
	rootCmd.AddCommand(docserverCmd)

	flags := docserverCmd.Flags()
	flags.IntP("port", "p", config.DefaultPort, "Port to serve on")
	flags.String("host", config.DefaultHost, "Host to bind to")
	flags.Int("max-connections", 0, "Maximum simultaneous connections (0 = unlimited)")
	flags.Bool("open", false, "Open the documentation in a browser")
	flags.StringP("recompile-args", "r", "", "Extra arguments for cargo doc, split on whitespace")
	flags.String("manifest-path", "", "Path to Cargo.toml")
	flags.String("doc-dir", "", "Serve this directory instead of <target>/doc")
	flags.String("package", "", "Package whose landing page / redirects to")
	flags.StringSliceP("watch", "w", nil, "Rebuild when files under these paths change (repeatable)")
	flags.Duration("debounce", config.DefaultDebounce, "Delay before a watched change triggers a rebuild")
	flags.Bool("live-reload", false, "Reload open pages after each rebuild")
	flags.Bool("no-stdin", false, "Do not rebuild on stdin lines")

	bindFlags(flags, map[string]string{
		"port":            "server.port",
		"host":            "server.host",
		"max-connections": "server.max_connections",
		"open":            "server.open",
		"recompile-args":  "rebuild.recompile_args",
		"manifest-path":   "docs.manifest_path",
		"doc-dir":         "docs.dir",
		"package":         "docs.package",
		"watch":           "rebuild.watch",
		"debounce":        "rebuild.debounce",
		"live-reload":     "development.live_reload",
	})
}

func runDocServer(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if noStdin, _ := cmd.Flags().GetBool("no-stdin"); noStdin {
		cfg.Rebuild.Stdin = false
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serveDocs(ctx, cfg, logger, os.Stdin, cmd.OutOrStdout())
}

// newProvider composes the metadata lookup: cargo metadata, then Cargo.toml,
// with command-line overrides on top.
func newProvider(cfg *config.Config) metadata.Provider {
	base := metadata.Chain{
		&metadata.CargoProvider{Cargo: cfg.Docs.Cargo, ManifestPath: cfg.Docs.ManifestPath},
		&metadata.ManifestProvider{ManifestPath: cfg.Docs.ManifestPath},
	}

	return metadata.Overrides{
		Base:        base,
		Dir:         cfg.Docs.Dir,
		PackageName: cfg.Docs.Package,
	}
}

// serveDocs runs the server and the rebuild trigger until ctx is cancelled.
func serveDocs(ctx context.Context, cfg *config.Config, logger logging.Logger, stdin io.Reader, out io.Writer) error {
	cache := metadata.NewCached(newProvider(cfg))

	// Without a doc root there is nothing to serve.
	root, err := cache.DocRoot(ctx)
	if err != nil {
		return docerrors.NewEnhancedError(
			"Failed to locate the crate's documentation",
			err,
			docerrors.MetadataLookupError(err, cfg.Docs.ManifestPath),
		)
	}

	srv := server.New(cfg, cache, logger)
	if err := srv.Listen(); err != nil {
		return docerrors.NewEnhancedError(
			fmt.Sprintf("Failed to start server on %s", cfg.Server.Addr()),
			err,
			docerrors.ServerStartError(err, cfg.Server.Port),
		)
	}

	runner := rebuild.NewCommandRunner(cfg.Rebuild.Command, cfg.Rebuild.Args)
	trigger := rebuild.NewTrigger(runner, cfg.Rebuild.ExtraArgs(), logger)
	trigger.OnComplete(func(result rebuild.Result) {
		cache.Invalidate()
		srv.Reload(result.Err)
	})

	sources, err := signalSources(cfg, logger, stdin)
	if err != nil {
		srv.Shutdown(context.Background())
		return err
	}

	signals := make(chan rebuild.Signal, rebuild.SignalBuffer)
	rebuild.RunSources(ctx, logger, signals, sources...)

	triggerDone := make(chan struct{})
	go func() {
		defer close(triggerDone)
		trigger.Listen(ctx, signals)
	}()

	printBanner(out, srv.URL(), root, runner.CommandLine(cfg.Rebuild.ExtraArgs()), sources, cfg.Development.LiveReload)

	serveErr := srv.Start(ctx)

	select {
	case <-triggerDone:
	case <-time.After(5 * time.Second):
		logger.Warn(context.Background(), nil, "Rebuild still running at shutdown")
	}

	return serveErr
}

func signalSources(cfg *config.Config, logger logging.Logger, stdin io.Reader) ([]rebuild.Source, error) {
	var sources []rebuild.Source

	if cfg.Rebuild.Stdin && stdin != nil {
		sources = append(sources, &rebuild.LineSource{Reader: stdin, Label: "stdin"})
	}

	if len(cfg.Rebuild.Watch) > 0 {
		ws, err := rebuild.NewWatchSource(cfg.Rebuild.Watch, cfg.Rebuild.Debounce, logger)
		if err != nil {
			return nil, err
		}
		sources = append(sources, ws)
	}

	return sources, nil
}

func printBanner(out io.Writer, url string, root metadata.DocRoot, command []string, sources []rebuild.Source, liveReload bool) {
	title := color.New(color.FgGreen, color.Bold)
	label := color.New(color.FgCyan)

	title.Fprintln(out, "cargo-docserver")
	label.Fprint(out, "  Serving:  ")
	fmt.Fprintf(out, "%s/%s/index.html\n", url, root.PackageName)
	label.Fprint(out, "  Docs:     ")
	fmt.Fprintln(out, root.Dir)
	label.Fprint(out, "  Rebuild:  ")
	fmt.Fprintln(out, strings.Join(command, " "))

	for _, src := range sources {
		label.Fprint(out, "  Trigger:  ")
		switch s := src.(type) {
		case *rebuild.LineSource:
			fmt.Fprintln(out, "press Enter")
		case *rebuild.WatchSource:
			fmt.Fprintf(out, "changes under %s\n", strings.Join(s.Paths, ", "))
		default:
			fmt.Fprintln(out, src.Name())
		}
	}

	if liveReload {
		label.Fprint(out, "  Reload:   ")
		fmt.Fprintln(out, "live reload enabled")
	}
}
