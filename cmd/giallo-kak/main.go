// Command giallo-kak is the highlighting server behind the giallo.kak
// Kakoune integration.  Run bare it serves the line protocol on stdio;
// --fifo serves a named pipe instead, --oneshot answers a single
// request and exits.  The init, list-grammars, and list-themes
// subcommands support installation and configuration.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yukai/giallo-kak/internal/config"
	"github.com/yukai/giallo-kak/internal/engine"
	"github.com/yukai/giallo-kak/internal/kak"
	"github.com/yukai/giallo-kak/internal/server"
	"github.com/yukai/giallo-kak/logger"
)

// Set at build time via -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "unknown"
)

// drainTimeout bounds how long shutdown waits for buffer pipelines.
const drainTimeout = 5 * time.Second

type options struct {
	verbose bool
	oneshot bool
	fifo    string
	resp    string
	printRC bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "giallo-kak",
		Short:         "Buffer highlighting server for Kakoune",
		Long:          "giallo-kak highlights Kakoune buffers out of process:\nbuffers stream through per-buffer FIFOs and highlighted ranges come\nback as set-option commands over kak -p.",
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// rc printing must not touch logging or the filesystem:
			// kakrc sources this output at startup.
			if opts.printRC {
				_, err := io.WriteString(cmd.OutOrStdout(), kakScript)
				return err
			}
			return runServe(cmd.Context(), opts)
		},
	}
	root.SetVersionTemplate(`{{printf "giallo-kak %s\n" .Version}}`)

	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging")

	f := root.Flags()
	f.BoolVar(&opts.oneshot, "oneshot", false, "serve one request on stdio and exit")
	f.StringVar(&opts.fifo, "fifo", "", "serve requests from a named pipe instead of stdin")
	f.StringVar(&opts.resp, "resp", "", "write replies to a named pipe instead of stdout")
	f.BoolVar(&opts.printRC, "kakoune", false, "print the Kakoune integration script and exit")
	f.BoolVar(&opts.printRC, "print-rc", false, "print the Kakoune integration script and exit")

	root.AddCommand(newInitCmd())
	root.AddCommand(newListGrammarsCmd(opts))
	root.AddCommand(newListThemesCmd(opts))
	return root
}

// initLogging builds the process logger and installs it globally.
func initLogging(verbose bool) (*zap.Logger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if verbose {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(l)
	return l, nil
}

func runServe(ctx context.Context, opts *options) error {
	if opts.resp != "" && opts.fifo == "" {
		return fmt.Errorf("--resp requires --fifo")
	}

	l, err := initLogging(opts.verbose)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer l.Sync() //nolint:errcheck
	ctx = logger.NewContext(ctx, l)

	cfg, err := config.Load(config.Path())
	if err != nil {
		l.Warn("config unreadable, continuing with defaults", zap.Error(err))
	}

	eng, err := engine.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init highlighter: %w", err)
	}

	res := server.NewResources(server.DefaultBaseDir())
	pub := kak.NewPublisher(os.Getenv(kak.DebugFileEnv))
	srv := server.New(ctx, eng, cfg, pub, res)

	l.Info("starting",
		zap.String("version", version),
		zap.String("baseDir", res.BaseDir()),
		zap.Bool("oneshot", opts.oneshot),
		zap.String("fifo", opts.fifo))

	// Shutdown runs at most once: either after the transport loop ends
	// or from the signal goroutine below, whichever fires first.
	var once sync.Once
	shutdown := func() {
		res.RequestQuit()
		if !srv.Drain(drainTimeout) {
			l.Warn("pipelines still running after drain timeout")
		}
		if err := res.Close(); err != nil {
			l.Warn("remove base dir", zap.Error(err))
		}
	}

	// The transport read blocks in a syscall a cancelled context cannot
	// interrupt, so the signal path cleans up and exits directly.
	go func() {
		<-ctx.Done()
		l.Info("signal received, shutting down")
		once.Do(shutdown)
		os.Exit(0)
	}()

	var runErr error
	if opts.fifo != "" {
		runErr = serveFIFO(srv, opts.fifo, opts.resp)
	} else {
		runErr = srv.Run(os.Stdin, os.Stdout, opts.oneshot)
	}

	once.Do(shutdown)
	l.Info("exiting", zap.Error(runErr))
	return runErr
}

// serveFIFO services the protocol over a pre-created named pipe.  The
// request pipe is opened read+write: holding a write end keeps reads
// from returning EOF whenever a client closes its end.
func serveFIFO(srv *server.Server, reqPath, respPath string) error {
	req, err := os.OpenFile(reqPath, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open request fifo %s: %w", reqPath, err)
	}
	defer req.Close()

	var resp io.Writer = os.Stdout
	if respPath != "" {
		f, err := os.OpenFile(respPath, os.O_WRONLY, 0)
		if err != nil {
			return fmt.Errorf("open response fifo %s: %w", respPath, err)
		}
		defer f.Close()
		resp = f
	}
	return srv.Run(req, resp, false)
}
