package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/go-mclib/gateway/pkg/admin"
	"github.com/go-mclib/gateway/pkg/helpers"
	"github.com/go-mclib/gateway/pkg/tui"
)

func main() {
	var f helpers.Flags
	helpers.RegisterFlags(flag.CommandLine, &f)
	flag.Parse()

	if err := run(f); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(f helpers.Flags) error {
	cfg, err := helpers.LoadConfig(flag.CommandLine, f)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		out     io.Writer = os.Stderr
		ui      *tui.TUI
		program *tea.Program
	)
	if f.Interactive {
		ui, program, out = tui.Start(nil, cfg.UpstreamAddr(), stop)
	}

	logger, err := helpers.NewLogger(cfg.LogLevel, cfg.LogFormat, out)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	srv, err := helpers.NewServer(cfg, logger)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(ctx)
	})
	if cfg.AdminAddr != "" {
		api := admin.New(srv, srv.Metrics, logger.Named("admin"))
		g.Go(func() error {
			return api.Serve(ctx, cfg.AdminAddr)
		})
	}
	if program != nil {
		ui.Attach(srv)
		g.Go(func() error {
			go func() {
				<-ctx.Done()
				program.Quit()
			}()
			_, err := program.Run()
			stop()
			return err
		})
	}

	logger.Info("gateway starting",
		zap.String("listen", cfg.ListenAddr()),
		zap.String("upstream", cfg.UpstreamAddr()),
		zap.Bool("whitelist", cfg.Whitelist),
	)
	return g.Wait()
}
