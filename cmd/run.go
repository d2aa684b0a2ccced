package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"couponClipper/internal/cli"
	"couponClipper/internal/cli/commands"
	"couponClipper/internal/clipper"
	"couponClipper/internal/config"
	"couponClipper/internal/scheduler"
	"couponClipper/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	historyFile       = ".coupon-clipper-history"
	defaultServerAddr = "127.0.0.1:8080"
)

// runConsole: Ctrl+C ловят консоль и клипер, поэтому контекст
// отменяется только по SIGTERM.
func runConsole(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	br := a.newBrowser()
	defer br.Close()

	input := cli.NewInput(historyFile, a.log)
	defer input.Close()

	interrupts := make(chan struct{}, 1)
	cl := a.newClipper(br, cli.NewOperator(input, os.Stdout), interrupts)

	var usage commands.UsageReporter
	if a.llm != nil {
		usage = a.llm
	}
	console := cli.New(cli.Deps{
		Clipper:    cl,
		Store:      a.store,
		Browser:    br,
		Usage:      usage,
		Interrupts: interrupts,
		Input:      input,
		Out:        os.Stdout,
		Log:        a.log,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Выход из консоли останавливает и сервер
		defer cancel()
		return console.Run(gctx)
	})
	if addr := a.cfg.Server.Addr; addr != "" {
		srv := server.New(addr, a.cfg.Clipper.Sites, a.store, a.log)
		g.Go(func() error { return srv.Run(gctx) })
	}

	return g.Wait()
}

func runClip(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	keys, err := resolveSites(a.cfg.Clipper.Sites, args)
	if err != nil {
		return err
	}

	br := a.newBrowser()
	defer br.Close()

	if unattended {
		sp, err := unattendedSpeed(speed)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cl := a.newClipper(br, clipper.NewUnattendedOperator(a.log.Logger, sp), nil)
		return printResults(cl.RunSites(ctx, keys))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()

	input := cli.NewInput(historyFile, a.log)
	defer input.Close()

	interrupts := make(chan struct{}, 1)
	cl := a.newClipper(br, cli.NewOperator(input, os.Stdout), interrupts)

	stopWatch := commands.WatchInterrupts(interrupts)
	defer stopWatch()

	return printResults(cl.RunSites(ctx, keys))
}

func printResults(results []clipper.Result, err error) error {
	for _, r := range results {
		commands.PrintSession(os.Stdout, r.Session)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func resolveSites(catalog *config.Catalog, refs []string) ([]string, error) {
	keys := make([]string, 0, len(refs))
	for _, ref := range refs {
		site, ok := catalog.Resolve(ref)
		if !ok {
			return nil, fmt.Errorf("%w: %s", clipper.ErrUnknownSite, ref)
		}
		keys = append(keys, site.Key)
	}
	return keys, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	addr := a.cfg.Server.Addr
	if addr == "" {
		addr = defaultServerAddr
	}
	return server.New(addr, a.cfg.Clipper.Sites, a.store, a.log).Run(ctx)
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	sp, err := unattendedSpeed(speed)
	if err != nil {
		return err
	}
	keys, err := resolveSites(a.cfg.Clipper.Sites, a.cfg.Schedule.Sites)
	if err != nil {
		return err
	}

	br := a.newBrowser()
	defer br.Close()

	cl := a.newClipper(br, clipper.NewUnattendedOperator(a.log.Logger, sp), nil)
	sched, err := scheduler.New(a.cfg.Schedule.Cron, keys, cl, a.log)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Start(gctx) })
	if addr := a.cfg.Server.Addr; addr != "" {
		srv := server.New(addr, a.cfg.Clipper.Sites, a.store, a.log)
		g.Go(func() error { return srv.Run(gctx) })
	}

	a.log.Info("Ожидание расписания", zap.String("cron", a.cfg.Schedule.Cron))
	return g.Wait()
}
