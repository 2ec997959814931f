package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

var (
	runPort        int
	runVerbose     bool
	runNoDashboard bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the automation engine and dashboard",
	RunE:  runEngine,
}

func init() {
	runCmd.Flags().IntVarP(&runPort, "port", "p", 0, "Dashboard port (default settings.webDashboardPort)")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Verbose logging")
	runCmd.Flags().BoolVar(&runNoDashboard, "no-dashboard", false, "Run without the web dashboard")
}

func runEngine(_ *cobra.Command, _ []string) error {
	setupLogging(runVerbose)

	cfg, c, err := buildContainer()
	if err != nil {
		return err
	}
	port := cfg.Settings.WebDashboardPort
	if runPort != 0 {
		port = runPort
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng := c.Engine()
	if err := eng.Start(ctx); err != nil {
		return err
	}
	printCapabilities(c.Capabilities(), eng.HasCalendar())

	g, gctx := errgroup.WithContext(ctx)
	// The hub is an executor sink either way; it has to drain its queue
	// even with no dashboard clients.
	g.Go(func() error { return c.Hub().Run(gctx) })
	if !runNoDashboard {
		g.Go(func() error { return c.Dashboard().ListenAndServe(gctx, fmt.Sprintf(":%d", port)) })
		fmt.Printf("✓ Dashboard on http://localhost:%d\n", port)
	}
	if n := c.Notifier(); n != nil {
		g.Go(func() error {
			if err := n.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("run: telegram notifier stopped", "err", err)
			}
			return nil
		})
		fmt.Println("✓ Telegram notifications enabled")
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	fmt.Printf("%s Engine running with %d scheduled jobs. Press Ctrl+C to stop.\n", logo, len(eng.Jobs()))

	werr := g.Wait()

	select {
	case <-eng.Stop():
	case <-time.After(shutdownTimeout):
		slog.Warn("run: timed out waiting for in-flight rules", "timeout", shutdownTimeout)
	}

	if werr != nil && !errors.Is(werr, context.Canceled) {
		fmt.Fprintf(os.Stderr, "run error: %v\n", werr)
		return werr
	}
	fmt.Println("\nShutdown complete.")
	return nil
}
