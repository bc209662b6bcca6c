package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dhcgn/arxiv2notion/cmd"
	"github.com/dhcgn/arxiv2notion/config"
	"github.com/dhcgn/arxiv2notion/imap"
	"github.com/dhcgn/arxiv2notion/logging"
	"github.com/dhcgn/arxiv2notion/runner"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "arxiv2notion",
		Short:         "Watch a mailbox for arXiv digests and file the papers in Notion",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.ValidateMail(); err != nil {
				return err
			}
			if !cfg.DryRun {
				if err := cfg.ValidateNotion(); err != nil {
					return err
				}
			}
			once, err := cmd.Flags().GetBool("once")
			if err != nil {
				return err
			}

			logger, cleanup, err := logging.New(cfg.Logging())
			if err != nil {
				return err
			}
			defer func() {
				_ = cleanup()
			}()

			slog.SetDefault(logger)
			logger.Info("starting arxiv2notion", "imap", cfg.IMAPHost, "mailbox", cfg.Mailbox, "subject", cfg.Subject, "maxPapers", cfg.MaxPapers, "dryRun", cfg.DryRun)

			return run(cmd.Context(), cfg, once, logger)
		},
	}

	if err := config.RegisterFlags(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register CLI flags: %v\n", err)
		os.Exit(1)
	}
	rootCmd.Flags().Bool("once", false, "Run a single poll cycle and exit")
	rootCmd.AddCommand(cmd.NewParseCommand(), cmd.NewInitDBCommand())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, once bool, logger *slog.Logger) error {
	source, err := imap.NewSource(imap.Options{
		Host:               cfg.IMAPHost,
		Port:               cfg.IMAPPort,
		Username:           cfg.IMAPUser,
		Password:           cfg.IMAPPass,
		UseTLS:             cfg.UseTLS,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		Mailbox:            cfg.Mailbox,
		Subject:            cfg.Subject,
	}, logger)
	if err != nil {
		return fmt.Errorf("imap.NewSource: %w", err)
	}

	r, err := runner.New(runner.Options{
		MaxPapers:     cfg.MaxPapers,
		PollInterval:  cfg.PollInterval,
		CheckInterval: cfg.CheckInterval,
	}, source, cmd.PublisherFactory(cfg, logger), logger)
	if err != nil {
		return fmt.Errorf("runner.New: %w", err)
	}

	if once {
		r.RunCycle(ctx)
		return nil
	}
	return r.Start(ctx)
}
