package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dhcgn/arxiv2notion/config"
	"github.com/dhcgn/arxiv2notion/digest"
	"github.com/dhcgn/arxiv2notion/logging"
	"github.com/dhcgn/arxiv2notion/mailbody"
	"github.com/dhcgn/arxiv2notion/mbox"
	"github.com/dhcgn/arxiv2notion/model"
	"github.com/dhcgn/arxiv2notion/runner"
)

// envelopeSource hands out a fixed set of digests once.
type envelopeSource []model.Envelope

func (s envelopeSource) FetchDigests(context.Context) ([]model.Envelope, error) {
	return s, nil
}

// NewParseCommand returns the one-shot "parse" command.
func NewParseCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "parse [file|-]",
		Short: "Extract papers from a digest file, stdin or an mbox archive",
		Long: "Reads one plaintext digest from a file or stdin (default), or every matching digest\n" +
			"of an mbox archive with --mbox, and prints the papers as JSON lines.\n" +
			"With --publish the papers are written to Notion instead.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cmd)
			if err != nil {
				return err
			}
			useMbox, err := cmd.Flags().GetBool("mbox")
			if err != nil {
				return err
			}
			publish, err := cmd.Flags().GetBool("publish")
			if err != nil {
				return err
			}
			if publish && !cfg.DryRun {
				if err := cfg.ValidateNotion(); err != nil {
					return err
				}
			}

			logOpts := cfg.Logging()
			logOpts.Console = cmd.ErrOrStderr()
			logger, cleanup, err := logging.New(logOpts)
			if err != nil {
				return err
			}
			defer func() {
				_ = cleanup()
			}()

			path := "-"
			if len(args) == 1 {
				path = args[0]
			}

			ctx := cmd.Context()

			var envelopes []model.Envelope
			if useMbox {
				if path == "-" {
					return fmt.Errorf("--mbox needs a file path")
				}
				envelopes, err = mbox.ReadFile(ctx, mbox.Options{Path: path, Subject: cfg.Subject}, logger)
			} else {
				envelopes, err = readPlain(path, cmd.InOrStdin())
			}
			if err != nil {
				return err
			}
			logger.Info("digests loaded", "path", path, "count", len(envelopes))

			if publish {
				return publishEnvelopes(ctx, envelopes, cfg.MaxPapers, PublisherFactory(cfg, logger), logger)
			}

			return printPapers(cmd.OutOrStdout(), digest.NewParser(logger), envelopes, cfg.MaxPapers)
		},
	}

	c.Flags().Bool("mbox", false, "Treat the input as an mbox archive and filter by --subject")
	c.Flags().Bool("publish", false, "Write the papers to Notion instead of printing them")
	return c
}

// publishEnvelopes runs one cycle over envelopes. Rejected papers and digest
// errors both fail the command.
func publishEnvelopes(ctx context.Context, envelopes []model.Envelope, maxPapers int, factory runner.PublisherFactory, logger *slog.Logger) error {
	r, err := runner.New(runner.Options{MaxPapers: maxPapers}, envelopeSource(envelopes), factory, logger)
	if err != nil {
		return fmt.Errorf("runner.New: %w", err)
	}
	summary := r.RunCycle(ctx)
	if summary.Errors > 0 {
		return fmt.Errorf("publishing finished with %d errors: %w", summary.Errors, summary.LastError)
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d papers failed to publish", summary.Failed, summary.Parsed)
	}
	return nil
}

func readPlain(path string, stdin io.Reader) ([]model.Envelope, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read digest: %w", err)
	}
	return []model.Envelope{{Digest: model.Digest{ID: path, Subject: path, PlainText: string(data)}}}, nil
}

func printPapers(w io.Writer, parser *digest.Parser, envelopes []model.Envelope, maxPapers int) error {
	enc := json.NewEncoder(w)
	for _, env := range envelopes {
		if env.Err != nil {
			continue
		}
		text, err := mailbody.Text(env.Digest)
		if err != nil {
			return fmt.Errorf("digest %q: %w", env.Digest.Subject, err)
		}
		for _, paper := range parser.Parse(text, maxPapers) {
			if err := enc.Encode(paper); err != nil {
				return fmt.Errorf("encode paper %s: %w", paper.ID, err)
			}
		}
	}
	return nil
}
