package cmd

import (
	"context"
	"log/slog"

	"github.com/dhcgn/arxiv2notion/config"
	"github.com/dhcgn/arxiv2notion/notion"
	"github.com/dhcgn/arxiv2notion/runner"
)

// PublisherFactory opens a Notion publisher per cycle, or a logging one in
// dry-run mode.
func PublisherFactory(cfg config.Config, logger *slog.Logger) runner.PublisherFactory {
	return func(context.Context) (runner.Publisher, error) {
		if cfg.DryRun {
			return notion.NewDryRunPublisher(logger), nil
		}
		client, err := notion.NewClient(cfg.NotionToken)
		if err != nil {
			return nil, err
		}
		return notion.NewPublisher(client.Page, cfg.NotionDatabaseID, logger)
	}
}
