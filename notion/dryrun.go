package notion

import (
	"context"
	"log/slog"

	"github.com/dhcgn/arxiv2notion/digest"
)

// DryRunPublisher logs papers instead of writing them.
type DryRunPublisher struct {
	logger *slog.Logger
}

func NewDryRunPublisher(logger *slog.Logger) *DryRunPublisher {
	return &DryRunPublisher{logger: logger}
}

func (d *DryRunPublisher) PublishAll(ctx context.Context, papers []digest.Paper) Result {
	var res Result
	for _, paper := range papers {
		if ctx.Err() != nil {
			return res
		}
		if d.logger != nil {
			d.logger.Info("dry-run publish", "arxivID", paper.ID, "title", paper.Title, "hasDate", paper.NormalizedDate != nil)
		}
		res.Published++
	}
	return res
}
