package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dhcgn/arxiv2notion/digest"
	"github.com/dhcgn/arxiv2notion/mailbody"
	"github.com/dhcgn/arxiv2notion/model"
	"github.com/dhcgn/arxiv2notion/notion"
	"github.com/dhcgn/arxiv2notion/stats"
)

const (
	DefaultPollInterval  = 4 * time.Hour
	DefaultCheckInterval = time.Minute
)

// MailSource yields the unread digests of one cycle.
type MailSource interface {
	FetchDigests(ctx context.Context) ([]model.Envelope, error)
}

// Publisher writes the papers of one digest.
type Publisher interface {
	PublishAll(ctx context.Context, papers []digest.Paper) notion.Result
}

// PublisherFactory opens the store for one cycle.
type PublisherFactory func(ctx context.Context) (Publisher, error)

type Options struct {
	MaxPapers     int
	PollInterval  time.Duration
	CheckInterval time.Duration
}

// Runner polls the mailbox on a fixed interval. It runs one cycle at a time
// on the calling goroutine.
type Runner struct {
	opts         Options
	source       MailSource
	newPublisher PublisherFactory
	parser       *digest.Parser
	logger       *slog.Logger
	now          func() time.Time
}

func New(opts Options, source MailSource, newPublisher PublisherFactory, logger *slog.Logger) (*Runner, error) {
	if source == nil {
		return nil, fmt.Errorf("mail source must not be nil")
	}
	if newPublisher == nil {
		return nil, fmt.Errorf("publisher factory must not be nil")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = DefaultCheckInterval
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{
		opts:         opts,
		source:       source,
		newPublisher: newPublisher,
		parser:       digest.NewParser(logger),
		logger:       logger,
		now:          time.Now,
	}, nil
}

// Start runs a cycle immediately and then whenever PollInterval has elapsed,
// checking every CheckInterval. It returns nil once ctx is done.
func (r *Runner) Start(ctx context.Context) error {
	r.logger.Info("poll loop started", "interval", r.opts.PollInterval, "maxPapers", r.opts.MaxPapers)

	r.RunCycle(ctx)
	next := r.now().Add(r.opts.PollInterval)

	ticker := time.NewTicker(r.opts.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("poll loop stopped")
			return nil
		case <-ticker.C:
			if ctx.Err() != nil || r.now().Before(next) {
				continue
			}
			r.RunCycle(ctx)
			next = r.now().Add(r.opts.PollInterval)
		}
	}
}

// RunCycle fetches unread digests and publishes their papers. Errors are
// logged and counted, never returned.
func (r *Runner) RunCycle(ctx context.Context) stats.Summary {
	started := r.now()
	r.logger.Info("checking for new digests")

	envelopes, err := r.source.FetchDigests(ctx)
	if err != nil {
		c := stats.NewCollector()
		c.Apply(stats.Event{Stage: stats.StageIMAP, Type: stats.EventTypeError, Err: err})
		summary := c.Snapshot()
		if !errors.Is(err, context.Canceled) {
			r.logger.Error("failed to fetch digests", "err", err)
		}
		return summary
	}

	var summary stats.Summary
	if len(envelopes) == 0 {
		r.logger.Info("no new digests")
	} else {
		pub, err := r.newPublisher(ctx)
		if err != nil {
			c := stats.NewCollector()
			c.Apply(stats.Event{Stage: stats.StageIMAP, Type: stats.EventTypeFetched, Count: len(envelopes)})
			c.Apply(stats.Event{Stage: stats.StageNotion, Type: stats.EventTypeError, Err: err})
			r.logger.Error("failed to open publisher; digests of this cycle are dropped", "digests", len(envelopes), "err", err)
			return c.Snapshot()
		}
		summary = r.Process(ctx, pub, envelopes)
	}

	r.logger.Info("cycle summary", append(summary.LogAttrs(), "duration", time.Since(started))...)
	return summary
}

// Process parses and publishes each envelope in order. A failing digest is
// logged and the next one is processed.
func (r *Runner) Process(ctx context.Context, pub Publisher, envelopes []model.Envelope) stats.Summary {
	c := stats.NewCollector()
	for _, env := range envelopes {
		if ctx.Err() != nil {
			break
		}
		c.Apply(stats.Event{Stage: stats.StageIMAP, Type: stats.EventTypeFetched, Subject: env.Digest.Subject})
		if env.Err != nil {
			c.Apply(stats.Event{Stage: stats.StageIMAP, Type: stats.EventTypeError, Subject: env.Digest.Subject, Err: env.Err})
			r.logger.Error("failed to decode digest", "subject", env.Digest.Subject, "err", env.Err)
			continue
		}
		r.processDigest(ctx, pub, env.Digest, c)
	}
	return c.Snapshot()
}

func (r *Runner) processDigest(ctx context.Context, pub Publisher, d model.Digest, c *stats.Collector) {
	logger := r.logger.With("subject", d.Subject)
	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("panic: %v", rec)
			c.Apply(stats.Event{Stage: stats.StageParse, Type: stats.EventTypeError, Subject: d.Subject, Err: err})
			logger.Error("error processing digest", "err", err)
		}
	}()

	logger.Info("processing digest")

	text, err := mailbody.Text(d)
	if err != nil {
		c.Apply(stats.Event{Stage: stats.StageParse, Type: stats.EventTypeError, Subject: d.Subject, Err: err})
		logger.Error("error processing digest", "err", err)
		return
	}
	if text == "" {
		c.Apply(stats.Event{Stage: stats.StageParse, Type: stats.EventTypeEmpty, Subject: d.Subject})
		logger.Warn("digest content is empty")
		return
	}

	papers := r.parser.Parse(text, r.opts.MaxPapers)
	if len(papers) == 0 {
		c.Apply(stats.Event{Stage: stats.StageParse, Type: stats.EventTypeEmpty, Subject: d.Subject})
		return
	}
	c.Apply(stats.Event{Stage: stats.StageParse, Type: stats.EventTypeParsed, Subject: d.Subject, Count: len(papers)})

	res := pub.PublishAll(ctx, papers)
	if res.Published > 0 {
		c.Apply(stats.Event{Stage: stats.StageNotion, Type: stats.EventTypePublished, Subject: d.Subject, Count: res.Published})
	}
	if res.Failed > 0 {
		c.Apply(stats.Event{Stage: stats.StageNotion, Type: stats.EventTypeFailed, Subject: d.Subject, Count: res.Failed})
	}

	logger.Info("processed digest", "papers", len(papers), "published", res.Published, "failed", res.Failed)
}
