package mbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	mboxlib "github.com/emersion/go-mbox"

	"github.com/dhcgn/arxiv2notion/filter"
	"github.com/dhcgn/arxiv2notion/mailbody"
	"github.com/dhcgn/arxiv2notion/model"
)

type Options struct {
	Path           string
	Subject        string
	ExcludeSubject []string
}

// ReadFile returns every digest in the archive at opts.Path whose subject
// passes the filter.
func ReadFile(ctx context.Context, opts Options, logger *slog.Logger) ([]model.Envelope, error) {
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		return nil, fmt.Errorf("mbox path is empty")
	}

	f, err := filter.New(filter.Options{Subject: opts.Subject, ExcludeSubject: opts.ExcludeSubject})
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mbox: %w", err)
	}
	defer file.Close()

	return Read(ctx, file, f, logger)
}

// Read decodes messages from an mbox stream. Messages that fail to decode are
// returned as envelopes carrying the error; a broken archive stops reading.
func Read(ctx context.Context, r io.Reader, f *filter.Filter, logger *slog.Logger) ([]model.Envelope, error) {
	reader := mboxlib.NewReader(r)
	envelopes := make([]model.Envelope, 0)

	for idx := 0; ; idx++ {
		if err := ctx.Err(); err != nil {
			return envelopes, err
		}

		msgReader, err := reader.NextMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return envelopes, nil
			}
			return envelopes, fmt.Errorf("message %d: %w", idx, err)
		}

		raw, err := io.ReadAll(msgReader)
		if err != nil {
			return envelopes, fmt.Errorf("message %d read: %w", idx, err)
		}

		digest, err := mailbody.Parse(raw)
		if err != nil {
			if logger != nil {
				logger.Warn("mbox message decode failed", "index", idx, "err", err)
			}
			envelopes = append(envelopes, model.Envelope{Digest: digest, Err: fmt.Errorf("message %d parse: %w", idx, err)})
			continue
		}

		if f != nil && !f.Allows(digest.Subject) {
			if logger != nil {
				logger.Debug("skipping message", "index", idx, "subject", digest.Subject)
			}
			continue
		}

		envelopes = append(envelopes, model.Envelope{Digest: digest})
	}
}
