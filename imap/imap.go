package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	imapv2 "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/dhcgn/arxiv2notion/mailbody"
	"github.com/dhcgn/arxiv2notion/model"
)

type Options struct {
	Host               string
	Port               int
	Username           string
	Password           string
	UseTLS             bool
	InsecureSkipVerify bool
	Mailbox            string
	Subject            string
}

// Source fetches unread digests. Every FetchDigests call opens its own
// connection and closes it before returning.
type Source struct {
	opts   Options
	logger *slog.Logger
}

func NewSource(opts Options, logger *slog.Logger) (*Source, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("imap host is empty")
	}
	if opts.Port <= 0 {
		return nil, fmt.Errorf("imap port must be positive")
	}
	if opts.Username == "" {
		return nil, fmt.Errorf("imap username is empty")
	}
	return &Source{opts: opts, logger: logger}, nil
}

// FetchDigests returns unseen messages whose subject contains the configured
// subject. Fetching the full body sets \Seen on the server, so a digest is
// handed out at most once.
func (s *Source) FetchDigests(ctx context.Context) ([]model.Envelope, error) {
	client, cleanup, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	mailbox := s.mailbox()
	if _, err := client.Select(mailbox, nil).Wait(); err != nil {
		return nil, fmt.Errorf("select mailbox %s: %w", mailbox, err)
	}

	criteria := &imapv2.SearchCriteria{
		NotFlag: []imapv2.Flag{imapv2.FlagSeen},
	}
	if s.opts.Subject != "" {
		criteria.Header = []imapv2.SearchCriteriaHeaderField{
			{Key: "Subject", Value: s.opts.Subject},
		}
	}

	data, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("search mailbox %s: %w", mailbox, err)
	}
	uids := data.AllUIDs()
	if s.logger != nil {
		s.logger.Debug("imap search finished", "mailbox", mailbox, "subject", s.opts.Subject, "matches", len(uids))
	}
	if len(uids) == 0 {
		return nil, nil
	}

	bodySection := &imapv2.FetchItemBodySection{}
	fetchOptions := &imapv2.FetchOptions{
		UID:         true,
		Envelope:    true,
		BodySection: []*imapv2.FetchItemBodySection{bodySection},
	}

	messages, err := client.Fetch(imapv2.UIDSetNum(uids...), fetchOptions).Collect()
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}

	envelopes := make([]model.Envelope, 0, len(messages))
	for _, msg := range messages {
		envelopes = append(envelopes, s.toEnvelope(msg, bodySection))
	}
	return envelopes, nil
}

func (s *Source) toEnvelope(msg *imapclient.FetchMessageBuffer, section *imapv2.FetchItemBodySection) model.Envelope {
	var subject string
	if msg.Envelope != nil {
		subject = msg.Envelope.Subject
	}

	raw := msg.FindBodySection(section)
	if raw == nil {
		return model.Envelope{
			Digest: model.Digest{Subject: subject},
			Err:    fmt.Errorf("message uid %d: body section missing", msg.UID),
		}
	}

	digest, err := mailbody.Parse(raw)
	if digest.Subject == "" {
		digest.Subject = subject
	}
	if err != nil {
		return model.Envelope{Digest: digest, Err: fmt.Errorf("message uid %d: %w", msg.UID, err)}
	}
	if digest.ID == "" {
		digest.ID = strconv.FormatUint(uint64(msg.UID), 10)
	}
	return model.Envelope{Digest: digest}
}

func (s *Source) dial(ctx context.Context) (*imapclient.Client, func(), error) {
	address := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
	options := &imapclient.Options{}

	if s.opts.UseTLS {
		options.TLSConfig = &tls.Config{
			ServerName:         s.opts.Host,
			InsecureSkipVerify: s.opts.InsecureSkipVerify,
		}
	}

	var (
		client *imapclient.Client
		err    error
	)

	if s.opts.UseTLS {
		client, err = imapclient.DialTLS(address, options)
	} else {
		client, err = imapclient.DialInsecure(address, options)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("dial imap %s: %w", address, err)
	}

	if err := client.Login(s.opts.Username, s.opts.Password).Wait(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("imap login failed: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("imap connection established", "address", address, "user", s.opts.Username, "tls", s.opts.UseTLS)
	}

	stopClose := context.AfterFunc(ctx, func() {
		_ = client.Close()
	})

	cleanup := func() {
		stopClose()
		if ctx.Err() == nil {
			if err := client.Logout().Wait(); err != nil {
				if s.logger != nil {
					s.logger.Warn("imap logout failed", "err", err)
				}
			}
		}
		if err := client.Close(); err != nil && s.logger != nil {
			s.logger.Debug("imap connection closed", "err", err)
		}
	}

	return client, cleanup, nil
}

func (s *Source) mailbox() string {
	if s.opts.Mailbox == "" {
		return "INBOX"
	}
	return s.opts.Mailbox
}
