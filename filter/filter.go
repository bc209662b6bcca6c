package filter

import (
	"fmt"
	"regexp"
	"strings"
)

// Options captures the filtering configuration.
type Options struct {
	// Subject must occur in the message subject, ignoring case. Empty matches all.
	Subject string
	// ExcludeSubject drops messages whose subject matches any of these patterns.
	ExcludeSubject []string
}

// Filter selects digest messages by subject the way IMAP SEARCH SUBJECT does.
type Filter struct {
	subject string
	exclude []*regexp.Regexp
}

// New creates a new Filter from the provided options.
func New(opts Options) (*Filter, error) {
	exclude, err := compilePatterns(opts.ExcludeSubject)
	if err != nil {
		return nil, fmt.Errorf("compile exclude-subject pattern: %w", err)
	}
	return &Filter{
		subject: strings.ToLower(strings.TrimSpace(opts.Subject)),
		exclude: exclude,
	}, nil
}

// Allows returns true if subject passes the filter criteria.
func (f *Filter) Allows(subject string) bool {
	if f.subject != "" && !strings.Contains(strings.ToLower(subject), f.subject) {
		return false
	}
	for _, re := range f.exclude {
		if re.MatchString(subject) {
			return false
		}
	}
	return true
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}
