// Package digest extracts paper announcements from the plaintext body of an
// arXiv subject-class mailing.
//
// A digest is a sequence of blocks separated by a line of 78 dashes. A block
// looks like
//
//	\\
//	arXiv:2406.01234
//	Date: Mon, 3 Jun 2024 12:00:00 GMT   (25kb)
//
//	Title: ...
//	Authors: ...
//	Categories: cs.LG cs.AI
//	Comments: 10 pages
//	\\
//	  Abstract text ...
//	\\ ( https://arxiv.org/abs/2406.01234 ,  25kb)
//
// Fields are located by scanning from a marker to the nearest following
// terminator, so every field tolerates being absent.
package digest

import (
	"log/slog"
	"strings"
)

const (
	// BlockSeparator delimits announcements inside a digest.
	BlockSeparator = "------------------------------------------------------------------------------"
	// SectionBreak separates the header fields from the abstract.
	SectionBreak = `\\`

	idMarker         = "arXiv:"
	dateMarker       = "Date:"
	titleMarker      = "Title:"
	authorsMarker    = "Authors:"
	authorMarker     = "Author:"
	categoriesMarker = "Categories:"
	commentsMarker   = "Comments:"
	abstractMarker   = "Abstract:"
)

var (
	headerTerminators = []string{
		dateMarker, titleMarker, authorsMarker, authorMarker,
		categoriesMarker, commentsMarker, abstractMarker, SectionBreak,
	}
	categoriesTerminators = []string{commentsMarker, abstractMarker, SectionBreak}
	commentsTerminators   = []string{abstractMarker, SectionBreak}
	dateTerminators       = []string{"(", "\n", "\r"}
)

// Parser turns digest text into papers.
type Parser struct {
	logger *slog.Logger
}

// NewParser returns a parser that reports skipped blocks and bad dates to
// logger. logger may be nil.
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse extracts papers in the order they appear. When maxRecords is positive
// parsing stops as soon as that many papers were collected; later blocks are
// not inspected.
//
// Text without any BlockSeparator is treated as a single block, so a lone
// entry such as "arXiv:2406.01234\nTitle: ..." still yields one paper. Empty
// text, or text whose blocks carry no identifier, yields an empty slice.
func (p *Parser) Parse(text string, maxRecords int) []Paper {
	papers := make([]Paper, 0)
	blocks := strings.Split(text, BlockSeparator)

	for idx, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		paper, ok := p.parseBlock(block)
		if !ok {
			if p.logger != nil {
				p.logger.Debug("skipping block without identifier", "block", idx)
			}
			continue
		}

		papers = append(papers, paper)
		if maxRecords > 0 && len(papers) >= maxRecords {
			if p.logger != nil && idx < len(blocks)-1 {
				p.logger.Debug("paper limit reached", "limit", maxRecords, "remainingBlocks", len(blocks)-1-idx)
			}
			break
		}
	}

	if len(papers) == 0 && p.logger != nil {
		p.logger.Info("no papers found in digest", "blocks", len(blocks))
	}

	return papers
}

func (p *Parser) parseBlock(block string) (Paper, bool) {
	id := findIdentifier(block)
	if id == "" {
		return Paper{}, false
	}

	header := headerOf(block)
	rawDate, _ := fieldAfter(header, dateMarker, dateTerminators)
	title, _ := fieldAfter(header, titleMarker, headerTerminators)
	authors, found := fieldAfter(header, authorsMarker, headerTerminators)
	if !found {
		authors, _ = fieldAfter(header, authorMarker, headerTerminators)
	}
	categories, _ := fieldAfter(header, categoriesMarker, categoriesTerminators)

	var comments *string
	if text, ok := fieldAfter(header, commentsMarker, commentsTerminators); ok {
		comments = &text
	}

	logger := p.logger
	if logger != nil {
		logger = logger.With("arxivID", id)
	}

	return Paper{
		ID:             id,
		Title:          title,
		Authors:        authors,
		Categories:     categories,
		Abstract:       abstractOf(block),
		Comments:       comments,
		RawDate:        rawDate,
		NormalizedDate: NormalizeDate(rawDate, logger),
		SourceURL:      SourceURLFor(id),
	}, true
}

// findIdentifier returns the first non-empty identifier following the
// "arXiv:" marker. Identifiers consist of letters, digits, '.', '-' and '/'
// which covers both "hep-th/9901001" and "2406.01234".
func findIdentifier(block string) string {
	rest := block
	for {
		idx := strings.Index(rest, idMarker)
		if idx < 0 {
			return ""
		}
		rest = rest[idx+len(idMarker):]

		n := 0
		for n < len(rest) && isIdentifierByte(rest[n]) {
			n++
		}
		if n > 0 {
			return rest[:n]
		}
	}
}

func isIdentifierByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b == '.', b == '-', b == '/':
		return true
	}
	return false
}

// headerOf returns the part of block before its second section break, where
// the Date, Title, Authors, Categories and Comments lines live. Blocks with
// fewer than two breaks are all header.
func headerOf(block string) string {
	first := strings.Index(block, SectionBreak)
	if first < 0 {
		return block
	}
	start := first + len(SectionBreak)
	second := strings.Index(block[start:], SectionBreak)
	if second < 0 {
		return block
	}
	return block[:start+second]
}

// fieldAfter returns the trimmed text between marker and the nearest of
// terminators (or the end of block). found is false when marker is absent.
func fieldAfter(block, marker string, terminators []string) (value string, found bool) {
	idx := strings.Index(block, marker)
	if idx < 0 {
		return "", false
	}
	rest := block[idx+len(marker):]
	return strings.TrimSpace(rest[:nearest(rest, terminators)]), true
}

func nearest(text string, terminators []string) int {
	end := len(text)
	for _, term := range terminators {
		if i := strings.Index(text, term); i >= 0 && i < end {
			end = i
		}
	}
	return end
}

// abstractOf returns the text after the second section break up to the next
// one.
func abstractOf(block string) string {
	rest := block
	for i := 0; i < 2; i++ {
		idx := strings.Index(rest, SectionBreak)
		if idx < 0 {
			return ""
		}
		rest = rest[idx+len(SectionBreak):]
	}
	if end := strings.Index(rest, SectionBreak); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}
