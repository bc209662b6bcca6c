package notion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jomei/notionapi"

	"github.com/dhcgn/arxiv2notion/digest"
)

// MaxAbstractLength is the rich text limit Notion enforces per text object.
const MaxAbstractLength = 2000

// Property names of the target database.
const (
	PropTitle      = "Title"
	PropAuthors    = "Authors"
	PropCategories = "Categories"
	PropAbstract   = "Abstract"
	PropArxivID    = "arXiv ID"
	PropURL        = "URL"
	PropDate       = "Date"
	PropComments   = "Comments"
)

var (
	ErrTokenMissing    = errors.New("notion token is empty")
	ErrDatabaseMissing = errors.New("notion database id is empty")
)

// PageCreator is the subset of notionapi.PageService the publisher needs.
type PageCreator interface {
	Create(ctx context.Context, request *notionapi.PageCreateRequest) (*notionapi.Page, error)
}

// Result counts the outcome of one PublishAll call.
type Result struct {
	Published int
	Failed    int
}

// Publisher writes papers as pages into a Notion database.
type Publisher struct {
	pages      PageCreator
	databaseID notionapi.DatabaseID
	logger     *slog.Logger
}

// NewClient builds a notionapi client for token.
func NewClient(token string) (*notionapi.Client, error) {
	if token == "" {
		return nil, ErrTokenMissing
	}
	return notionapi.NewClient(notionapi.Token(token)), nil
}

func NewPublisher(pages PageCreator, databaseID string, logger *slog.Logger) (*Publisher, error) {
	if pages == nil {
		return nil, fmt.Errorf("page creator must not be nil")
	}
	if databaseID == "" {
		return nil, ErrDatabaseMissing
	}
	return &Publisher{
		pages:      pages,
		databaseID: notionapi.DatabaseID(databaseID),
		logger:     logger,
	}, nil
}

// Publish creates one page for paper.
func (p *Publisher) Publish(ctx context.Context, paper digest.Paper) error {
	request := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: p.databaseID,
		},
		Properties: Properties(paper),
	}

	if _, err := p.pages.Create(ctx, request); err != nil {
		return fmt.Errorf("create page for %s: %w", paper.ID, err)
	}

	if p.logger != nil {
		p.logger.Debug("paper published", "arxivID", paper.ID, "title", paper.Title)
	}
	return nil
}

// PublishAll publishes every paper independently. A failed paper is logged
// and does not stop the rest. It returns early only when ctx is done.
func (p *Publisher) PublishAll(ctx context.Context, papers []digest.Paper) Result {
	var res Result
	for _, paper := range papers {
		if ctx.Err() != nil {
			return res
		}
		if err := p.Publish(ctx, paper); err != nil {
			res.Failed++
			if p.logger != nil {
				p.logger.Error("failed to publish paper", "arxivID", paper.ID, "err", err)
			}
			continue
		}
		res.Published++
	}
	return res
}

// Properties maps a paper onto the database schema. The abstract is cut to
// MaxAbstractLength characters, Date is only set when the paper has a
// normalized date and missing comments become empty text.
func Properties(paper digest.Paper) notionapi.Properties {
	props := notionapi.Properties{
		PropTitle: notionapi.TitleProperty{
			Type:  notionapi.PropertyTypeTitle,
			Title: richText(paper.Title),
		},
		PropAuthors:    richTextProperty(paper.Authors),
		PropCategories: richTextProperty(paper.Categories),
		PropAbstract:   richTextProperty(TruncateAbstract(paper.Abstract)),
		PropArxivID:    richTextProperty(paper.ID),
		PropURL: notionapi.URLProperty{
			Type: notionapi.PropertyTypeURL,
			URL:  paper.SourceURL,
		},
		PropComments: richTextProperty(paper.CommentsText()),
	}

	if paper.NormalizedDate != nil {
		start := notionapi.Date(*paper.NormalizedDate)
		props[PropDate] = notionapi.DateProperty{
			Type: notionapi.PropertyTypeDate,
			Date: &notionapi.DateObject{Start: &start},
		}
	}

	return props
}

// TruncateAbstract limits text to MaxAbstractLength characters.
func TruncateAbstract(text string) string {
	return truncateRunes(text, MaxAbstractLength)
}

func truncateRunes(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	count := 0
	for idx := range text {
		if count == limit {
			return text[:idx]
		}
		count++
	}
	return text
}

func richTextProperty(content string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		Type:     notionapi.PropertyTypeRichText,
		RichText: richText(content),
	}
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Text: &notionapi.Text{Content: content},
		},
	}
}
