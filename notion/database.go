package notion

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
)

// DefaultDatabaseTitle names databases created by CreateDatabase.
const DefaultDatabaseTitle = "arXiv Papers"

// DatabaseCreator is the subset of notionapi.DatabaseService used here.
type DatabaseCreator interface {
	Create(ctx context.Context, request *notionapi.DatabaseCreateRequest) (*notionapi.Database, error)
}

// Schema returns the property configuration Properties writes into.
func Schema() notionapi.PropertyConfigs {
	return notionapi.PropertyConfigs{
		PropTitle:      notionapi.TitlePropertyConfig{Type: notionapi.PropertyConfigTypeTitle},
		PropAuthors:    notionapi.RichTextPropertyConfig{Type: notionapi.PropertyConfigTypeRichText},
		PropCategories: notionapi.RichTextPropertyConfig{Type: notionapi.PropertyConfigTypeRichText},
		PropAbstract:   notionapi.RichTextPropertyConfig{Type: notionapi.PropertyConfigTypeRichText},
		PropArxivID:    notionapi.RichTextPropertyConfig{Type: notionapi.PropertyConfigTypeRichText},
		PropURL:        notionapi.URLPropertyConfig{Type: notionapi.PropertyConfigTypeURL},
		PropDate:       notionapi.DatePropertyConfig{Type: notionapi.PropertyConfigTypeDate},
		PropComments:   notionapi.RichTextPropertyConfig{Type: notionapi.PropertyConfigTypeRichText},
	}
}

// CreateDatabase creates a database below pageID with the paper schema and
// returns its id.
func CreateDatabase(ctx context.Context, databases DatabaseCreator, pageID, title string) (notionapi.DatabaseID, error) {
	if pageID == "" {
		return "", fmt.Errorf("parent page id is required to create a database")
	}
	if title == "" {
		title = DefaultDatabaseTitle
	}

	request := &notionapi.DatabaseCreateRequest{
		Parent: notionapi.Parent{
			Type:   notionapi.ParentTypePageID,
			PageID: notionapi.PageID(pageID),
		},
		Title: []notionapi.RichText{
			{Text: &notionapi.Text{Content: title}},
		},
		Properties: Schema(),
	}

	db, err := databases.Create(ctx, request)
	if err != nil {
		return "", fmt.Errorf("create notion database: %w", err)
	}
	return notionapi.DatabaseID(db.ID), nil
}
