package digest

import "time"

// AbsBaseURL is the prefix every paper's SourceURL is built from.
const AbsBaseURL = "https://arxiv.org/abs/"

// Paper is one announcement extracted from a digest block.
//
// ID is always non-empty. Comments and NormalizedDate are nil when the block
// carries no comments or the date line could not be parsed.
type Paper struct {
	ID             string     `json:"arxivID"`
	Title          string     `json:"title"`
	Authors        string     `json:"authors"`
	Categories     string     `json:"categories"`
	Abstract       string     `json:"abstract"`
	Comments       *string    `json:"comments"`
	RawDate        string     `json:"rawDate"`
	NormalizedDate *time.Time `json:"date"`
	SourceURL      string     `json:"url"`
}

// CommentsText returns the comments or an empty string when there are none.
func (p Paper) CommentsText() string {
	if p.Comments == nil {
		return ""
	}
	return *p.Comments
}

// HasComments reports whether the block contained a Comments field.
func (p Paper) HasComments() bool {
	return p.Comments != nil
}

// SourceURLFor builds the abstract page URL for an identifier.
func SourceURLFor(id string) string {
	return AbsBaseURL + id
}
