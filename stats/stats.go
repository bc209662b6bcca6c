package stats

type Stage string

const (
	StageIMAP   Stage = "imap"
	StageParse  Stage = "parse"
	StageNotion Stage = "notion"
)

type EventType string

const (
	EventTypeFetched   EventType = "fetched"
	EventTypeEmpty     EventType = "empty"
	EventTypeParsed    EventType = "parsed"
	EventTypePublished EventType = "published"
	EventTypeFailed    EventType = "failed"
	EventTypeError     EventType = "error"
)

// Event reports something that happened during a poll cycle. Count defaults
// to one when zero.
type Event struct {
	Stage   Stage
	Type    EventType
	Subject string
	Count   int
	Err     error
}

type Summary struct {
	Digests      int
	EmptyDigests int
	Parsed       int
	Published    int
	Failed       int
	Errors       int
	LastError    error
}

func (s Summary) LogAttrs() []any {
	attrs := []any{
		"digests", s.Digests,
		"emptyDigests", s.EmptyDigests,
		"parsed", s.Parsed,
		"published", s.Published,
		"failed", s.Failed,
		"errors", s.Errors,
	}
	if s.LastError != nil {
		attrs = append(attrs, "lastError", s.LastError.Error())
	}
	return attrs
}

// Collector accumulates events of one cycle. It is not safe for concurrent use.
type Collector struct {
	summary Summary
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Apply(evt Event) {
	n := evt.Count
	if n == 0 {
		n = 1
	}
	switch evt.Type {
	case EventTypeFetched:
		c.summary.Digests += n
	case EventTypeEmpty:
		c.summary.EmptyDigests += n
	case EventTypeParsed:
		c.summary.Parsed += n
	case EventTypePublished:
		c.summary.Published += n
	case EventTypeFailed:
		c.summary.Failed += n
	case EventTypeError:
		c.summary.Errors += n
		if evt.Err != nil {
			c.summary.LastError = evt.Err
		}
	}
}

func (c *Collector) Snapshot() Summary {
	return c.summary
}
