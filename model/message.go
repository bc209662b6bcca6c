package model

import "time"

// Digest is one fetched digest message with its decoded bodies.
type Digest struct {
	ID         string
	Subject    string
	ReceivedAt time.Time
	PlainText  string
	HTML       string
}

// Envelope wraps a digest alongside an optional error encountered while decoding.
type Envelope struct {
	Digest Digest
	Err    error
}
