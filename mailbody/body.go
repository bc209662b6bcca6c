// Package mailbody decodes raw RFC 5322 messages into the parts a digest
// parser cares about.
package mailbody

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/dhcgn/arxiv2notion/model"
)

// Parse decodes raw into a Digest. The first text/plain and text/html inline
// parts are kept; attachments are ignored.
func Parse(raw []byte) (model.Digest, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return model.Digest{}, fmt.Errorf("read message: %w", err)
	}
	defer mr.Close()

	var d model.Digest
	if subject, err := mr.Header.Subject(); err == nil {
		d.Subject = subject
	} else {
		d.Subject = mr.Header.Get("Subject")
	}
	if id, err := mr.Header.MessageID(); err == nil {
		d.ID = id
	}
	if date, err := mr.Header.Date(); err == nil {
		d.ReceivedAt = date
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return d, fmt.Errorf("read part: %w", err)
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		mediaType, _, err := header.ContentType()
		if err != nil {
			mediaType = "text/plain"
		}

		switch mediaType {
		case "text/plain":
			if d.PlainText != "" {
				continue
			}
			body, err := io.ReadAll(part.Body)
			if err != nil {
				return d, fmt.Errorf("read text part: %w", err)
			}
			d.PlainText = string(body)
		case "text/html":
			if d.HTML != "" {
				continue
			}
			body, err := io.ReadAll(part.Body)
			if err != nil {
				return d, fmt.Errorf("read html part: %w", err)
			}
			d.HTML = string(body)
		}
	}

	return d, nil
}

// Text returns the body to feed into the parser: the plain text part when it
// has content, else the HTML part rendered as text.
func Text(d model.Digest) (string, error) {
	if strings.TrimSpace(d.PlainText) != "" {
		return d.PlainText, nil
	}
	if strings.TrimSpace(d.HTML) == "" {
		return "", nil
	}
	return HTMLToText(d.HTML)
}

// HTMLToText strips markup while keeping line structure from <br>, <p> and
// <pre> so separator lines survive.
func HTMLToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html body: %w", err)
	}
	doc.Find("script, style, head").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, tr, li").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	return doc.Text(), nil
}
