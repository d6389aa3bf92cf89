// SPDX-License-Identifier: GPL-3.0-or-later
package mail

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	gomail "github.com/emersion/go-message/mail"
	"golang.org/x/net/html"
)

const (
	SnippetLength = 150
	subjectLength = 30
)

type Message struct {
	MessageID   string
	SenderName  string
	SenderEmail string
	Subject     string
	Date        time.Time
	Snippet     string
	Body        string
}

// ParseMessage extracts what triage needs from a raw RFC 5322 message. The
// body is the first text/plain part, or the first text/html part with markup
// removed.
func ParseMessage(rawMail []byte) (*Message, error) {
	mr, err := gomail.CreateReader(bytes.NewReader(rawMail))
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("could not parse mail: %w", err)
	}
	defer mr.Close()

	msg := &Message{}

	msg.Subject, err = mr.Header.Subject()
	if err != nil {
		msg.Subject = mr.Header.Get("Subject")
	}
	msg.MessageID, _ = mr.Header.MessageID()
	msg.Date, _ = mr.Header.Date()

	from, err := mr.Header.AddressList("From")
	if err == nil && len(from) > 0 {
		msg.SenderEmail = strings.ToLower(from[0].Address)
		msg.SenderName = from[0].Name
	}
	if msg.SenderName == "" {
		msg.SenderName = msg.SenderEmail
	}

	plain, markup, err := readBodies(mr)
	if err != nil {
		return nil, err
	}
	msg.Body = strings.TrimSpace(plain)
	if msg.Body == "" {
		msg.Body = strings.TrimSpace(StripTags(markup))
	}
	msg.Snippet = Snippet(msg.Body, SnippetLength)

	return msg, nil
}

func readBodies(mr *gomail.Reader) (string, string, error) {
	plain, markup := "", ""
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return plain, markup, nil
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return "", "", fmt.Errorf("could not read mail part: %w", err)
		}

		h, ok := p.Header.(*gomail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, err := h.ContentType()
		if err != nil {
			contentType = "text/plain"
		}
		if contentType != "text/plain" && contentType != "text/html" {
			continue
		}

		content, err := io.ReadAll(p.Body)
		if err != nil {
			return "", "", fmt.Errorf("could not read %s body: %w", contentType, err)
		}
		if contentType == "text/plain" && plain == "" {
			plain = string(content)
		} else if contentType == "text/html" && markup == "" {
			markup = string(content)
		}
	}
}

// Snippet collapses whitespace and cuts text to at most length runes.
func Snippet(text string, length int) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(collapsed) <= length {
		return collapsed
	}
	return string([]rune(collapsed)[:length])
}

// StripTags returns the visible text of an html document with whitespace
// collapsed. Comments as well as style and script content are dropped.
func StripTags(markup string) string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return ""
	}

	var sb strings.Builder
	extractText(doc, &sb)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func extractText(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "head", "template":
			return
		}
		sb.WriteByte(' ')
		defer sb.WriteByte(' ')
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, sb)
	}
}

// ShortSubject shortens a subject for log output.
func ShortSubject(subject string) string {
	if utf8.RuneCountInString(subject) > subjectLength {
		subject = string([]rune(subject)[:subjectLength]) + "..."
	}
	return subject
}
