// Package mailtext parses inbound mail and extracts the operator's reply
// text from it.
package mailtext

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// Mail is the subset of a parsed message the reconciler needs.
type Mail struct {
	MessageID  string
	Subject    string
	From       string
	InReplyTo  []string
	References []string
	Date       time.Time
	Text       string
	HTML       string
}

// Parse reads an RFC 5322 message. The first text/plain and text/html
// inline parts are kept; attachments are ignored.
func Parse(raw []byte) (*Mail, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("read message: %w", err)
	}
	defer mr.Close()

	m := &Mail{}
	h := mr.Header
	if m.Subject, err = h.Subject(); err != nil {
		m.Subject = h.Get("Subject")
	}
	m.MessageID, _ = h.MessageID()
	m.InReplyTo, _ = h.MsgIDList("In-Reply-To")
	m.References, _ = h.MsgIDList("References")
	m.Date, _ = h.Date()
	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		m.From = strings.ToLower(from[0].Address)
	}

	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read part: %w", err)
		}

		ih, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, err := ih.ContentType()
		if err != nil || ct == "" {
			ct = "text/plain"
		}
		body, err := io.ReadAll(p.Body)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}

		switch ct {
		case "text/plain":
			if m.Text == "" {
				m.Text = string(body)
			}
		case "text/html":
			if m.HTML == "" {
				m.HTML = string(body)
			}
		}
	}
	return m, nil
}

var (
	subjectMarker = regexp.MustCompile(`\[CONV-([A-Z0-9]+)\]`)
	replyPrefix   = regexp.MustCompile(`(?i)\bre\s?:`)
)

// ConversationMarker returns the conversation id carried as
// "[CONV-XXXXXXXX]" in s, or "".
func ConversationMarker(s string) string {
	match := subjectMarker.FindStringSubmatch(s)
	if match == nil {
		return ""
	}
	return "CONV-" + match[1]
}

// HeaderMarker looks for a conversation marker in the threading headers
// and the subject, ignoring case.
func (m *Mail) HeaderMarker() string {
	fields := append(append([]string{}, m.InReplyTo...), m.References...)
	fields = append(fields, m.Subject)
	return ConversationMarker(strings.ToUpper(strings.Join(fields, " ")))
}

// ThreadIDs returns the Message-IDs this mail replies to, most direct first.
func (m *Mail) ThreadIDs() []string {
	ids := make([]string, 0, len(m.InReplyTo)+len(m.References))
	ids = append(ids, m.InReplyTo...)
	for i := len(m.References) - 1; i >= 0; i-- {
		ids = append(ids, m.References[i])
	}
	return ids
}

// IsReply reports whether the mail answers another message.
func (m *Mail) IsReply() bool {
	return replyPrefix.MatchString(m.Subject) || len(m.InReplyTo) > 0 || len(m.References) > 0
}
