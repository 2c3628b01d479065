package mailtext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const multipartReply = "From: Clinic <Clinic@Hospital.Example>\r\n" +
	"To: jane@patient.example\r\n" +
	"Subject: Re: New message from Jane [CONV-1A2B3C4D]\r\n" +
	"Message-ID: <reply-1@hospital.example>\r\n" +
	"In-Reply-To: <notify-1@hospital.example>\r\n" +
	"References: <root@hospital.example> <notify-1@hospital.example>\r\n" +
	"Date: Mon, 02 Mar 2026 10:00:00 +0000\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=\"b1\"\r\n" +
	"\r\n" +
	"--b1\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Please rest and hydrate.\r\n" +
	"\r\n" +
	"On Mon, Mar 2, 2026 at 9:00 AM Hospital <clinic@hospital.example> wrote:\r\n" +
	"> I have a fever\r\n" +
	"--b1\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<div>Please rest and hydrate.</div>\r\n" +
	"--b1--\r\n"

func TestParseMultipart(t *testing.T) {
	m, err := Parse([]byte(multipartReply))
	require.NoError(t, err)

	assert.Equal(t, "reply-1@hospital.example", m.MessageID)
	assert.Equal(t, "clinic@hospital.example", m.From)
	assert.Equal(t, []string{"notify-1@hospital.example"}, m.InReplyTo)
	assert.Equal(t, []string{"notify-1@hospital.example", "notify-1@hospital.example", "root@hospital.example"}, m.ThreadIDs())
	assert.Equal(t, "CONV-1A2B3C4D", ConversationMarker(m.Subject))
	assert.True(t, m.IsReply())
	assert.Equal(t, "Please rest and hydrate.", m.Reply())
	assert.Contains(t, m.HTML, "<div>")
}

func TestParseHTMLOnly(t *testing.T) {
	raw := "From: clinic@hospital.example\r\n" +
		"Subject: answer\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<html><head><style>p{}</style></head><body><p>Come in&nbsp;tomorrow at 10.</p>" +
		"<div class=\"gmail_quote\"><blockquote><p>I have a fever</p></blockquote></div></body></html>\r\n"

	m, err := Parse([]byte(raw))
	require.NoError(t, err)
	assert.Empty(t, m.Text)
	assert.False(t, m.IsReply())
	assert.Equal(t, "Come in tomorrow at 10.", m.Reply())
}

func TestConversationMarker(t *testing.T) {
	assert.Equal(t, "CONV-ABC123", ConversationMarker("Re: hi [CONV-ABC123]"))
	assert.Empty(t, ConversationMarker("Re: hi CONV-ABC123"))
	assert.Empty(t, ConversationMarker("Re: hi [conv-abc123]"))

	m := &Mail{Subject: "re: hi [conv-abc123]"}
	assert.Equal(t, "CONV-ABC123", m.HeaderMarker())
}

func TestIsReply(t *testing.T) {
	assert.True(t, (&Mail{Subject: "RE : question"}).IsReply())
	assert.True(t, (&Mail{Subject: "question", References: []string{"x@y"}}).IsReply())
	assert.False(t, (&Mail{Subject: "Prescription renewal"}).IsReply())
}

func TestStripQuotedMarkers(t *testing.T) {
	cases := map[string]string{
		"angle":    "Thanks\n> quoted",
		"escaped":  "Thanks\n&gt; quoted",
		"gmail":    "Thanks\nOn Tue, 3 Mar 2026 John wrote:\nquoted",
		"lower":    "Thanks\n\non Mon, Jan 2, 2006 at 3:04 PM Jane wrote:\nquoted",
		"french":   "Thanks\nLe mar. 3 mars 2026, John a écrit :\nquoted",
		"german":   "Thanks\nAm Di., 3. März 2026 um 10:00 schrieb John:\nquoted",
		"outlook":  "Thanks\n-----Original Message-----\nquoted",
		"fromsent": "Thanks\nFrom: John Sent: Tuesday\nquoted",
		"rule":     "Thanks\n\n________________\nquoted",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, "Thanks", StripQuoted(in))
		})
	}
}

func TestStripQuotedEndsBeforeFirstMarker(t *testing.T) {
	inputs := []string{
		"\n\nLine one\nLine two\n> old\nmore",
		"Answer\r\n\r\nOn Mon wrote:\r\n> x",
		"Only text",
		"> everything quoted",
		"a\n---\nrule without blank line\n\n===\nquoted",
	}
	for _, in := range inputs {
		out := StripQuoted(in)
		lines := strings.Split(normalizeNewlines(in), "\n")
		cut := len(lines)
		for i, l := range lines {
			if IsQuoteMarker(l, i > 0 && strings.TrimSpace(lines[i-1]) == "") {
				cut = i
				break
			}
		}
		head := strings.TrimSpace(strings.Join(lines[:cut], "\n"))
		assert.Equal(t, head, out, "input %q", in)
	}
}

func TestStripQuotedDropsLeadingBlankLines(t *testing.T) {
	assert.Equal(t, "Hello\n\nWorld", StripQuoted("\n \nHello\n\nWorld\n"))
}

func TestCleanReplyLowercaseAttribution(t *testing.T) {
	in := "Please rest\n\non Mon, Jan 2, 2006 at 3:04 PM Jane wrote:\nI have a fever"
	assert.Equal(t, "Please rest", CleanReply(in))
}

func TestTrimSignature(t *testing.T) {
	in := "Take two tablets daily.\nSent from my iPhone\n-- \nDr. Wilson\nEmergency"
	assert.Equal(t, "Take two tablets daily.", TrimSignature(in))
}

func TestHTMLToTextBreaks(t *testing.T) {
	got := HTMLToText("Line one<br>Line two<br><br>---<p>after</p>")
	assert.Equal(t, "Line one\nLine two\n\n---\nafter", got)
	assert.Equal(t, "Line one\nLine two", CleanReply(got))
}
