package mailtext

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	quoteOnWrote    = regexp.MustCompile(`(?i)^on .*(wrote|écrit)\s*:`)
	quoteFrench     = regexp.MustCompile(`\bLe .*a écrit`)
	quoteGerman     = regexp.MustCompile(`\bAm .*schrieb`)
	quoteOutlook    = regexp.MustCompile(`(?i)From:.*Sent:`)
	quoteRule       = regexp.MustCompile(`^[-_=]{3,}`)
	sentFromLine    = regexp.MustCompile(`(?i)^\s*sent from\b`)
	originalMessage = "-----Original Message-----"
)

// IsQuoteMarker reports whether line starts the quoted part of a reply.
// prevBlank tells whether the preceding line was empty.
func IsQuoteMarker(line string, prevBlank bool) bool {
	t := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(t, ">"), strings.HasPrefix(t, "&gt;"):
		return true
	case strings.Contains(t, originalMessage):
		return true
	case quoteOnWrote.MatchString(t), quoteFrench.MatchString(t), quoteGerman.MatchString(t):
		return true
	case quoteOutlook.MatchString(t):
		return true
	case prevBlank && quoteRule.MatchString(t):
		return true
	}
	return false
}

// StripQuoted keeps the lines before the first quote marker and drops
// leading blank lines.
func StripQuoted(text string) string {
	lines := strings.Split(normalizeNewlines(text), "\n")
	var kept []string
	for i, line := range lines {
		prevBlank := i > 0 && strings.TrimSpace(lines[i-1]) == ""
		if IsQuoteMarker(line, prevBlank) {
			break
		}
		if len(kept) == 0 && strings.TrimSpace(line) == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// TrimSignature drops everything from a "-- " delimiter line onward and
// removes "Sent from ..." lines.
func TrimSignature(text string) string {
	lines := strings.Split(normalizeNewlines(text), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimRight(line, " \t") == "--" {
			break
		}
		if sentFromLine.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// Reply returns the operator's own words from m: plain text when present,
// otherwise the HTML part rendered as text, with quotes and signature cut.
func (m *Mail) Reply() string {
	text := m.Text
	if strings.TrimSpace(text) == "" && m.HTML != "" {
		text = HTMLToText(m.HTML)
	}
	return CleanReply(text)
}

// CleanReply strips quoted history and signature from text.
func CleanReply(text string) string {
	return TrimSignature(StripQuoted(text))
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Li: true, atom.Tr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Blockquote: true, atom.Hr: true, atom.Table: true, atom.Ul: true, atom.Ol: true,
}

// HTMLToText renders markup as plain text, one line per block element.
// Quoted blocks keep a leading "> " so StripQuoted still sees them.
func HTMLToText(markup string) string {
	z := html.NewTokenizer(strings.NewReader(markup))
	var b strings.Builder
	skip := 0
	quote := 0
	lineStart := true

	newline := func() {
		if !lineStart {
			b.WriteString("\n")
			lineStart = true
		}
	}

	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(collapseBlankLines(b.String()))
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			switch {
			case a == atom.Script || a == atom.Style || a == atom.Head:
				skip++
			case a == atom.Blockquote:
				newline()
				quote++
			case blockElements[a]:
				newline()
			}
			if a == atom.Br {
				b.WriteString("\n")
				lineStart = true
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			switch {
			case a == atom.Script || a == atom.Style || a == atom.Head:
				if skip > 0 {
					skip--
				}
			case a == atom.Blockquote:
				if quote > 0 {
					quote--
				}
				newline()
			case blockElements[a]:
				newline()
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			text := strings.Join(strings.Fields(strings.ReplaceAll(string(z.Text()), "\u00a0", " ")), " ")
			if text == "" {
				continue
			}
			if lineStart && quote > 0 {
				b.WriteString(strings.Repeat("> ", quote))
			} else if !lineStart {
				b.WriteString(" ")
			}
			b.WriteString(text)
			lineStart = false
		}
	}
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\r", "\n")
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	blank := 0
	for _, l := range lines {
		l = strings.TrimRight(l, " ")
		if l == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}
