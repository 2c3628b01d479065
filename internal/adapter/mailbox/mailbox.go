// Package mailbox reads candidate operator replies from an IMAP account.
package mailbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/rs/zerolog"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

const (
	inbox = "INBOX"
	// subjectMarker is searched so older marked threads are not missed.
	subjectMarker = "CONV-"
	recentWindow  = 24 * time.Hour
	wideWindow    = 7 * 24 * time.Hour
	// minRecent below which the sent folder search widens to wideWindow.
	minRecent = 5
)

// Candidate is one raw message fetched from the mailbox.
type Candidate struct {
	UID uint32
	Raw []byte
}

// Batch is the result of one collection pass.
type Batch struct {
	Folder string
	// FromSent is true when the candidates come from the sent folder, so
	// every one of them was written by the operator.
	FromSent   bool
	Candidates []Candidate
}

// Mailbox yields the candidates of one reply check, newest first.
type Mailbox interface {
	Collect(ctx context.Context, limit int) (*Batch, error)
}

// Config configures the IMAP connection.
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	SentFolder string
	Timeout    time.Duration
}

// IMAP implements Mailbox over an IMAPS connection. Folders are opened
// read-only.
type IMAP struct {
	cfg    Config
	logger zerolog.Logger
	now    func() time.Time
}

// NewIMAP creates an IMAP mailbox.
func NewIMAP(cfg Config, logger zerolog.Logger) *IMAP {
	return &IMAP{
		cfg:    cfg,
		logger: logger.With().Str("component", "mailbox").Logger(),
		now:    time.Now,
	}
}

// Collect implements Mailbox.
func (m *IMAP) Collect(ctx context.Context, limit int) (*Batch, error) {
	if m.cfg.Username == "" || m.cfg.Password == "" {
		return nil, domain.ErrMailDisabled
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	dialer := &net.Dialer{Timeout: m.cfg.Timeout}
	c, err := client.DialWithDialerTLS(dialer, addr, &tls.Config{ServerName: m.cfg.Host})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}
	c.Timeout = m.cfg.Timeout

	stop := context.AfterFunc(ctx, func() { _ = c.Terminate() })
	defer stop()
	defer func() { _ = c.Logout() }()

	if err := c.Login(m.cfg.Username, m.cfg.Password); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	folder, fromSent, uids, err := plan(c, m.cfg.SentFolder, m.now(), m.logger)
	if err != nil {
		return nil, err
	}
	uids = newest(uids, limit)

	batch := &Batch{Folder: folder, FromSent: fromSent}
	if len(uids) == 0 {
		return batch, nil
	}

	raws, err := fetch(c, uids, m.logger)
	if err != nil {
		return nil, err
	}
	for _, uid := range uids {
		if raw, ok := raws[uid]; ok {
			batch.Candidates = append(batch.Candidates, Candidate{UID: uid, Raw: raw})
		}
	}
	m.logger.Debug().Str("folder", folder).Int("candidates", len(batch.Candidates)).Msg("mailbox collected")
	return batch, nil
}

// searcher is the part of the IMAP client plan needs.
type searcher interface {
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	UidSearch(criteria *imap.SearchCriteria) ([]uint32, error)
}

// plan picks the folder and the candidate UIDs. The sent folder is
// preferred: recent mail (widened to a week when sparse) plus anything with
// a conversation marker in the subject. Without a sent folder the inbox is
// searched for marked mail, falling back to the last week.
func plan(c searcher, sentFolder string, now time.Time, logger zerolog.Logger) (string, bool, []uint32, error) {
	if sentFolder != "" {
		_, err := c.Select(sentFolder, true)
		if err == nil {
			uids, err := searchSent(c, now)
			if err != nil {
				return "", false, nil, err
			}
			return sentFolder, true, uids, nil
		}
		logger.Warn().Err(err).Str("folder", sentFolder).Msg("sent folder unavailable, using inbox")
	}

	if _, err := c.Select(inbox, true); err != nil {
		return "", false, nil, fmt.Errorf("select %s: %w", inbox, err)
	}
	uids, err := subject(c)
	if err != nil {
		return "", false, nil, err
	}
	if len(uids) == 0 {
		if uids, err = since(c, now.Add(-wideWindow)); err != nil {
			return "", false, nil, err
		}
	}
	return inbox, false, uids, nil
}

func searchSent(c searcher, now time.Time) ([]uint32, error) {
	uids, err := since(c, now.Add(-recentWindow))
	if err != nil {
		return nil, err
	}
	if len(uids) < minRecent {
		if uids, err = since(c, now.Add(-wideWindow)); err != nil {
			return nil, err
		}
	}
	marked, err := subject(c)
	if err != nil {
		return nil, err
	}
	return union(uids, marked), nil
}

func since(c searcher, t time.Time) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Since = t
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("search since %s: %w", t.Format(time.DateOnly), err)
	}
	return uids, nil
}

func subject(c searcher) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Header.Add("Subject", subjectMarker)
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("search subject: %w", err)
	}
	return uids, nil
}

func union(a, b []uint32) []uint32 {
	seen := make(map[uint32]bool, len(a)+len(b))
	out := make([]uint32, 0, len(a)+len(b))
	for _, list := range [][]uint32{a, b} {
		for _, uid := range list {
			if !seen[uid] {
				seen[uid] = true
				out = append(out, uid)
			}
		}
	}
	return out
}

// newest orders uids descending and keeps at most limit of them.
func newest(uids []uint32, limit int) []uint32 {
	out := append([]uint32(nil), uids...)
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func fetch(c *client.Client, uids []uint32, logger zerolog.Logger) (map[uint32][]byte, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchUid}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, messages)
	}()

	raws := readBodies(messages, section, logger)
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	return raws, nil
}

// readBodies drains fetched messages. A message whose body is missing or
// unreadable is logged and skipped.
func readBodies(messages <-chan *imap.Message, section *imap.BodySectionName, logger zerolog.Logger) map[uint32][]byte {
	raws := make(map[uint32][]byte)
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			logger.Warn().Uint32("uid", msg.Uid).Msg("fetched message has no body")
			continue
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			logger.Warn().Err(err).Uint32("uid", msg.Uid).Msg("failed to read message body")
			continue
		}
		raws[msg.Uid] = raw
	}
	return raws
}
