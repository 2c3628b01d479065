// Package conversation assembles flat message rows into threads and derives
// their display state. Nothing here is persisted: every caller recomputes
// from the rows it just read, so all views agree.
package conversation

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

// IDPrefix starts every conversation identifier.
const IDPrefix = "CONV-"

// singletonPrefix keys rows that have no conversation id.
const singletonPrefix = "single-"

// dedupePrefixLen is how many leading runes of a reply are compared when
// looking for an earlier copy of the same text.
const dedupePrefixLen = 30

var idPattern = regexp.MustCompile(`^CONV-[A-F0-9]{8}$`)

// NewID derives a conversation id from the sender and the current time.
// A random nonce keeps two ids minted in the same instant apart.
func NewID(name, email string, now time.Time) string {
	seed := fmt.Sprintf("%s-%s-%d-%s", name, email, now.UnixMilli(), uuid.NewString())
	sum := md5.Sum([]byte(seed))
	return IDPrefix + strings.ToUpper(hex.EncodeToString(sum[:])[:8])
}

// ValidID reports whether id has the canonical CONV-XXXXXXXX shape.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// Key returns the thread key of a message.
func Key(m domain.Message) string {
	if m.ConversationID != "" {
		return m.ConversationID
	}
	return singletonPrefix + strconv.FormatInt(m.ID, 10)
}

// SingletonRowID returns the message row id behind a singleton key.
func SingletonRowID(key string) (int64, bool) {
	rest, ok := strings.CutPrefix(key, singletonPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Thread returns a copy of msgs in chronological order, ties broken by row id.
func Thread(msgs []domain.Message) []domain.Message {
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// HasUnread reports whether any patient message is still unread.
func HasUnread(msgs []domain.Message) bool {
	return UnreadCount(msgs) > 0
}

// UnreadCount counts unread patient messages.
func UnreadCount(msgs []domain.Message) int {
	n := 0
	for _, m := range msgs {
		if m.SenderType == domain.SenderPatient && m.Status == domain.MessageStatusUnread {
			n++
		}
	}
	return n
}

// HasReplied reports whether the thread contains a doctor message.
func HasReplied(msgs []domain.Message) bool {
	for _, m := range msgs {
		if m.SenderType == domain.SenderDoctor {
			return true
		}
	}
	return false
}

// HasPatientMessage reports whether the thread contains a patient message.
func HasPatientMessage(msgs []domain.Message) bool {
	for _, m := range msgs {
		if m.SenderType == domain.SenderPatient {
			return true
		}
	}
	return false
}

// State maps the derived flags to a display state.
func State(hasUnread, hasReplied bool) domain.ConversationState {
	switch {
	case hasReplied:
		return domain.ConversationStateReplied
	case hasUnread:
		return domain.ConversationStateNew
	default:
		return domain.ConversationStateRead
	}
}

// Latest returns the most recent message, ties broken by the larger row id.
func Latest(msgs []domain.Message) (domain.Message, bool) {
	if len(msgs) == 0 {
		return domain.Message{}, false
	}
	latest := msgs[0]
	for _, m := range msgs[1:] {
		if m.CreatedAt.After(latest.CreatedAt) || (m.CreatedAt.Equal(latest.CreatedAt) && m.ID > latest.ID) {
			latest = m
		}
	}
	return latest, true
}

// Build assembles the view of a single conversation.
func Build(id string, msgs []domain.Message) domain.Conversation {
	thread := Thread(msgs)
	unread := UnreadCount(thread)
	replied := HasReplied(thread)
	return domain.Conversation{
		ConversationID: id,
		Messages:       thread,
		HasUnread:      unread > 0,
		HasReplied:     replied,
		UnreadCount:    unread,
		State:          State(unread > 0, replied),
	}
}

// Summarize groups msgs into conversations. Threads with unread patient
// messages come first; within each group the most recently active thread
// comes first.
func Summarize(msgs []domain.Message) []domain.ConversationSummary {
	groups := make(map[string][]domain.Message)
	var order []string
	for _, m := range msgs {
		k := Key(m)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], m)
	}

	summaries := make([]domain.ConversationSummary, 0, len(order))
	for _, k := range order {
		summaries = append(summaries, summarize(k, groups[k]))
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if a.HasUnread != b.HasUnread {
			return a.HasUnread
		}
		if !a.LastMessageAt.Equal(b.LastMessageAt) {
			return a.LastMessageAt.After(b.LastMessageAt)
		}
		return a.ConversationID < b.ConversationID
	})
	return summaries
}

func summarize(key string, msgs []domain.Message) domain.ConversationSummary {
	thread := Thread(msgs)
	unread := UnreadCount(thread)
	replied := HasReplied(thread)
	last, _ := Latest(thread)

	owner := thread[0]
	for _, m := range thread {
		if m.SenderType == domain.SenderPatient {
			owner = m
			break
		}
	}

	return domain.ConversationSummary{
		ConversationID: key,
		PatientName:    owner.Name,
		PatientEmail:   owner.Email,
		MessageCount:   len(thread),
		UnreadCount:    unread,
		HasUnread:      unread > 0,
		HasReplied:     replied,
		State:          State(unread > 0, replied),
		LastMessage:    last,
		LastMessageAt:  last.CreatedAt,
	}
}

// IsDuplicateReply reports whether text is already present as a doctor
// message: either verbatim, or as a message starting with the same first
// 30 runes.
func IsDuplicateReply(msgs []domain.Message, text string) bool {
	prefix := runePrefix(text, dedupePrefixLen)
	for _, m := range msgs {
		if m.SenderType != domain.SenderDoctor {
			continue
		}
		if m.Text == text || strings.HasPrefix(m.Text, prefix) {
			return true
		}
	}
	return false
}

func runePrefix(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
