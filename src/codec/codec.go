// Package codec converts user-authored posts to and from the canonical
// payload string committed to the siv log. Plain text is stored verbatim;
// polls are stored as a JSON object carrying a "type":"poll" discriminator
// so they can be recognised at read time without external metadata.
package codec

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/OneOfOne/xxhash"
	"github.com/google/uuid"
)

// pollTag is the discriminator value. It is the only signal separating a
// poll payload from an ordinary post that happens to contain JSON.
const pollTag = "poll"

// Poll is a structured poll post.
type Poll struct {
	ID         string         `json:"id"`
	Question   string         `json:"question"`
	Options    []string       `json:"options"`
	Votes      map[string]int `json:"votes"`
	SourceText string         `json:"sourceText"`
	Deleted    bool           `json:"deleted"`
}

// Payload is the decoded form of a log entry's raw text. Poll is nil for
// plain text, in which case Body holds the raw string unchanged.
type Payload struct {
	Body string
	Poll *Poll
}

// IsPoll reports whether the payload decoded as a poll.
func (p Payload) IsPoll() bool { return p.Poll != nil }

// ValidationError reports a locally rejected poll before any network call.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid poll: " + e.Reason }

// EncodePost returns the canonical payload for a plain text post, which is
// the body itself.
func EncodePost(body string) string { return body }

// EncodePoll builds the canonical JSON payload for a new poll. Options are
// trimmed and blank ones dropped; at least two must remain. The generated id
// mixes wall-clock time with a random suffix; collisions are treated as
// astronomically unlikely rather than guarded against.
func EncodePoll(question string, options []string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", &ValidationError{Reason: "empty question"}
	}

	kept := make([]string, 0, len(options))
	for _, opt := range options {
		if opt = strings.TrimSpace(opt); opt != "" {
			kept = append(kept, opt)
		}
	}
	if len(kept) < 2 {
		return "", &ValidationError{Reason: "need at least 2 options"}
	}

	p := wirePoll{
		Type:       pollTag,
		ID:         newPollID(),
		Question:   question,
		Options:    kept,
		Votes:      map[string]int{},
		SourceText: "Poll: " + question,
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode poll: %w", err)
	}
	return string(raw), nil
}

// Decode turns a log entry's raw text back into a payload. It is total: any
// parse failure, or a parsed object without the poll discriminator, yields a
// plain text payload carrying the raw string. index is the entry's log index
// and seeds the synthesized id for legacy polls written before ids existed,
// so repeated decodes of the same entry agree across reloads.
func Decode(index uint64, raw string) Payload {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return Payload{Body: raw}
	}

	var w wirePoll
	if err := json.Unmarshal([]byte(trimmed), &w); err != nil || w.Type != pollTag {
		return Payload{Body: raw}
	}

	p := &Poll{
		ID:         w.ID,
		Question:   w.Question,
		Options:    w.Options,
		Votes:      w.Votes,
		SourceText: w.SourceText,
		Deleted:    w.Deleted || w.IsDeleted,
	}
	if p.Votes == nil {
		p.Votes = map[string]int{}
	}
	if p.Options == nil {
		p.Options = []string{}
	}
	if p.SourceText == "" {
		p.SourceText = w.SivText
	}
	if p.ID == "" {
		p.ID = legacyPollID(index, trimmed)
	}
	return Payload{Body: p.SourceText, Poll: p}
}

// EncodePollPayload re-serialises a decoded poll, preserving its id. Used
// when a repaired poll needs to round-trip through the canonical format.
func EncodePollPayload(p *Poll) (string, error) {
	raw, err := json.Marshal(wirePoll{
		Type:       pollTag,
		ID:         p.ID,
		Question:   p.Question,
		Options:    p.Options,
		Votes:      p.Votes,
		SourceText: p.SourceText,
		Deleted:    p.Deleted,
	})
	if err != nil {
		return "", fmt.Errorf("encode poll: %w", err)
	}
	return string(raw), nil
}

// wirePoll is the on-log JSON shape. Early payloads used sivText/isDeleted;
// both spellings are accepted on decode and only the canonical ones emitted.
type wirePoll struct {
	Type       string         `json:"type"`
	ID         string         `json:"id,omitempty"`
	Question   string         `json:"question"`
	Options    []string       `json:"options"`
	Votes      map[string]int `json:"votes"`
	SourceText string         `json:"sourceText,omitempty"`
	SivText    string         `json:"sivText,omitempty"`
	Deleted    bool           `json:"deleted,omitempty"`
	IsDeleted  bool           `json:"isDeleted,omitempty"`
}

func newPollID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("poll_%d_%s", time.Now().UnixMilli(), suffix)
}

// legacyPollID derives a stable id for polls that predate the id field. The
// log index alone would collide across redeployed logs, so the raw payload
// is hashed in as well.
func legacyPollID(index uint64, raw string) string {
	return fmt.Sprintf("poll_%d_%x", index, xxhash.Checksum64([]byte(raw)))
}
