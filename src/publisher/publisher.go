// Package publisher sequences a publish action: attachment upload, payload
// encode, content-addressed upload, on-chain commit. The log is the source
// of truth; the orchestrator deliberately does not retry or deduplicate, so
// a double submit yields two individually valid entries.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/notemoire/sociva/src/chain"
	"github.com/notemoire/sociva/src/codec"
	"github.com/notemoire/sociva/src/ipfs"
)

// Stage names the steps of a publish action, in order.
type Stage string

const (
	StageIdle                Stage = "idle"
	StageUploadingAttachment Stage = "uploading_attachment"
	StageEncodingPayload     Stage = "encoding_payload"
	StageUploadingToStore    Stage = "uploading_to_store"
	StageCommittingToLog     Stage = "committing_to_log"
	StageSettled             Stage = "settled"
)

var (
	// ErrEmptyPost rejects a publish with neither text nor attachment.
	ErrEmptyPost = errors.New("nothing to publish")
	// ErrWrongNetwork rejects any write while the gateway is on the wrong
	// chain. Nothing is uploaded and nothing is appended.
	ErrWrongNetwork = errors.New("wrong network")
	// ErrNotOwner rejects deleting someone else's entry.
	ErrNotOwner = errors.New("entry not owned by caller")
)

// StageError reports which stage a failed publish action died in. Store
// failures never appear here: they degrade instead of failing.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("publish failed at %s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// ContentStore is the content-addressed store surface the orchestrator
// consumes. Upload is infallible by contract; degradation is in the result.
type ContentStore interface {
	Upload(ctx context.Context, payload []byte, name string) ipfs.UploadResult
}

// BlobStore hosts binary attachments outside the content-addressed store.
type BlobStore interface {
	Upload(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Attachment is an optional binary file published alongside the text.
type Attachment struct {
	Data     []byte
	MimeType string
}

// Result is a settled successful publish. Degraded marks a placeholder CID
// written after a store failure; the log entry itself is authoritative.
type Result struct {
	Index         uint64 `json:"index"`
	CID           string `json:"cid"`
	Degraded      bool   `json:"degraded"`
	AttachmentURL string `json:"attachmentUrl,omitempty"`
}

// Publisher orchestrates publish actions against injected collaborators.
type Publisher struct {
	log     chain.Log
	store   ContentStore
	blobs   BlobStore
	chainID string

	// Observer, when set, sees every stage transition. Used by tests and
	// by callers that surface progress.
	Observer func(Stage)
}

func New(l chain.Log, store ContentStore, blobs BlobStore, chainID string) *Publisher {
	return &Publisher{log: l, store: store, blobs: blobs, chainID: chainID}
}

// PublishPost publishes a plain text post with an optional attachment. The
// attachment URL is folded into the canonical payload text, so it survives
// in the log even if the content-addressed copy degrades.
func (p *Publisher) PublishPost(ctx context.Context, author, body string, att *Attachment) (Result, error) {
	p.transition(StageIdle)
	if strings.TrimSpace(body) == "" && att == nil {
		return Result{}, &StageError{Stage: StageIdle, Err: ErrEmptyPost}
	}
	if err := p.guardNetwork(ctx); err != nil {
		return Result{}, err
	}

	var attachmentURL string
	if att != nil {
		p.transition(StageUploadingAttachment)
		url, err := p.blobs.Upload(ctx, att.Data, att.MimeType)
		if err != nil {
			return Result{}, &StageError{Stage: StageUploadingAttachment, Err: err}
		}
		attachmentURL = url
	}

	p.transition(StageEncodingPayload)
	text := body
	if attachmentURL != "" {
		text = body + "\n📎 " + attachmentURL
	}
	payload := codec.EncodePost(text)

	res, err := p.commit(ctx, author, payload)
	if err != nil {
		return Result{}, err
	}
	res.AttachmentURL = attachmentURL
	return res, nil
}

// PublishPoll validates and publishes a structured poll.
func (p *Publisher) PublishPoll(ctx context.Context, author, question string, options []string) (Result, error) {
	p.transition(StageIdle)
	payload, err := codec.EncodePoll(question, options)
	if err != nil {
		return Result{}, err
	}
	if err := p.guardNetwork(ctx); err != nil {
		return Result{}, err
	}

	p.transition(StageEncodingPayload)
	return p.commit(ctx, author, payload)
}

// Delete soft-deletes the caller's own entry. The caller re-projects the
// feed afterwards; the entry stays in the log forever.
func (p *Publisher) Delete(ctx context.Context, caller string, index uint64) error {
	if err := p.guardNetwork(ctx); err != nil {
		return err
	}

	entries, err := p.log.ReadAll(ctx)
	if err != nil {
		return &StageError{Stage: StageCommittingToLog, Err: err}
	}
	var found *chain.Entry
	for i := range entries {
		if entries[i].Index == index {
			found = &entries[i]
			break
		}
	}
	if found == nil {
		return &StageError{Stage: StageCommittingToLog, Err: fmt.Errorf("no entry %d", index)}
	}
	if !strings.EqualFold(found.Author, caller) {
		return &StageError{Stage: StageCommittingToLog, Err: ErrNotOwner}
	}

	if err := p.log.MarkDeleted(ctx, index); err != nil {
		return &StageError{Stage: StageCommittingToLog, Err: err}
	}
	return nil
}

// commit runs the two store-then-log phases shared by posts and polls. The
// content-addressed upload cannot fail, only degrade; the log append is the
// authoritative write and blocks until durable.
func (p *Publisher) commit(ctx context.Context, author, payload string) (Result, error) {
	p.transition(StageUploadingToStore)
	name := fmt.Sprintf("siv-%d.txt", time.Now().UnixNano())
	up := p.store.Upload(ctx, []byte(payload), name)
	if up.Degraded {
		log.Printf("publisher: store degraded, committing %s with placeholder cid", name)
	}

	p.transition(StageCommittingToLog)
	index, err := p.log.Append(ctx, author, payload, up.CID)
	if err != nil {
		return Result{}, &StageError{Stage: StageCommittingToLog, Err: err}
	}

	p.transition(StageSettled)
	return Result{Index: index, CID: up.CID, Degraded: up.Degraded}, nil
}

func (p *Publisher) guardNetwork(ctx context.Context) error {
	id, err := p.log.ChainID(ctx)
	if err != nil {
		return &StageError{Stage: StageCommittingToLog, Err: err}
	}
	if !strings.EqualFold(id, p.chainID) {
		return &StageError{Stage: StageCommittingToLog, Err: fmt.Errorf("%w: log on %s, expected %s", ErrWrongNetwork, id, p.chainID)}
	}
	return nil
}

func (p *Publisher) transition(s Stage) {
	if p.Observer != nil {
		p.Observer(s)
	}
}
