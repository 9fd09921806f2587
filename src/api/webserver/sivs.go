package webserver

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/notemoire/sociva/src/api/data"
	"github.com/notemoire/sociva/src/api/types"
	"github.com/notemoire/sociva/src/chain"
	"github.com/notemoire/sociva/src/codec"
	"github.com/notemoire/sociva/src/feed"
	"github.com/notemoire/sociva/src/publisher"
)

type Sivs struct {
	pub    *publisher.Publisher
	log    chain.Log
	ledger *feed.Ledger
	rdb    *redis.Client
}

func NewSivs(pub *publisher.Publisher, log chain.Log, ledger *feed.Ledger, rdb *redis.Client) Sivs {
	return Sivs{pub: pub, log: log, ledger: ledger, rdb: rdb}
}

func (s Sivs) Publish(c *gin.Context) {
	var req types.PublishSivRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	var att *publisher.Attachment
	if req.Attachment != "" {
		raw, err := base64.StdEncoding.DecodeString(req.Attachment)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"err": "attachment is not valid base64"})
			return
		}
		att = &publisher.Attachment{Data: raw, MimeType: req.AttachmentMime}
	}

	res, err := s.pub.PublishPost(c, c.GetString("addr"), req.Body, att)
	if err != nil {
		s.publishError(c, err)
		return
	}

	data.PublishFeedEvent(c, s.rdb, map[string]any{
		"kind":   "siv",
		"index":  res.Index,
		"author": c.GetString("addr"),
	})
	c.JSON(http.StatusCreated, res)
}

func (s Sivs) CreatePoll(c *gin.Context) {
	var req types.PublishPollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	res, err := s.pub.PublishPoll(c, c.GetString("addr"), req.Question, req.Options)
	if err != nil {
		s.publishError(c, err)
		return
	}

	data.PublishFeedEvent(c, s.rdb, map[string]any{
		"kind":   "poll",
		"index":  res.Index,
		"author": c.GetString("addr"),
	})
	c.JSON(http.StatusCreated, res)
}

// Delete soft-deletes and replies with the re-projected feed, so a caller
// sees the entry vanish without a second round trip.
func (s Sivs) Delete(c *gin.Context) {
	index, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": "bad index"})
		return
	}

	addr := c.GetString("addr")
	if err := s.pub.Delete(c, addr, index); err != nil {
		if errors.Is(err, publisher.ErrNotOwner) {
			c.JSON(http.StatusForbidden, gin.H{"err": "not your siv"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"err": err.Error()})
		return
	}

	data.PublishFeedEvent(c, s.rdb, map[string]any{
		"kind":  "delete",
		"index": index,
	})

	items, err := s.project(c, addr)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"feed": items})
}

func (s Sivs) Feed(c *gin.Context) {
	items, err := s.project(c, c.GetString("addr"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"feed": items})
}

// Vote records a session vote on a poll. The vote never reaches the log;
// it lives in the overlay until the process restarts.
func (s Sivs) Vote(c *gin.Context) {
	pollID := c.Param("id")
	var req types.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	addr := c.GetString("addr")
	items, err := s.project(c, addr)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"err": err.Error()})
		return
	}

	var poll *codec.Poll
	for _, it := range items {
		if it.IsPoll && it.Poll.ID == pollID {
			poll = it.Poll
			break
		}
	}
	if poll == nil {
		c.JSON(http.StatusNotFound, gin.H{"err": "poll not found"})
		return
	}

	valid := false
	for _, opt := range poll.Options {
		if opt == req.Option {
			valid = true
			break
		}
	}
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"err": "unknown option"})
		return
	}

	counted := s.ledger.Vote(addr, pollID, req.Option)
	c.JSON(http.StatusOK, gin.H{"counted": counted})
}

func (s Sivs) project(c *gin.Context, viewer string) ([]feed.Item, error) {
	entries, err := s.log.ReadAll(c)
	if err != nil {
		return nil, err
	}
	items := feed.Project(entries, viewer)
	s.ledger.Apply(items)
	return items, nil
}

// publishError maps pipeline failures onto the HTTP surface: local
// validation is the caller's fault, everything else names the stage that
// died so a resubmit is informed.
func (s Sivs) publishError(c *gin.Context, err error) {
	var verr *codec.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"err": verr.Error()})
		return
	}
	if errors.Is(err, publisher.ErrEmptyPost) {
		c.JSON(http.StatusBadRequest, gin.H{"err": "nothing to publish"})
		return
	}
	if errors.Is(err, publisher.ErrWrongNetwork) {
		c.JSON(http.StatusConflict, gin.H{"err": err.Error()})
		return
	}

	var serr *publisher.StageError
	if errors.As(err, &serr) {
		c.JSON(http.StatusBadGateway, gin.H{"err": serr.Error(), "stage": string(serr.Stage)})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
}
