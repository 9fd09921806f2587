package webserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/notemoire/sociva/src/chain"
	"github.com/notemoire/sociva/src/feed"
	"github.com/notemoire/sociva/src/ipfs"
	"github.com/notemoire/sociva/src/publisher"
)

const (
	testChain  = "0xaa36a7"
	testSecret = "test-secret"
)

type stubStore struct{}

func (stubStore) Upload(ctx context.Context, payload []byte, name string) ipfs.UploadResult {
	return ipfs.UploadResult{CID: "bafytest"}
}

type stubBlobs struct{}

func (stubBlobs) Upload(ctx context.Context, data []byte, mimeType string) (string, error) {
	return "https://cdn/attachment", nil
}

// testRig wires the secured routes over a memlog, with redis pointed
// nowhere: feed events degrade to log lines.
func testRig(t *testing.T) (*gin.Engine, *chain.MemLog) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	memlog := chain.NewMemLog(testChain)
	pub := publisher.New(memlog, stubStore{}, stubBlobs{}, testChain)
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 10 * time.Millisecond})
	sivsH := NewSivs(pub, memlog, feed.NewLedger(), rdb)

	r := gin.New()
	secured := r.Group("/v1")
	secured.Use(JWTMiddleware([]byte(testSecret)))
	secured.GET("/feed", sivsH.Feed)
	secured.POST("/sivs", sivsH.Publish)
	secured.POST("/polls", sivsH.CreatePoll)
	secured.POST("/polls/:id/vote", sivsH.Vote)
	secured.DELETE("/sivs/:id", sivsH.Delete)
	return r, memlog
}

func doJSON(t *testing.T, r *gin.Engine, method, path, addr string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if addr != "" {
		tok, err := issueJWT(addr, []byte(testSecret))
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPublishAndFeed(t *testing.T) {
	r, _ := testRig(t)

	w := doJSON(t, r, http.MethodPost, "/v1/sivs", "0xABC", map[string]string{"body": "hello chain"})
	if w.Code != http.StatusCreated {
		t.Fatalf("publish status = %d, body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/v1/feed", "0xabc", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("feed status = %d", w.Code)
	}
	var resp struct {
		Feed []feed.Item `json:"feed"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Feed) != 1 {
		t.Fatalf("feed = %+v", resp.Feed)
	}
	it := resp.Feed[0]
	if it.DisplayText != "hello chain" || !it.OwnedByViewer {
		t.Errorf("item = %+v", it)
	}
	if it.CID != "bafytest" {
		t.Errorf("cid = %q", it.CID)
	}
}

func TestPublishRequiresAuth(t *testing.T) {
	r, _ := testRig(t)
	w := doJSON(t, r, http.MethodPost, "/v1/sivs", "", map[string]string{"body": "hi"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestPublishEmptyRejected(t *testing.T) {
	r, memlog := testRig(t)
	w := doJSON(t, r, http.MethodPost, "/v1/sivs", "0xABC", map[string]string{"body": "   "})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	entries, _ := memlog.ReadAll(context.Background())
	if len(entries) != 0 {
		t.Error("empty publish reached the log")
	}
}

func TestCreatePollValidation(t *testing.T) {
	r, _ := testRig(t)
	w := doJSON(t, r, http.MethodPost, "/v1/polls", "0xABC", map[string]any{
		"question": "q", "options": []string{"only"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestPollVoteFlow(t *testing.T) {
	r, _ := testRig(t)

	w := doJSON(t, r, http.MethodPost, "/v1/polls", "0xABC", map[string]any{
		"question": "Tea or coffee?", "options": []string{"tea", "coffee"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create poll: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/v1/feed", "0xDEF", nil)
	var resp struct {
		Feed []feed.Item `json:"feed"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Feed) != 1 || !resp.Feed[0].IsPoll {
		t.Fatalf("feed = %+v", resp.Feed)
	}
	pollID := resp.Feed[0].Poll.ID

	vote := func(addr, option string) map[string]bool {
		w := doJSON(t, r, http.MethodPost, "/v1/polls/"+pollID+"/vote", addr, map[string]string{"option": option})
		if w.Code != http.StatusOK {
			t.Fatalf("vote status = %d, body %s", w.Code, w.Body.String())
		}
		var out map[string]bool
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatal(err)
		}
		return out
	}

	if out := vote("0xDEF", "tea"); !out["counted"] {
		t.Error("first vote not counted")
	}
	if out := vote("0xDEF", "tea"); out["counted"] {
		t.Error("repeat vote counted")
	}

	w = doJSON(t, r, http.MethodGet, "/v1/feed", "0xDEF", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if got := resp.Feed[0].Poll.Votes["tea"]; got != 1 {
		t.Errorf("overlay vote count = %d, want 1", got)
	}

	// Unknown option and unknown poll
	w = doJSON(t, r, http.MethodPost, "/v1/polls/"+pollID+"/vote", "0xDEF", map[string]string{"option": "beer"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown option status = %d", w.Code)
	}
	w = doJSON(t, r, http.MethodPost, "/v1/polls/nope/vote", "0xDEF", map[string]string{"option": "tea"})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown poll status = %d", w.Code)
	}
}

func TestDeleteFlow(t *testing.T) {
	r, memlog := testRig(t)

	doJSON(t, r, http.MethodPost, "/v1/sivs", "0xABC", map[string]string{"body": "to delete"})

	// Someone else cannot delete it.
	w := doJSON(t, r, http.MethodDelete, "/v1/sivs/0", "0xDEF", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("foreign delete status = %d", w.Code)
	}

	// Owner deletes, response carries the re-projected feed.
	w = doJSON(t, r, http.MethodDelete, "/v1/sivs/0", "0xabc", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Feed []feed.Item `json:"feed"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Feed) != 0 {
		t.Errorf("deleted entry still in feed: %+v", resp.Feed)
	}

	entries, _ := memlog.ReadAll(context.Background())
	if len(entries) != 1 || !entries[0].Deleted {
		t.Errorf("entry not soft-deleted: %+v", entries)
	}
}

func TestPublishWithAttachment(t *testing.T) {
	r, memlog := testRig(t)

	w := doJSON(t, r, http.MethodPost, "/v1/sivs", "0xABC", map[string]string{
		"body":           "look",
		"attachment":     "aGVsbG8=", // "hello"
		"attachmentMime": "application/pdf",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	entries, _ := memlog.ReadAll(context.Background())
	if entries[0].Text != "look\n📎 https://cdn/attachment" {
		t.Errorf("payload = %q", entries[0].Text)
	}
}

func TestPublishBadBase64(t *testing.T) {
	r, _ := testRig(t)
	w := doJSON(t, r, http.MethodPost, "/v1/sivs", "0xABC", map[string]string{
		"body":       "x",
		"attachment": "!!!not-base64!!!",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}
