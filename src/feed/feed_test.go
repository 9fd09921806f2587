package feed

import (
	"testing"

	"github.com/notemoire/sociva/src/chain"
	"github.com/notemoire/sociva/src/codec"
)

func entry(idx uint64, author, text string) chain.Entry {
	return chain.Entry{Index: idx, Author: author, Text: text}
}

func TestProjectReversesLogOrder(t *testing.T) {
	entries := []chain.Entry{
		entry(0, "0xA", "first"),
		entry(1, "0xA", "second"),
		entry(2, "0xA", "third"),
	}
	items := Project(entries, "0xA")
	if len(items) != 3 {
		t.Fatalf("len = %d", len(items))
	}
	want := []string{"third", "second", "first"}
	for i, w := range want {
		if items[i].DisplayText != w {
			t.Errorf("items[%d] = %q, want %q", i, items[i].DisplayText, w)
		}
	}
}

func TestProjectSkipsDeleted(t *testing.T) {
	entries := []chain.Entry{
		entry(0, "0xA", "keep"),
		{Index: 1, Author: "0xA", Text: "gone", Deleted: true},
		entry(2, "0xA", "keep too"),
	}
	items := Project(entries, "0xA")
	if len(items) != 2 {
		t.Fatalf("len = %d", len(items))
	}
	for _, it := range items {
		if it.Index == 1 {
			t.Error("deleted entry projected")
		}
	}
}

func TestProjectOwnership(t *testing.T) {
	entries := []chain.Entry{
		entry(0, "0xABCDEF", "mine"),
		entry(1, "0x123456", "theirs"),
	}
	items := Project(entries, "0xabcdef")
	// reverse order: items[0] is entry 1
	if items[0].OwnedByViewer {
		t.Error("foreign entry marked owned")
	}
	if !items[1].OwnedByViewer {
		t.Error("case-insensitive ownership not detected")
	}
	if len(items) != 2 {
		t.Error("ownership must never filter content")
	}
}

func TestProjectMalformedPayload(t *testing.T) {
	entries := []chain.Entry{
		entry(0, "0xA", "{not json"),
		entry(1, "0xA", "fine"),
	}
	items := Project(entries, "0xA")
	if len(items) != 2 {
		t.Fatalf("malformed entry disturbed projection, len = %d", len(items))
	}
	bad := items[1]
	if bad.IsPoll {
		t.Error("malformed payload classified as poll")
	}
	if bad.DisplayText != "{not json" {
		t.Errorf("displayText = %q", bad.DisplayText)
	}
}

func TestProjectPollEntry(t *testing.T) {
	raw, err := codec.EncodePoll("Tea or coffee?", []string{"tea", "coffee"})
	if err != nil {
		t.Fatal(err)
	}
	entries := []chain.Entry{{Index: 0, Author: "0xA", Text: raw, CID: "bafy1"}}

	items := Project(entries, "0xB")
	if len(items) != 1 {
		t.Fatalf("len = %d", len(items))
	}
	it := items[0]
	if !it.IsPoll || it.Poll == nil {
		t.Fatal("poll entry not classified as poll")
	}
	if it.Poll.Question != "Tea or coffee?" {
		t.Errorf("question = %q", it.Poll.Question)
	}
	if it.CID != "bafy1" {
		t.Errorf("cid = %q", it.CID)
	}
}

func TestProjectSanitizesMarkup(t *testing.T) {
	entries := []chain.Entry{entry(0, "0xA", `<script>alert(1)</script>hi`)}
	items := Project(entries, "0xA")
	if got := items[0].DisplayText; got != "hi" {
		t.Errorf("displayText = %q", got)
	}
}

func TestLedgerVoteOncePerPoll(t *testing.T) {
	l := NewLedger()

	if !l.Vote("0xA", "poll_1", "A") {
		t.Fatal("first vote rejected")
	}
	if l.Vote("0xA", "poll_1", "A") {
		t.Error("repeat vote counted")
	}
	if l.Vote("0xA", "poll_1", "B") {
		t.Error("vote on another option after voting counted")
	}
	if !l.Vote("0xB", "poll_1", "B") {
		t.Error("different viewer blocked")
	}
	if !l.Vote("0xA", "poll_2", "A") {
		t.Error("different poll blocked")
	}

	if opt, ok := l.Voted("0xA", "poll_1"); !ok || opt != "A" {
		t.Errorf("Voted = %q, %v", opt, ok)
	}
}

func TestLedgerApplyOverlay(t *testing.T) {
	raw, err := codec.EncodePoll("q", []string{"A", "B"})
	if err != nil {
		t.Fatal(err)
	}
	entries := []chain.Entry{entry(0, "0xA", raw)}

	l := NewLedger()
	pollID := Project(entries, "0xA")[0].Poll.ID

	l.Vote("0xA", pollID, "A")
	l.Vote("0xA", pollID, "A") // no-op

	items := Project(entries, "0xA")
	l.Apply(items)
	if got := items[0].Poll.Votes["A"]; got != 1 {
		t.Errorf("overlay count = %d, want 1", got)
	}
	if got := items[0].Poll.Votes["B"]; got != 0 {
		t.Errorf("untouched option count = %d", got)
	}

	// A fresh projection without Apply sees no overlay: the ledger never
	// leaks into the log.
	clean := Project(entries, "0xA")
	if got := clean[0].Poll.Votes["A"]; got != 0 {
		t.Errorf("overlay leaked into projection: %d", got)
	}
}
