package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// ---------- tiny JSON-RPC helpers ----------

type rpcReq struct {
	Jsonrpc string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResp struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// Bridge talks JSON-RPC over websocket to the chain gateway that owns the
// wallet and the siv contract. One request is in flight at a time; the
// connection is re-dialed on the next call after any failure.
type Bridge struct {
	url string

	mu     sync.Mutex
	conn   *websocket.Conn
	nextID uint64
}

func NewBridge(url string) *Bridge {
	return &Bridge{url: url}
}

func (b *Bridge) ChainID(ctx context.Context) (string, error) {
	var out string
	if err := b.call(ctx, "siv_chainId", nil, &out); err != nil {
		return "", err
	}
	return out, nil
}

// Append commits one entry. The gateway replies only after the transaction
// is mined, which is what gives the orchestrator its read-back guarantee.
func (b *Bridge) Append(ctx context.Context, author, text, cid string) (uint64, error) {
	var out struct {
		Index uint64 `json:"index"`
	}
	if err := b.call(ctx, "siv_append", []interface{}{author, text, cid}, &out); err != nil {
		return 0, err
	}
	return out.Index, nil
}

func (b *Bridge) MarkDeleted(ctx context.Context, index uint64) error {
	return b.call(ctx, "siv_markDeleted", []interface{}{index}, nil)
}

func (b *Bridge) ReadAll(ctx context.Context) ([]Entry, error) {
	var out []Entry
	if err := b.call(ctx, "siv_getAll", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Close drops the gateway connection. Safe to call at any time.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	return err
}

func (b *Bridge) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, b.url, nil)
		if err != nil {
			return fmt.Errorf("dial gateway: %w", err)
		}
		b.conn = conn
	}

	b.nextID++
	id := b.nextID
	if deadline, ok := ctx.Deadline(); ok {
		_ = b.conn.SetReadDeadline(deadline)
		_ = b.conn.SetWriteDeadline(deadline)
	}

	if err := b.conn.WriteJSON(rpcReq{Jsonrpc: "2.0", ID: id, Method: method, Params: params}); err != nil {
		b.drop()
		return fmt.Errorf("%s: %w", method, err)
	}

	for {
		var resp rpcResp
		if err := b.conn.ReadJSON(&resp); err != nil {
			b.drop()
			return fmt.Errorf("%s: %w", method, err)
		}
		if resp.ID != id {
			// stale reply from a timed-out call
			continue
		}
		if resp.Error != nil {
			return fmt.Errorf("%s: gateway error %d: %s", method, resp.Error.Code, resp.Error.Message)
		}
		if result == nil {
			return nil
		}
		return json.Unmarshal(resp.Result, result)
	}
}

func (b *Bridge) drop() {
	if b.conn != nil {
		_ = b.conn.Close()
		b.conn = nil
	}
}
