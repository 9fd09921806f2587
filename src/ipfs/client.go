// Package ipfs uploads canonical payloads to the content-addressed store.
// The store is an optional durability layer: losing it must never block the
// on-chain commit, so every failure here degrades to a locally synthesized
// placeholder identifier instead of an error.
package ipfs

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/OneOfOne/xxhash"
	"github.com/notemoire/sociva/src/webclient"
)

const defaultTimeout = 30 * time.Second

// placeholderPrefix marks a CID synthesized locally after a store failure.
// Real CIDs issued by the store never start with it followed by 32 hex chars
// of our own hashing, and callers additionally get the Degraded flag.
const placeholderPrefix = "bafkreih"

// Config describes the store endpoint and the credentials used to open the
// upload session.
type Config struct {
	Endpoint string // e.g. https://up.notemoire.io
	Email    string
	Space    string // DID of the space uploads land in
	Gateway  string // public gateway host, e.g. ipfs.io
}

// UploadResult is the outcome of an upload. Degraded is set when the store
// was unreachable and CID is a placeholder rather than a store-issued
// identifier; the caller proceeds either way.
type UploadResult struct {
	CID      string
	Degraded bool
}

// Client talks to the content-addressed store. The authenticated session is
// opened once per process and shared by all callers; concurrent first
// uploads wait on the same login instead of racing duplicates.
type Client struct {
	cfg        Config
	httpClient *http.Client

	loginOnce sync.Once
	token     string
	loginErr  error
}

func NewClient(cfg Config) *Client {
	if cfg.Gateway == "" {
		cfg.Gateway = "ipfs.io"
	}
	return &Client{
		cfg:        cfg,
		httpClient: webclient.NewDefault(defaultTimeout),
	}
}

// Upload stores payload under name and returns its content identifier. It
// never fails: any store-side problem (login, network, bad response) is
// absorbed and a deterministic placeholder returned with Degraded set.
func (c *Client) Upload(ctx context.Context, payload []byte, name string) UploadResult {
	cid, err := c.upload(ctx, payload, name)
	if err != nil {
		log.Printf("ipfs: upload of %q degraded: %v", name, err)
		return UploadResult{CID: Placeholder(payload), Degraded: true}
	}
	return UploadResult{CID: cid}
}

// GatewayURL returns the public dereference URL for a content identifier.
func (c *Client) GatewayURL(cid string) string {
	return fmt.Sprintf("https://%s/ipfs/%s", c.cfg.Gateway, cid)
}

// Placeholder synthesizes a non-authoritative content identifier from the
// payload itself, so the degraded path is reproducible across retries.
func Placeholder(payload []byte) string {
	h1 := xxhash.NewS64(0)
	h1.Write(payload)
	h2 := xxhash.NewS64(1)
	h2.Write(payload)
	out := make([]byte, 16)
	binary.LittleEndian.PutUint64(out[0:], h1.Sum64())
	binary.LittleEndian.PutUint64(out[8:], h2.Sum64())
	return placeholderPrefix + hex.EncodeToString(out)
}

// IsPlaceholder reports whether cid was synthesized by Placeholder.
func IsPlaceholder(cid string) bool {
	if len(cid) != len(placeholderPrefix)+32 {
		return false
	}
	if cid[:len(placeholderPrefix)] != placeholderPrefix {
		return false
	}
	_, err := hex.DecodeString(cid[len(placeholderPrefix):])
	return err == nil
}

func (c *Client) upload(ctx context.Context, payload []byte, name string) (string, error) {
	token, err := c.session(ctx)
	if err != nil {
		return "", fmt.Errorf("session: %w", err)
	}

	status, body, err := webclient.DoWithRetry(ctx, 2, time.Second, func() (int, []byte, error) {
		return c.post(ctx, token, payload, name)
	})
	if err != nil {
		return "", err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return "", fmt.Errorf("store returned status %d", status)
	}

	var resp struct {
		CID string `json:"cid"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if resp.CID == "" {
		return "", fmt.Errorf("store returned empty cid")
	}
	return resp.CID, nil
}

func (c *Client) post(ctx context.Context, token string, payload []byte, name string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/upload", bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Name", name)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, buf.Bytes(), nil
}

// session opens the authenticated upload session exactly once per process
// lifetime. A failed login is cached too: later uploads skip the store and
// go straight to the degraded path instead of re-attempting the login.
func (c *Client) session(ctx context.Context) (string, error) {
	c.loginOnce.Do(func() {
		c.token, c.loginErr = c.login(ctx)
		if c.loginErr == nil {
			log.Printf("ipfs: session opened for space %s", c.cfg.Space)
		}
	})
	return c.token, c.loginErr
}

func (c *Client) login(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"email": c.cfg.Email,
		"space": c.cfg.Space,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login status %d", resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("login returned empty token")
	}
	return out.Token, nil
}
