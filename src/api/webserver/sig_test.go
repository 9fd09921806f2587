package webserver

import (
	"encoding/hex"
	"fmt"
	"strings"
	"testing"

	schnorrkel "github.com/ChainSafe/go-schnorrkel"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"
)

func ethSign(t *testing.T, nonce string) (addr, sigHex string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	msg := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(nonce), nonce)
	sig, err := crypto.Sign(crypto.Keccak256([]byte(msg)), key)
	if err != nil {
		t.Fatal(err)
	}
	// Wallets report V as 27/28.
	sig[64] += 27
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), "0x" + hex.EncodeToString(sig)
}

func TestVerifyEthSignature(t *testing.T) {
	nonce := "d9c1f0a2-nonce"
	addr, sig := ethSign(t, nonce)

	if err := verifyEthSignature(addr, sig, nonce); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}

	// Address case must not matter.
	if err := verifyEthSignature(strings.ToLower(addr), sig, nonce); err != nil {
		t.Fatal(err)
	}

	if err := verifyEthSignature(addr, sig, "other-nonce"); err == nil {
		t.Error("signature over wrong nonce accepted")
	}
	otherAddr, _ := ethSign(t, nonce)
	if err := verifyEthSignature(otherAddr, sig, nonce); err == nil {
		t.Error("signature accepted for wrong address")
	}
	if err := verifyEthSignature(addr, "0xzz", nonce); err == nil {
		t.Error("garbage signature accepted")
	}
}

func TestVerifySr25519Signature(t *testing.T) {
	nonce := "d9c1f0a2-nonce"

	priv, pub, err := schnorrkel.GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	ctx := schnorrkel.NewSigningContext([]byte("substrate"), []byte(nonce))
	sig, err := priv.Sign(ctx)
	if err != nil {
		t.Fatal(err)
	}

	pubBytes := pub.Encode()
	sigBytes := sig.Encode()
	addr := "0x" + hex.EncodeToString(pubBytes[:])
	sigHex := "0x" + hex.EncodeToString(sigBytes[:])

	if err := verifySr25519Signature(addr, sigHex, nonce); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}
	if err := verifySr25519Signature(addr, sigHex, "other"); err == nil {
		t.Error("signature over wrong nonce accepted")
	}
}

func TestIssueJWT(t *testing.T) {
	secret := []byte("test-secret")
	tok, err := issueJWT("0xABC", secret)
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := jwt.Parse(tok, func(t *jwt.Token) (interface{}, error) { return secret, nil })
	if err != nil || !parsed.Valid {
		t.Fatalf("parse: %v", err)
	}
	if addr := parsed.Claims.(jwt.MapClaims)["addr"]; addr != "0xABC" {
		t.Errorf("addr claim = %v", addr)
	}
}
