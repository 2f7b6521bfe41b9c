package wallet

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

func TestDisconnectedSession(t *testing.T) {
	s, err := NewSession("", 84532)
	if err != nil {
		t.Fatal(err)
	}
	if s.Connected() {
		t.Error("empty key reported connected")
	}
	if s.WrongNetwork(big.NewInt(1)) {
		t.Error("disconnected session reported wrong network")
	}
	if _, err := s.TransactOpts(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("TransactOpts error = %v, want ErrNotConnected", err)
	}
}

func TestConnectedSession(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	hexKey := "0x" + hex.EncodeToString(crypto.FromECDSA(key))

	s, err := NewSession(hexKey, 84532)
	if err != nil {
		t.Fatal(err)
	}
	if !s.Connected() {
		t.Fatal("session not connected")
	}
	if s.Address() != crypto.PubkeyToAddress(key.PublicKey) {
		t.Errorf("address = %s", s.Address().Hex())
	}
	if s.WrongNetwork(big.NewInt(84532)) {
		t.Error("matching chain reported wrong network")
	}
	if !s.WrongNetwork(big.NewInt(1)) {
		t.Error("mainnet not reported as wrong network")
	}

	opts, err := s.TransactOpts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if opts.From != s.Address() {
		t.Errorf("opts.From = %s", opts.From.Hex())
	}
}

func TestInvalidKey(t *testing.T) {
	if _, err := NewSession("not-a-key", 84532); err == nil {
		t.Error("expected error for malformed key")
	}
}
