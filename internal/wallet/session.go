// Package wallet holds the operator wallet session: the signing key standing in for the
// connected browser wallet. A session without a key is valid and reports not connected.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

type Session struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
}

// NewSession parses a hex private key for the expected chain. An empty key yields a
// disconnected session.
func NewSession(hexKey string, chainID int64) (*Session, error) {
	s := &Session{chainID: big.NewInt(chainID)}

	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return s, nil
	}

	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet private key: %w", err)
	}
	s.key = key
	s.address = crypto.PubkeyToAddress(key.PublicKey)
	return s, nil
}

func (s *Session) Connected() bool {
	return s != nil && s.key != nil
}

// Address is the zero address when not connected.
func (s *Session) Address() common.Address {
	if s == nil {
		return common.Address{}
	}
	return s.address
}

// ChainID is the network the session signs for.
func (s *Session) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

// WrongNetwork compares the node's reported chain with the session's chain.
func (s *Session) WrongNetwork(nodeChainID *big.Int) bool {
	if !s.Connected() || nodeChainID == nil {
		return false
	}
	return nodeChainID.Cmp(s.chainID) != 0
}

// TransactOpts returns fresh signing options bound to ctx.
func (s *Session) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	if !s.Connected() {
		return nil, ErrNotConnected
	}
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return nil, fmt.Errorf("transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}
