package wallet

import "github.com/equifund/backend/internal/chain"

// ErrNotConnected is shared with the chain package so callers can match either.
var ErrNotConnected = chain.ErrNotConnected
