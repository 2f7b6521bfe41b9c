package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// Dial connects to the JSON-RPC endpoint and logs the network it reports.
func Dial(ctx context.Context, rpcURL string, log *zap.Logger) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("chain id from %s: %w", rpcURL, err)
	}

	log.Info("rpc connected", zap.String("chain_id", chainID.String()))
	return client, nil
}
