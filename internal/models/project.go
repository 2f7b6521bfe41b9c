package models

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ProjectRecord mirrors ProjectRegistry.Project.
type ProjectRecord struct {
	Address      common.Address `json:"address"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	MetadataURI  string         `json:"metadata_uri"`
	IsActive     bool           `json:"is_active"`
	RegisteredAt int64          `json:"registered_at"`
}

// Project is a registry record with its totals for one round. Totals are zero
// when there is no active round or the totals could not be loaded.
type Project struct {
	ProjectRecord
	TotalRaised  *big.Int `json:"total_raised"`
	TotalMatched *big.Int `json:"total_matched"`
}

// ProjectMetadata is the preview extracted from a project's metadata URI.
type ProjectMetadata struct {
	URI         string    `json:"uri"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"image,omitempty"`
	Website     string    `json:"website,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}
