package query

import (
	"fmt"
	"time"

	"github.com/equifund/backend/internal/chain"
	"github.com/ethereum/go-ethereum/common"
)

// Freshness windows per read model.
const (
	RoundTTL        = 10 * time.Second
	ProjectsTTL     = 15 * time.Second
	ProjectTTL      = 15 * time.Second
	AccountTTL      = 15 * time.Second
	SybilTTL        = 15 * time.Second
	ContributionTTL = 10 * time.Second
	OwnerTTL        = 60 * time.Second
)

const (
	RoundKey         = "equifund:round"
	PoolOwnerKey     = "equifund:pool:owner"
	RegistryOwnerKey = "equifund:project-registry:owner"

	// ProjectsPrefix covers both the project list and single project entries.
	ProjectsPrefix = "equifund:project"
)

func ProjectsKey(roundID uint64) string {
	return fmt.Sprintf("equifund:projects:%s", roundPart(roundID))
}

func AllProjectsKey(roundID uint64) string {
	return fmt.Sprintf("equifund:projects:all:%s", roundPart(roundID))
}

func ProjectKey(project common.Address, roundID uint64) string {
	return fmt.Sprintf("equifund:project:%s:%s", chain.KeyPart(project), roundPart(roundID))
}

func AccountKey(owner common.Address) string {
	return fmt.Sprintf("usdc:%s:account", chain.KeyPart(owner))
}

func SybilKey(donor common.Address) string {
	return "sybil:" + chain.KeyPart(donor)
}

func ContributionKey(donor, project common.Address, roundID uint64) string {
	return fmt.Sprintf("%s%s:%s", ContributionPrefix(donor), chain.KeyPart(project), roundPart(roundID))
}

// ContributionPrefix covers every contribution entry of one donor.
func ContributionPrefix(donor common.Address) string {
	return fmt.Sprintf("equifund:donor-contribution:%s:", chain.KeyPart(donor))
}

func roundPart(roundID uint64) string {
	if roundID == 0 {
		return "none"
	}
	return fmt.Sprintf("%d", roundID)
}
