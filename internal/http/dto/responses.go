package dto

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

// Amount is a raw 6-decimal value with its display form.
type Amount struct {
	Raw     string `json:"raw"`
	Display string `json:"display"`
}

type RoundView struct {
	RoundID             uint64   `json:"round_id"`
	Active              bool     `json:"active"`
	Finalized           bool     `json:"finalized"`
	CanFinalize         bool     `json:"can_finalize"`
	StartTime           int64    `json:"start_time"`
	EndTime             int64    `json:"end_time"`
	TimeRemaining       string   `json:"time_remaining"`
	Ended               bool     `json:"ended"`
	MatchingPool        Amount   `json:"matching_pool"`
	MatchingPoolBalance Amount   `json:"matching_pool_balance"`
	TotalContributions  Amount   `json:"total_contributions"`
	TotalContributors   string   `json:"total_contributors"`
	AverageMatch        string   `json:"average_match"`
	Projects            []string `json:"projects"`
}

type ProjectView struct {
	Address      string `json:"address"`
	Short        string `json:"short"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	MetadataURI  string `json:"metadata_uri"`
	IsActive     bool   `json:"is_active"`
	RegisteredAt int64  `json:"registered_at"`
	TotalRaised  Amount `json:"total_raised"`
	TotalMatched Amount `json:"total_matched"`
	// RoundShare is the percentage of the round's contributions raised by this project.
	RoundShare int `json:"round_share"`
}

type SybilView struct {
	CanContribute  bool   `json:"can_contribute"`
	RetryIn        string `json:"retry_in,omitempty"`
	CooldownPeriod string `json:"cooldown_period"`
}

type AccountView struct {
	Owner     string    `json:"owner"`
	Short     string    `json:"short"`
	Balance   Amount    `json:"balance"`
	Allowance Amount    `json:"allowance"`
	Sybil     SybilView `json:"sybil"`
}

type MetaResponse struct {
	ChainID          int64             `json:"chain_id"`
	Decimals         int               `json:"decimals"`
	Contracts        map[string]string `json:"contracts"`
	DefaultAmount    string            `json:"default_contribution_amount"`
	DefaultMatching  string            `json:"default_matching_amount"`
	DefaultRoundDays string            `json:"default_round_days"`
	MinRoundSeconds  int64             `json:"min_round_seconds"`
	WalletConnected  bool              `json:"wallet_connected"`
}
