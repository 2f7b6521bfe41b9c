package dto

type ApproveRequest struct {
	Amount string `json:"amount"`
}

type ContributeRequest struct {
	Project     string `json:"project"`
	Amount      string `json:"amount"`
	AutoApprove *bool  `json:"auto_approve,omitempty"`
}

type CreateRoundRequest struct {
	DurationDays string `json:"duration_days"` // empty means 7
}

type MatchingFundsRequest struct {
	Amount      string `json:"amount"`
	AutoApprove *bool  `json:"auto_approve,omitempty"`
}

type ProjectRequest struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MetadataURI string `json:"metadata_uri"`
}
