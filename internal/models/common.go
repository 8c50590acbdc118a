package models

// Claim statuses and states as served by the backend.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"

	FilterAll = "all"
)

// Claim is one FRA claim record. Only the fields the portal shows or sends
// for scoring are modelled.
type Claim struct {
	ClaimID                  string  `json:"claim_id"`
	Claimant                 string  `json:"claimant,omitempty"`
	State                    string  `json:"state,omitempty"`
	Status                   string  `json:"status,omitempty"`
	AreaHa                   float64 `json:"area_ha"`
	Created                  string  `json:"created,omitempty"`
	DocsComplete             bool    `json:"docs_complete"`
	IsDuplicate              bool    `json:"is_duplicate"`
	IsInCriticalWildlifeZone bool    `json:"is_in_critical_wildlife_zone"`
	CommunitySupport         bool    `json:"community_support"`
	LandType                 string  `json:"land_type,omitempty"`
}

// DefaultClaim is the claim pre-filled in the single-claim scoring form.
func DefaultClaim() Claim {
	return Claim{
		ClaimID:          "CLM-2001",
		DocsComplete:     true,
		AreaHa:           1.8,
		CommunitySupport: true,
		Status:           StatusPending,
	}
}

type Health struct {
	Status string `json:"status"`
	Env    string `json:"env"`
}

type ClaimsResponse struct {
	Claims []Claim `json:"claims"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
