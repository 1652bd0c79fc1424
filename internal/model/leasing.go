package model

// Community is an apartment community.
type Community struct {
	ID   string `json:"community_id"`
	Name string `json:"name"`
}

// Unit is one leasable apartment.
type Unit struct {
	ID                 string  `json:"unit_id"`
	CommunityID        string  `json:"community_id"`
	CommunityName      string  `json:"community_name,omitempty"`
	UnitCode           string  `json:"unit_code"`
	Bedrooms           int     `json:"bedrooms"`
	Bathrooms          float64 `json:"bathrooms"`
	Rent               float64 `json:"rent"`
	Specials           *string `json:"specials"`
	AvailabilityStatus string  `json:"availability_status"`
	AvailableAt        *string `json:"available_at"`
}

// Unit availability statuses.
const (
	UnitAvailable = "available"
	UnitNotice    = "notice"
	UnitOccupied  = "occupied"
)

// PetRule is one entry of a community pet policy.
type PetRule struct {
	Allowed      bool     `json:"allowed"`
	Fee          *float64 `json:"fee,omitempty"`
	Deposit      *float64 `json:"deposit,omitempty"`
	Notes        *string  `json:"notes,omitempty"`
	Restrictions *string  `json:"restrictions,omitempty"`
}

// PetPolicy maps lowercase pet types, plus "default", to rules.
type PetPolicy map[string]PetRule
