package model

import "time"

// ItemStatus is the locally tracked state of a linked institution.
type ItemStatus string

// Item statuses.
const (
	ItemPendingMFA   ItemStatus = "pending_mfa"
	ItemLinked       ItemStatus = "linked"
	ItemNotConnected ItemStatus = "not_connected"
)

// Item is a linked institution as remembered by plaidctl. The access token is
// the provider's durable handle; everything else is display metadata.
type Item struct {
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastSyncedAt    *time.Time `json:"last_synced_at,omitempty"`
	AccessToken     string     `json:"access_token"`
	InstitutionID   string     `json:"institution_id"`
	InstitutionName string     `json:"institution_name"`
	InstitutionType string     `json:"institution_type"`
	Status          ItemStatus `json:"status"`
	LastCode        int        `json:"last_code,omitempty"`
}

// NewItem builds a pending item for an institution.
func NewItem(inst Institution, accessToken string, status ItemStatus) Item {
	return Item{
		AccessToken:     accessToken,
		InstitutionID:   inst.ID,
		InstitutionName: inst.Name,
		InstitutionType: inst.Type,
		Status:          status,
	}
}

// NeedsUpdate reports whether credentials must be re-verified before syncing.
func (i Item) NeedsUpdate() bool {
	return i.Status == ItemNotConnected
}

// RedactToken keeps enough of an access token to tell items apart in logs and errors.
func RedactToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "…" + token[len(token)-4:]
}
