package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// BusinessProfile holds the identity and descriptive attributes of the
// business under assessment. It is an immutable per-request input and is
// never persisted on its own; the owning RiskAssessment snapshots it.
type BusinessProfile struct {
	Name     string `json:"business_name"`
	Address  string `json:"business_address"`
	Industry string `json:"industry"`
	Country  string `json:"country"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	Website  string `json:"website,omitempty"`
}

// IdentityHash derives a stable identifier for the business from its
// normalized identity fields. Provider cache keys and the business_id in
// responses are built from it.
func (p BusinessProfile) IdentityHash() string {
	norm := strings.ToLower(strings.TrimSpace(p.Name)) + "|" +
		strings.ToLower(strings.TrimSpace(p.Address)) + "|" +
		strings.ToLower(strings.TrimSpace(p.Country))
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:16])
}

// RequiredFields returns the names of required profile fields that are empty.
func (p BusinessProfile) RequiredFields() []string {
	var missing []string
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "business_name")
	}
	if strings.TrimSpace(p.Address) == "" {
		missing = append(missing, "business_address")
	}
	if strings.TrimSpace(p.Industry) == "" {
		missing = append(missing, "industry")
	}
	if strings.TrimSpace(p.Country) == "" {
		missing = append(missing, "country")
	}
	return missing
}
