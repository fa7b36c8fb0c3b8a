package models

import (
	"strconv"
	"strings"
)

// RecipientProfile is the directory entry returned by GET /wallet/lookup/{handle}/.
type RecipientProfile struct {
	UserID        int64  `json:"user_id,omitempty"`
	ID            int64  `json:"id,omitempty"`
	Name          string `json:"name,omitempty"`
	Username      string `json:"username,omitempty"`
	Address       string `json:"address,omitempty"`
	WalletAddress string `json:"wallet_address,omitempty"`
}

func (p RecipientProfile) ResolvedAddress() string {
	if p.WalletAddress != "" {
		return p.WalletAddress
	}
	return p.Address
}

// DisplayName renders the profile for the confirmation summary.
func (p RecipientProfile) DisplayName() string {
	name := p.Name
	if name == "" {
		name = p.Username
	}
	addr := p.ResolvedAddress()

	switch {
	case name != "" && addr != "":
		return name + " (" + truncate(addr, 8) + ")"
	case name != "":
		return name
	case addr != "":
		return truncate(addr, 12)
	default:
		return "Unknown recipient"
	}
}

// RecipientID picks the numeric id submitted as recipient_id. The directory's
// user id wins; otherwise the handle itself must be a positive integer.
func RecipientID(profile *RecipientProfile, handle string) (int64, bool) {
	if profile != nil {
		if profile.UserID > 0 {
			return profile.UserID, true
		}
		if profile.ID > 0 {
			return profile.ID, true
		}
	}
	id, err := strconv.ParseInt(strings.TrimSpace(handle), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
