// Package models provides domain model definitions for the wallet hub system.
package models

import (
	"github.com/wallet-hub/internal/types"
)

// LinkedAccount is one blockchain address known to the system for a user.
// Discovered at session start from the identity provider's account list and
// never mutated by this subsystem.
type LinkedAccount struct {
	Address      string             `json:"address"`
	ChainType    types.ChainType    `json:"chainType"`
	CustodyClass types.CustodyClass `json:"custodyClass"`
}

// ActiveAccount is the single account chosen as the subject of
// balance/transfer operations for a given chain type.
type ActiveAccount struct {
	LinkedAccount

	// Signable is true when a signer can be obtained for this account,
	// either a live session signer (connected) or the custody provider's
	// signer (embedded).
	Signable bool `json:"signable"`
}

// NewActiveAccount classifies a linked account as signable or read-only.
func NewActiveAccount(account LinkedAccount) ActiveAccount {
	return ActiveAccount{
		LinkedAccount: account,
		Signable: account.CustodyClass == types.CustodyConnected ||
			account.CustodyClass == types.CustodyEmbedded,
	}
}
