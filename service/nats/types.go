package nats

import (
	"time"
)

// ProvisionedEvent announces a newly generated wallet. It is published to
// the subject "wallets.{address}" in JetStream. It never carries key
// material, only public addresses and the funding outcome.
type ProvisionedEvent struct {
	Address string `json:"address"`

	// Funding details, empty when the wallet was generated without funding.
	FundedBy  string `json:"funded_by,omitempty"`
	Amount    uint64 `json:"amount,omitempty"`
	TokenMint string `json:"token_mint,omitempty"`
	Decimals  uint8  `json:"decimals,omitempty"`
	Signature string `json:"signature,omitempty"`

	// Network is the RPC endpoint label the wallet was funded on.
	Network string `json:"network,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Subject returns the JetStream subject for the event.
func (e *ProvisionedEvent) Subject() string {
	return SubjectPrefix + e.Address
}
