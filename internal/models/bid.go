package models

import "time"

// Bid statuses. A bid moves draft → sent → accepted|declined|expired.
const (
	BidDraft    = "draft"
	BidSent     = "sent"
	BidAccepted = "accepted"
	BidDeclined = "declined"
	BidExpired  = "expired"
)

// Bid tiers for good/better/best proposals.
const (
	TierGood   = "good"
	TierBetter = "better"
	TierBest   = "best"
)

// Bid is a priced proposal. Subtotal, TaxAmount, TotalPrice, and
// ProfitMargin are derived from the line items and cost fields; they are
// recomputed on every mutation and never edited directly.
type Bid struct {
	SyncFields `gorm:"embedded"`

	Number string `gorm:"size:32;uniqueIndex;not null"`
	Status string `gorm:"size:16;default:draft;index"`
	Tier   string `gorm:"size:8;default:good"`

	MaterialCost float64 `gorm:"type:decimal(12,2);default:0.0"`
	LaborCost    float64 `gorm:"type:decimal(12,2);default:0.0"`
	TaxRate      float64 `gorm:"default:0.0"`

	Subtotal     float64 `gorm:"type:decimal(12,2);default:0.0"`
	TaxAmount    float64 `gorm:"type:decimal(12,2);default:0.0"`
	TotalPrice   float64 `gorm:"type:decimal(12,2);default:0.0"`
	ProfitMargin float64 `gorm:"default:0.0"`

	ProposalTitle string `gorm:"size:256"`
	ProposalNotes string `gorm:"type:text"`

	AISummary    string  `gorm:"type:text"` // advisory only, never feeds pricing
	AIConfidence float64 `gorm:"default:0.0"`

	ClientID      *string `gorm:"size:36;index"`
	MeasurementID *string `gorm:"size:36;index"`

	LineItems []BidLineItem `gorm:"foreignKey:BidID"`
	Signature *BidSignature `gorm:"foreignKey:BidID"`
}

// BidLineItem is one priced line on a bid. Amount is derived as
// quantity * unit price with banker's rounding.
type BidLineItem struct {
	SyncFields `gorm:"embedded"`

	BidID       string  `gorm:"size:36;not null;index"`
	Description string  `gorm:"size:256;not null"`
	Quantity    float64 `gorm:"default:1.0"`
	UnitPrice   float64 `gorm:"type:decimal(12,2);default:0.0"`
	Amount      float64 `gorm:"type:decimal(12,2);default:0.0"`
	SortOrder   int     `gorm:"default:0;index"`
}

// BidSignature is the customer's acceptance signature. Immutable once set.
type BidSignature struct {
	SyncFields `gorm:"embedded"`

	BidID         string    `gorm:"size:36;not null;uniqueIndex"`
	SignerName    string    `gorm:"size:128;not null"`
	SignedAt      time.Time `gorm:"not null"`
	ImagePayload  []byte    `gorm:"type:blob"`
	OriginAddress string    `gorm:"size:64"` // network address the signature was captured from
}

// ValidBidStatus reports whether s is a known bid status.
func ValidBidStatus(s string) bool {
	switch s {
	case BidDraft, BidSent, BidAccepted, BidDeclined, BidExpired:
		return true
	}
	return false
}

// ValidBidTier reports whether s is a known bid tier.
func ValidBidTier(s string) bool {
	switch s {
	case TierGood, TierBetter, TierBest:
		return true
	}
	return false
}

// CanTransitionBid reports whether a bid may move from one status to another.
func CanTransitionBid(from, to string) bool {
	switch from {
	case BidDraft:
		return to == BidSent
	case BidSent:
		return to == BidAccepted || to == BidDeclined || to == BidExpired
	}
	return false
}
