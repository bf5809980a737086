package models

// Lead pipeline statuses. Transitions are forward-only, with a single
// reopen edge from lost back to new.
const (
	LeadNew       = "new"
	LeadContacted = "contacted"
	LeadQualified = "qualified"
	LeadQuoted    = "quoted"
	LeadWon       = "won"
	LeadLost      = "lost"
)

// Lead sources.
const (
	SourceReferral  = "referral"
	SourceWebsite   = "website"
	SourceDoorKnock = "door_knock"
	SourceAds       = "ads"
	SourceOther     = "other"
)

// Lead is a prospective client in the sales pipeline.
type Lead struct {
	SyncFields `gorm:"embedded"`

	Name           string  `gorm:"size:128;not null"`
	Status         string  `gorm:"size:16;default:new;index"`
	Source         string  `gorm:"size:16;default:other"`
	EstimatedValue float64 `gorm:"type:decimal(12,2);default:0.0"`
	Notes          string  `gorm:"type:text"`
}

// leadRank orders pipeline statuses for the forward-only check.
var leadRank = map[string]int{
	LeadNew:       0,
	LeadContacted: 1,
	LeadQualified: 2,
	LeadQuoted:    3,
	LeadWon:       4,
	LeadLost:      4,
}

// ValidLeadStatus reports whether s is a known pipeline status.
func ValidLeadStatus(s string) bool {
	_, ok := leadRank[s]
	return ok
}

// ValidLeadSource reports whether s is a known lead source.
func ValidLeadSource(s string) bool {
	switch s {
	case SourceReferral, SourceWebsite, SourceDoorKnock, SourceAds, SourceOther:
		return true
	}
	return false
}

// CanTransitionLead reports whether a lead may move from one status to
// another. Unknown statuses never transition.
func CanTransitionLead(from, to string) bool {
	if !ValidLeadStatus(from) || !ValidLeadStatus(to) || from == to {
		return false
	}
	if from == LeadLost && to == LeadNew {
		return true // reopen
	}
	if from == LeadWon || from == LeadLost {
		return false // terminal apart from reopen
	}
	return leadRank[to] > leadRank[from]
}
