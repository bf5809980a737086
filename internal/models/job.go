package models

import "time"

// Job statuses. Transitions are strictly forward:
// scheduled → in_progress → punch_list → complete → paid.
const (
	JobScheduled  = "scheduled"
	JobInProgress = "in_progress"
	JobPunchList  = "punch_list"
	JobComplete   = "complete"
	JobPaid       = "paid"
)

// Job is scheduled work won from a bid.
type Job struct {
	SyncFields `gorm:"embedded"`

	Title  string `gorm:"size:256;not null"`
	Status string `gorm:"size:16;default:scheduled;index"`

	ScheduledFor *time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	PaidAt       *time.Time

	ClientID *string `gorm:"size:36;index"`
	BidID    *string `gorm:"size:36;index"`
}

// jobRank orders job statuses for the strictly-forward check.
var jobRank = map[string]int{
	JobScheduled:  0,
	JobInProgress: 1,
	JobPunchList:  2,
	JobComplete:   3,
	JobPaid:       4,
}

// ValidJobStatus reports whether s is a known job status.
func ValidJobStatus(s string) bool {
	_, ok := jobRank[s]
	return ok
}

// CanTransitionJob reports whether a job may move from one status to
// another. Any forward move is allowed (punch_list is optional); moving
// backward is not.
func CanTransitionJob(from, to string) bool {
	if !ValidJobStatus(from) || !ValidJobStatus(to) {
		return false
	}
	return jobRank[to] > jobRank[from]
}
