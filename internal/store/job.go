package store

import (
	"fmt"
	"time"

	"github.com/zulandar/fieldsync/internal/models"
	"github.com/zulandar/fieldsync/internal/syncq"
	"gorm.io/gorm"
)

// CreateJob persists a new job and queues it for push. When the job points
// at a bid, the bid must exist and be accepted.
func (s *Store) CreateJob(j *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateJob(j); err != nil {
		return err
	}
	prepareNew(&j.SyncFields)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if j.BidID != nil {
			var b models.Bid
			if err := first(tx, &b, *j.BidID); err != nil {
				return err
			}
			if b.Status != models.BidAccepted {
				return fmt.Errorf("store: bid %s is %s, not accepted: %w", b.LocalID, b.Status, ErrValidation)
			}
		}
		if err := tx.Create(j).Error; err != nil {
			return fmt.Errorf("store: create job: %w", err)
		}
		return enqueueUpsert(tx, syncq.TypeJob, &j.SyncFields)
	})
	if err != nil {
		return err
	}
	markQueued(&j.SyncFields)
	return nil
}

// UpdateJob applies a partial mutation to a job and queues it for push.
// Status changes must go through TransitionJob.
func (s *Store) UpdateJob(localID string, mutate func(*models.Job) error) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var j models.Job
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := first(tx, &j, localID); err != nil {
			return err
		}
		keep := j.SyncFields
		prevStatus := j.Status
		if err := mutate(&j); err != nil {
			return fmt.Errorf("store: update job %s: %w (%w)", localID, err, ErrValidation)
		}
		j.SyncFields = keep
		if j.Status != prevStatus {
			return fmt.Errorf("store: job status changes go through TransitionJob: %w", ErrValidation)
		}
		if err := validateJob(&j); err != nil {
			return err
		}
		if err := tx.Save(&j).Error; err != nil {
			return fmt.Errorf("store: save job %s: %w", localID, err)
		}
		return enqueueUpsert(tx, syncq.TypeJob, &j.SyncFields)
	})
	if err != nil {
		return nil, err
	}
	markQueued(&j.SyncFields)
	return &j, nil
}

// TransitionJob moves a job forward through its lifecycle, stamping the
// milestone timestamps. Reaching paid accumulates the bid's total onto the
// client's revenue in the same transaction.
func (s *Store) TransitionJob(localID, to string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var j models.Job
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := first(tx, &j, localID); err != nil {
			return err
		}
		if !models.CanTransitionJob(j.Status, to) {
			return fmt.Errorf("store: job cannot move %s -> %s: %w", j.Status, to, ErrValidation)
		}
		now := time.Now()
		j.Status = to
		switch to {
		case models.JobInProgress:
			j.StartedAt = &now
		case models.JobComplete:
			j.CompletedAt = &now
		case models.JobPaid:
			j.PaidAt = &now
		}
		if err := tx.Save(&j).Error; err != nil {
			return fmt.Errorf("store: save job %s: %w", localID, err)
		}
		if err := enqueueUpsert(tx, syncq.TypeJob, &j.SyncFields); err != nil {
			return err
		}

		if to == models.JobPaid && j.ClientID != nil && j.BidID != nil {
			var b models.Bid
			if err := first(tx, &b, *j.BidID); err != nil {
				return err
			}
			if err := addClientRevenue(tx, *j.ClientID, b.TotalPrice); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	markQueued(&j.SyncFields)
	return &j, nil
}

// DeleteJob removes a job and queues the remote delete.
func (s *Store) DeleteJob(localID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		var j models.Job
		if err := first(tx, &j, localID); err != nil {
			return err
		}
		return deleteJobTx(tx, &j)
	})
}

// GetJob loads a job by local identifier.
func (s *Store) GetJob(localID string) (*models.Job, error) {
	var j models.Job
	if err := first(s.db, &j, localID); err != nil {
		return nil, err
	}
	return &j, nil
}

// ListJobs returns jobs matching the optional GORM conditions.
func (s *Store) ListJobs(conds ...interface{}) ([]models.Job, error) {
	var jobs []models.Job
	if err := s.db.Order("created_at ASC").Find(&jobs, conds...).Error; err != nil {
		return nil, fmt.Errorf("store: list jobs: %w", err)
	}
	return jobs, nil
}

// deleteJobTx removes a job inside an open transaction and queues the
// remote delete.
func deleteJobTx(tx *gorm.DB, j *models.Job) error {
	if err := tx.Where("local_id = ?", j.LocalID).Delete(&models.Job{}).Error; err != nil {
		return fmt.Errorf("store: delete job %s: %w", j.LocalID, err)
	}
	return enqueueDelete(tx, syncq.TypeJob, &j.SyncFields)
}

// validateJob rejects malformed jobs before they reach disk.
func validateJob(j *models.Job) error {
	if j.Title == "" {
		return fmt.Errorf("store: job title is required: %w", ErrValidation)
	}
	if j.Status == "" {
		j.Status = models.JobScheduled
	}
	if !models.ValidJobStatus(j.Status) {
		return fmt.Errorf("store: unknown job status %q: %w", j.Status, ErrValidation)
	}
	return nil
}
