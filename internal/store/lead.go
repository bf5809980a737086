package store

import (
	"fmt"

	"github.com/zulandar/fieldsync/internal/models"
	"github.com/zulandar/fieldsync/internal/syncq"
	"gorm.io/gorm"
)

// CreateLead persists a new lead and queues it for push.
func (s *Store) CreateLead(l *models.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateLead(l); err != nil {
		return err
	}
	prepareNew(&l.SyncFields)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(l).Error; err != nil {
			return fmt.Errorf("store: create lead: %w", err)
		}
		return enqueueUpsert(tx, syncq.TypeLead, &l.SyncFields)
	})
	if err != nil {
		return err
	}
	markQueued(&l.SyncFields)
	return nil
}

// UpdateLead applies a partial mutation to a lead and queues it for push.
// Pipeline moves must go through TransitionLead.
func (s *Store) UpdateLead(localID string, mutate func(*models.Lead) error) (*models.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var l models.Lead
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := first(tx, &l, localID); err != nil {
			return err
		}
		keep := l.SyncFields
		prevStatus := l.Status
		if err := mutate(&l); err != nil {
			return fmt.Errorf("store: update lead %s: %w (%w)", localID, err, ErrValidation)
		}
		l.SyncFields = keep
		if l.Status != prevStatus {
			return fmt.Errorf("store: lead status changes go through TransitionLead: %w", ErrValidation)
		}
		if err := validateLead(&l); err != nil {
			return err
		}
		if err := tx.Save(&l).Error; err != nil {
			return fmt.Errorf("store: save lead %s: %w", localID, err)
		}
		return enqueueUpsert(tx, syncq.TypeLead, &l.SyncFields)
	})
	if err != nil {
		return nil, err
	}
	markQueued(&l.SyncFields)
	return &l, nil
}

// TransitionLead moves a lead through the pipeline. Forward only, with the
// single reopen edge lost -> new.
func (s *Store) TransitionLead(localID, to string) (*models.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var l models.Lead
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := first(tx, &l, localID); err != nil {
			return err
		}
		if !models.CanTransitionLead(l.Status, to) {
			return fmt.Errorf("store: lead cannot move %s -> %s: %w", l.Status, to, ErrValidation)
		}
		l.Status = to
		if err := tx.Save(&l).Error; err != nil {
			return fmt.Errorf("store: save lead %s: %w", localID, err)
		}
		return enqueueUpsert(tx, syncq.TypeLead, &l.SyncFields)
	})
	if err != nil {
		return nil, err
	}
	markQueued(&l.SyncFields)
	return &l, nil
}

// DeleteLead removes a lead and queues the remote delete. Leads own
// nothing, so there is no cascade.
func (s *Store) DeleteLead(localID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		var l models.Lead
		if err := first(tx, &l, localID); err != nil {
			return err
		}
		if err := tx.Where("local_id = ?", localID).Delete(&models.Lead{}).Error; err != nil {
			return fmt.Errorf("store: delete lead %s: %w", localID, err)
		}
		return enqueueDelete(tx, syncq.TypeLead, &l.SyncFields)
	})
}

// GetLead loads a lead by local identifier.
func (s *Store) GetLead(localID string) (*models.Lead, error) {
	var l models.Lead
	if err := first(s.db, &l, localID); err != nil {
		return nil, err
	}
	return &l, nil
}

// ListLeads returns leads matching the optional GORM conditions.
func (s *Store) ListLeads(conds ...interface{}) ([]models.Lead, error) {
	var leads []models.Lead
	if err := s.db.Order("created_at ASC").Find(&leads, conds...).Error; err != nil {
		return nil, fmt.Errorf("store: list leads: %w", err)
	}
	return leads, nil
}

// validateLead rejects malformed leads before they reach disk.
func validateLead(l *models.Lead) error {
	if l.Name == "" {
		return fmt.Errorf("store: lead name is required: %w", ErrValidation)
	}
	if l.Status == "" {
		l.Status = models.LeadNew
	}
	if !models.ValidLeadStatus(l.Status) {
		return fmt.Errorf("store: unknown lead status %q: %w", l.Status, ErrValidation)
	}
	if l.Source == "" {
		l.Source = models.SourceOther
	}
	if !models.ValidLeadSource(l.Source) {
		return fmt.Errorf("store: unknown lead source %q: %w", l.Source, ErrValidation)
	}
	if l.EstimatedValue < 0 {
		return fmt.Errorf("store: estimated value cannot be negative: %w", ErrValidation)
	}
	return nil
}
