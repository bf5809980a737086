package store

import (
	"encoding/json"
	"fmt"

	"github.com/zulandar/fieldsync/internal/models"
	"github.com/zulandar/fieldsync/internal/syncq"
	"gorm.io/gorm"
)

// CreateClient persists a new client and queues it for push.
func (s *Store) CreateClient(c *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateClient(c); err != nil {
		return err
	}
	prepareNew(&c.SyncFields)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return fmt.Errorf("store: create client: %w", err)
		}
		return enqueueUpsert(tx, syncq.TypeClient, &c.SyncFields)
	})
	if err != nil {
		return err
	}
	markQueued(&c.SyncFields)
	return nil
}

// UpdateClient applies a partial mutation atomically and queues the client
// for push. The mutation must not touch sync bookkeeping fields; whatever
// it writes there is discarded.
func (s *Store) UpdateClient(localID string, mutate func(*models.Client) error) (*models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var c models.Client
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := first(tx, &c, localID); err != nil {
			return err
		}
		keep := c.SyncFields
		if err := mutate(&c); err != nil {
			return fmt.Errorf("store: update client %s: %w (%w)", localID, err, ErrValidation)
		}
		c.SyncFields = keep
		if err := validateClient(&c); err != nil {
			return err
		}
		if err := tx.Save(&c).Error; err != nil {
			return fmt.Errorf("store: save client %s: %w", localID, err)
		}
		return enqueueUpsert(tx, syncq.TypeClient, &c.SyncFields)
	})
	if err != nil {
		return nil, err
	}
	markQueued(&c.SyncFields)
	return &c, nil
}

// DeleteClient removes a client. Clients own their measurements, bids, and
// jobs; those require cascade=true and are removed in the same transaction,
// all or nothing. The cascade is refused when a job outside it still
// references a bid inside it.
func (s *Store) DeleteClient(localID string, cascade bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		var c models.Client
		if err := first(tx, &c, localID); err != nil {
			return err
		}

		var measurements []models.Measurement
		var bids []models.Bid
		var jobs []models.Job
		if err := tx.Where("client_id = ?", localID).Find(&measurements).Error; err != nil {
			return fmt.Errorf("store: load measurements of client %s: %w", localID, err)
		}
		if err := tx.Where("client_id = ?", localID).Find(&bids).Error; err != nil {
			return fmt.Errorf("store: load bids of client %s: %w", localID, err)
		}
		if err := tx.Where("client_id = ?", localID).Find(&jobs).Error; err != nil {
			return fmt.Errorf("store: load jobs of client %s: %w", localID, err)
		}

		owned := len(measurements) + len(bids) + len(jobs)
		if owned > 0 && !cascade {
			return fmt.Errorf("store: client %s owns %d records: %w", localID, owned, ErrReferentialConflict)
		}

		// A job owned by someone else referencing one of this client's bids
		// would dangle if the cascade proceeded.
		if len(bids) > 0 {
			bidIDs := make([]string, len(bids))
			for i, b := range bids {
				bidIDs[i] = b.LocalID
			}
			var foreign int64
			if err := tx.Model(&models.Job{}).
				Where("bid_id IN ? AND (client_id != ? OR client_id IS NULL)", bidIDs, localID).
				Count(&foreign).Error; err != nil {
				return fmt.Errorf("store: check bid references: %w", err)
			}
			if foreign > 0 {
				return fmt.Errorf("store: %d jobs outside the cascade reference this client's bids: %w",
					foreign, ErrReferentialConflict)
			}
		}

		for i := range measurements {
			if err := deleteMeasurementTx(tx, &measurements[i]); err != nil {
				return err
			}
		}
		for i := range bids {
			if err := deleteBidTx(tx, &bids[i]); err != nil {
				return err
			}
		}
		for i := range jobs {
			if err := deleteJobTx(tx, &jobs[i]); err != nil {
				return err
			}
		}

		if err := tx.Where("local_id = ?", localID).Delete(&models.Client{}).Error; err != nil {
			return fmt.Errorf("store: delete client %s: %w", localID, err)
		}
		return enqueueDelete(tx, syncq.TypeClient, &c.SyncFields)
	})
}

// GetClient loads a client by local identifier.
func (s *Store) GetClient(localID string) (*models.Client, error) {
	var c models.Client
	if err := first(s.db, &c, localID); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListClients returns clients matching the optional GORM conditions.
func (s *Store) ListClients(conds ...interface{}) ([]models.Client, error) {
	var clients []models.Client
	if err := s.db.Order("created_at ASC").Find(&clients, conds...).Error; err != nil {
		return nil, fmt.Errorf("store: list clients: %w", err)
	}
	return clients, nil
}

// addClientRevenue accumulates paid-job revenue on the client.
func addClientRevenue(tx *gorm.DB, clientID string, amount float64) error {
	var c models.Client
	if err := first(tx, &c, clientID); err != nil {
		return err
	}
	result := tx.Model(&models.Client{}).Where("local_id = ?", clientID).
		Update("total_revenue", gorm.Expr("total_revenue + ?", amount))
	if result.Error != nil {
		return fmt.Errorf("store: add revenue to client %s: %w", clientID, result.Error)
	}
	return enqueueUpsert(tx, syncq.TypeClient, &c.SyncFields)
}

// validateClient rejects malformed clients before they reach disk.
func validateClient(c *models.Client) error {
	if c.FirstName == "" && c.LastName == "" && c.Company == "" {
		return fmt.Errorf("store: client needs a name or company: %w", ErrValidation)
	}
	if c.Tags != "" {
		var tags []string
		if err := json.Unmarshal([]byte(c.Tags), &tags); err != nil {
			return fmt.Errorf("store: client tags must be a JSON string array: %w", ErrValidation)
		}
	}
	return nil
}
