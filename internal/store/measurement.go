package store

import (
	"fmt"

	"github.com/zulandar/fieldsync/internal/derive"
	"github.com/zulandar/fieldsync/internal/models"
	"github.com/zulandar/fieldsync/internal/syncq"
	"gorm.io/gorm"
)

// CreateMeasurement persists a measurement with its areas. Areas are
// renumbered contiguously, square footage is derived from polygons where
// supplied, and the total is computed before anything hits disk. The
// measurement is enqueued before its areas so the remote sees the parent
// first.
func (s *Store) CreateMeasurement(m *models.Measurement, areas []models.Area) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.Label == "" {
		return fmt.Errorf("store: measurement label is required: %w", ErrValidation)
	}
	prepareNew(&m.SyncFields)
	for i := range areas {
		prepareNew(&areas[i].SyncFields)
		areas[i].MeasurementID = m.LocalID
		areas[i].SortOrder = i
	}
	if err := derive.RecomputeMeasurement(m, areas); err != nil {
		return fmt.Errorf("store: %w (%w)", err, ErrValidation)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return fmt.Errorf("store: create measurement: %w", err)
		}
		if err := enqueueUpsert(tx, syncq.TypeMeasurement, &m.SyncFields); err != nil {
			return err
		}
		for i := range areas {
			if err := tx.Create(&areas[i]).Error; err != nil {
				return fmt.Errorf("store: create area %d: %w", i, err)
			}
			if err := enqueueUpsert(tx, syncq.TypeArea, &areas[i].SyncFields); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	markQueued(&m.SyncFields)
	for i := range areas {
		markQueued(&areas[i].SyncFields)
	}
	return nil
}

// AddArea appends an area to a measurement and recomputes the total.
func (s *Store) AddArea(measurementID string, a *models.Area) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepareNew(&a.SyncFields)
	a.MeasurementID = measurementID

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var m models.Measurement
		if err := first(tx, &m, measurementID); err != nil {
			return err
		}

		var maxOrder int
		if err := tx.Model(&models.Area{}).Where("measurement_id = ?", measurementID).
			Select("COALESCE(MAX(sort_order), -1)").Scan(&maxOrder).Error; err != nil {
			return fmt.Errorf("store: next sort order: %w", err)
		}
		a.SortOrder = maxOrder + 1

		if err := derive.RecomputeArea(a); err != nil {
			return fmt.Errorf("store: %w (%w)", err, ErrValidation)
		}
		if err := tx.Create(a).Error; err != nil {
			return fmt.Errorf("store: create area: %w", err)
		}
		if err := enqueueUpsert(tx, syncq.TypeArea, &a.SyncFields); err != nil {
			return err
		}
		return recomputeMeasurementTx(tx, &m)
	})
	if err != nil {
		return err
	}
	markQueued(&a.SyncFields)
	return nil
}

// UpdateArea applies a partial mutation to an area, rederives its square
// footage, and recomputes the parent total.
func (s *Store) UpdateArea(localID string, mutate func(*models.Area) error) (*models.Area, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var a models.Area
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := first(tx, &a, localID); err != nil {
			return err
		}
		keep := a.SyncFields
		parent := a.MeasurementID
		if err := mutate(&a); err != nil {
			return fmt.Errorf("store: update area %s: %w (%w)", localID, err, ErrValidation)
		}
		a.SyncFields = keep
		a.MeasurementID = parent // areas don't move between measurements

		if err := derive.RecomputeArea(&a); err != nil {
			return fmt.Errorf("store: %w (%w)", err, ErrValidation)
		}
		if err := tx.Save(&a).Error; err != nil {
			return fmt.Errorf("store: save area %s: %w", localID, err)
		}
		if err := enqueueUpsert(tx, syncq.TypeArea, &a.SyncFields); err != nil {
			return err
		}

		var m models.Measurement
		if err := first(tx, &m, parent); err != nil {
			return err
		}
		return recomputeMeasurementTx(tx, &m)
	})
	if err != nil {
		return nil, err
	}
	markQueued(&a.SyncFields)
	return &a, nil
}

// DeleteArea removes an area, renumbers the survivors contiguously from 0,
// and recomputes the parent total.
func (s *Store) DeleteArea(localID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		var a models.Area
		if err := first(tx, &a, localID); err != nil {
			return err
		}
		if err := tx.Where("local_id = ?", localID).Delete(&models.Area{}).Error; err != nil {
			return fmt.Errorf("store: delete area %s: %w", localID, err)
		}
		if err := enqueueDelete(tx, syncq.TypeArea, &a.SyncFields); err != nil {
			return err
		}

		var m models.Measurement
		if err := first(tx, &m, a.MeasurementID); err != nil {
			return err
		}
		if err := renumberAreasTx(tx, m.LocalID); err != nil {
			return err
		}
		return recomputeMeasurementTx(tx, &m)
	})
}

// ReorderAreas renumbers a measurement's areas to match orderedIDs, which
// must be exactly the current area set.
func (s *Store) ReorderAreas(measurementID string, orderedIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		var areas []models.Area
		if err := tx.Where("measurement_id = ?", measurementID).Find(&areas).Error; err != nil {
			return fmt.Errorf("store: load areas of %s: %w", measurementID, err)
		}
		if len(areas) != len(orderedIDs) {
			return fmt.Errorf("store: reorder lists %d areas, measurement has %d: %w",
				len(orderedIDs), len(areas), ErrValidation)
		}
		byID := make(map[string]*models.Area, len(areas))
		for i := range areas {
			byID[areas[i].LocalID] = &areas[i]
		}
		seen := make(map[string]bool, len(orderedIDs))
		for pos, id := range orderedIDs {
			if seen[id] {
				return fmt.Errorf("store: area %s listed twice: %w", id, ErrValidation)
			}
			seen[id] = true
			a, ok := byID[id]
			if !ok {
				return fmt.Errorf("store: area %s not in measurement %s: %w", id, measurementID, ErrValidation)
			}
			if a.SortOrder == pos {
				continue
			}
			if err := tx.Model(&models.Area{}).Where("local_id = ?", id).
				Update("sort_order", pos).Error; err != nil {
				return fmt.Errorf("store: renumber area %s: %w", id, err)
			}
			if err := enqueueUpsert(tx, syncq.TypeArea, &a.SyncFields); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteMeasurement removes a measurement and its areas. Bids referencing
// the measurement block deletion unless cascade is requested, which
// detaches them (the measurement doesn't own bids).
func (s *Store) DeleteMeasurement(localID string, cascade bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		var m models.Measurement
		if err := first(tx, &m, localID); err != nil {
			return err
		}

		var refs int64
		if err := tx.Model(&models.Bid{}).Where("measurement_id = ?", localID).
			Count(&refs).Error; err != nil {
			return fmt.Errorf("store: check bid references: %w", err)
		}
		if refs > 0 {
			if !cascade {
				return fmt.Errorf("store: %d bids reference measurement %s: %w", refs, localID, ErrReferentialConflict)
			}
			var bids []models.Bid
			if err := tx.Where("measurement_id = ?", localID).Find(&bids).Error; err != nil {
				return fmt.Errorf("store: load referencing bids: %w", err)
			}
			for i := range bids {
				if err := tx.Model(&models.Bid{}).Where("local_id = ?", bids[i].LocalID).
					Update("measurement_id", nil).Error; err != nil {
					return fmt.Errorf("store: detach bid %s: %w", bids[i].LocalID, err)
				}
				if err := enqueueUpsert(tx, syncq.TypeBid, &bids[i].SyncFields); err != nil {
					return err
				}
			}
		}

		return deleteMeasurementTx(tx, &m)
	})
}

// GetMeasurement loads a measurement with its areas in order.
func (s *Store) GetMeasurement(localID string) (*models.Measurement, error) {
	var m models.Measurement
	if err := first(s.db, &m, localID); err != nil {
		return nil, err
	}
	if err := s.db.Where("measurement_id = ?", localID).
		Order("sort_order ASC").Find(&m.Areas).Error; err != nil {
		return nil, fmt.Errorf("store: load areas of %s: %w", localID, err)
	}
	return &m, nil
}

// deleteMeasurementTx removes a measurement and its owned areas inside an
// open transaction, queueing remote deletes for everything that was pushed.
func deleteMeasurementTx(tx *gorm.DB, m *models.Measurement) error {
	var areas []models.Area
	if err := tx.Where("measurement_id = ?", m.LocalID).Find(&areas).Error; err != nil {
		return fmt.Errorf("store: load areas of %s: %w", m.LocalID, err)
	}
	for i := range areas {
		if err := tx.Where("local_id = ?", areas[i].LocalID).Delete(&models.Area{}).Error; err != nil {
			return fmt.Errorf("store: delete area %s: %w", areas[i].LocalID, err)
		}
		if err := enqueueDelete(tx, syncq.TypeArea, &areas[i].SyncFields); err != nil {
			return err
		}
	}
	if err := tx.Where("local_id = ?", m.LocalID).Delete(&models.Measurement{}).Error; err != nil {
		return fmt.Errorf("store: delete measurement %s: %w", m.LocalID, err)
	}
	return enqueueDelete(tx, syncq.TypeMeasurement, &m.SyncFields)
}

// renumberAreasTx rewrites sort_order contiguously from 0 in current order.
func renumberAreasTx(tx *gorm.DB, measurementID string) error {
	var areas []models.Area
	if err := tx.Where("measurement_id = ?", measurementID).
		Order("sort_order ASC").Find(&areas).Error; err != nil {
		return fmt.Errorf("store: load areas of %s: %w", measurementID, err)
	}
	for pos := range areas {
		if areas[pos].SortOrder == pos {
			continue
		}
		if err := tx.Model(&models.Area{}).Where("local_id = ?", areas[pos].LocalID).
			Update("sort_order", pos).Error; err != nil {
			return fmt.Errorf("store: renumber area %s: %w", areas[pos].LocalID, err)
		}
		if err := enqueueUpsert(tx, syncq.TypeArea, &areas[pos].SyncFields); err != nil {
			return err
		}
	}
	return nil
}

// recomputeMeasurementTx rederives every area and the measurement total
// from current rows, persisting and queueing the measurement when the
// total moved.
func recomputeMeasurementTx(tx *gorm.DB, m *models.Measurement) error {
	var areas []models.Area
	if err := tx.Where("measurement_id = ?", m.LocalID).
		Order("sort_order ASC").Find(&areas).Error; err != nil {
		return fmt.Errorf("store: load areas of %s: %w", m.LocalID, err)
	}
	if err := derive.RecomputeMeasurement(m, areas); err != nil {
		return fmt.Errorf("store: recompute measurement %s: %w", m.LocalID, err)
	}
	if err := tx.Model(&models.Measurement{}).Where("local_id = ?", m.LocalID).
		Update("total_area", m.TotalArea).Error; err != nil {
		return fmt.Errorf("store: save total of %s: %w", m.LocalID, err)
	}
	return enqueueUpsert(tx, syncq.TypeMeasurement, &m.SyncFields)
}
