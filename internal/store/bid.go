package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/fieldsync/internal/derive"
	"github.com/zulandar/fieldsync/internal/models"
	"github.com/zulandar/fieldsync/internal/syncq"
	"gorm.io/gorm"
)

// CreateBid persists a bid with its line items, deriving every money field
// before anything hits disk. The bid is enqueued before its line items so
// the remote sees the parent first.
func (s *Store) CreateBid(b *models.Bid, items []models.BidLineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateBid(b); err != nil {
		return err
	}
	prepareNew(&b.SyncFields)
	for i := range items {
		if items[i].Description == "" {
			return fmt.Errorf("store: line item %d needs a description: %w", i, ErrValidation)
		}
		prepareNew(&items[i].SyncFields)
		items[i].BidID = b.LocalID
		items[i].SortOrder = i
	}
	derive.RecomputeBid(b, items)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(b).Error; err != nil {
			return fmt.Errorf("store: create bid: %w", err)
		}
		if err := enqueueUpsert(tx, syncq.TypeBid, &b.SyncFields); err != nil {
			return err
		}
		for i := range items {
			if err := tx.Create(&items[i]).Error; err != nil {
				return fmt.Errorf("store: create line item %d: %w", i, err)
			}
			if err := enqueueUpsert(tx, syncq.TypeBidLineItem, &items[i].SyncFields); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	markQueued(&b.SyncFields)
	for i := range items {
		markQueued(&items[i].SyncFields)
	}
	return nil
}

// UpdateBid applies a partial mutation to a bid, validates any status
// change against the transition rules, rederives pricing, and queues the
// bid for push. Signed bids are immutable.
func (s *Store) UpdateBid(localID string, mutate func(*models.Bid) error) (*models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b models.Bid
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := first(tx, &b, localID); err != nil {
			return err
		}
		if err := bidMutable(tx, &b); err != nil {
			return err
		}

		keep := b.SyncFields
		prevStatus := b.Status
		derivedBefore := [4]float64{b.Subtotal, b.TaxAmount, b.TotalPrice, b.ProfitMargin}
		if err := mutate(&b); err != nil {
			return fmt.Errorf("store: update bid %s: %w (%w)", localID, err, ErrValidation)
		}
		b.SyncFields = keep
		// Derived fields are never edited directly; silently drop attempts.
		b.Subtotal, b.TaxAmount, b.TotalPrice, b.ProfitMargin =
			derivedBefore[0], derivedBefore[1], derivedBefore[2], derivedBefore[3]

		if err := validateBid(&b); err != nil {
			return err
		}
		if b.Status != prevStatus && !models.CanTransitionBid(prevStatus, b.Status) {
			return fmt.Errorf("store: bid cannot move %s -> %s: %w", prevStatus, b.Status, ErrValidation)
		}
		return recomputeBidTx(tx, &b)
	})
	if err != nil {
		return nil, err
	}
	markQueued(&b.SyncFields)
	return &b, nil
}

// AddLineItem appends a line item to a bid and reprices it.
func (s *Store) AddLineItem(bidID string, li *models.BidLineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if li.Description == "" {
		return fmt.Errorf("store: line item needs a description: %w", ErrValidation)
	}
	prepareNew(&li.SyncFields)
	li.BidID = bidID

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var b models.Bid
		if err := first(tx, &b, bidID); err != nil {
			return err
		}
		if err := bidMutable(tx, &b); err != nil {
			return err
		}

		var maxOrder int
		if err := tx.Model(&models.BidLineItem{}).Where("bid_id = ?", bidID).
			Select("COALESCE(MAX(sort_order), -1)").Scan(&maxOrder).Error; err != nil {
			return fmt.Errorf("store: next sort order: %w", err)
		}
		li.SortOrder = maxOrder + 1
		derive.RecomputeLineItem(li)

		if err := tx.Create(li).Error; err != nil {
			return fmt.Errorf("store: create line item: %w", err)
		}
		if err := enqueueUpsert(tx, syncq.TypeBidLineItem, &li.SyncFields); err != nil {
			return err
		}
		return recomputeBidTx(tx, &b)
	})
	if err != nil {
		return err
	}
	markQueued(&li.SyncFields)
	return nil
}

// UpdateLineItem applies a partial mutation to a line item and reprices
// its bid.
func (s *Store) UpdateLineItem(localID string, mutate func(*models.BidLineItem) error) (*models.BidLineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var li models.BidLineItem
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := first(tx, &li, localID); err != nil {
			return err
		}
		var b models.Bid
		if err := first(tx, &b, li.BidID); err != nil {
			return err
		}
		if err := bidMutable(tx, &b); err != nil {
			return err
		}

		keep := li.SyncFields
		parent := li.BidID
		if err := mutate(&li); err != nil {
			return fmt.Errorf("store: update line item %s: %w (%w)", localID, err, ErrValidation)
		}
		li.SyncFields = keep
		li.BidID = parent // line items don't move between bids
		if li.Description == "" {
			return fmt.Errorf("store: line item needs a description: %w", ErrValidation)
		}
		derive.RecomputeLineItem(&li)

		if err := tx.Save(&li).Error; err != nil {
			return fmt.Errorf("store: save line item %s: %w", localID, err)
		}
		if err := enqueueUpsert(tx, syncq.TypeBidLineItem, &li.SyncFields); err != nil {
			return err
		}
		return recomputeBidTx(tx, &b)
	})
	if err != nil {
		return nil, err
	}
	markQueued(&li.SyncFields)
	return &li, nil
}

// DeleteLineItem removes a line item, renumbers the survivors contiguously
// from 0, and reprices the bid.
func (s *Store) DeleteLineItem(localID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		var li models.BidLineItem
		if err := first(tx, &li, localID); err != nil {
			return err
		}
		var b models.Bid
		if err := first(tx, &b, li.BidID); err != nil {
			return err
		}
		if err := bidMutable(tx, &b); err != nil {
			return err
		}

		if err := tx.Where("local_id = ?", localID).Delete(&models.BidLineItem{}).Error; err != nil {
			return fmt.Errorf("store: delete line item %s: %w", localID, err)
		}
		if err := enqueueDelete(tx, syncq.TypeBidLineItem, &li.SyncFields); err != nil {
			return err
		}
		if err := renumberLineItemsTx(tx, b.LocalID); err != nil {
			return err
		}
		return recomputeBidTx(tx, &b)
	})
}

// ReorderLineItems renumbers a bid's line items to match orderedIDs, which
// must be exactly the current line item set.
func (s *Store) ReorderLineItems(bidID string, orderedIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		var b models.Bid
		if err := first(tx, &b, bidID); err != nil {
			return err
		}
		if err := bidMutable(tx, &b); err != nil {
			return err
		}

		var items []models.BidLineItem
		if err := tx.Where("bid_id = ?", bidID).Find(&items).Error; err != nil {
			return fmt.Errorf("store: load line items of %s: %w", bidID, err)
		}
		if len(items) != len(orderedIDs) {
			return fmt.Errorf("store: reorder lists %d items, bid has %d: %w",
				len(orderedIDs), len(items), ErrValidation)
		}
		byID := make(map[string]*models.BidLineItem, len(items))
		for i := range items {
			byID[items[i].LocalID] = &items[i]
		}
		seen := make(map[string]bool, len(orderedIDs))
		for pos, id := range orderedIDs {
			if seen[id] {
				return fmt.Errorf("store: line item %s listed twice: %w", id, ErrValidation)
			}
			seen[id] = true
			li, ok := byID[id]
			if !ok {
				return fmt.Errorf("store: line item %s not in bid %s: %w", id, bidID, ErrValidation)
			}
			if li.SortOrder == pos {
				continue
			}
			if err := tx.Model(&models.BidLineItem{}).Where("local_id = ?", id).
				Update("sort_order", pos).Error; err != nil {
				return fmt.Errorf("store: renumber line item %s: %w", id, err)
			}
			if err := enqueueUpsert(tx, syncq.TypeBidLineItem, &li.SyncFields); err != nil {
				return err
			}
		}
		return nil
	})
}

// SignBid attaches the acceptance signature to a bid and moves it to
// accepted. A bid can be signed exactly once; the signature and the signed
// bid are immutable afterward.
func (s *Store) SignBid(bidID string, sig *models.BidSignature) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sig.SignerName == "" {
		return fmt.Errorf("store: signature needs a signer name: %w", ErrValidation)
	}
	if sig.SignedAt.IsZero() {
		sig.SignedAt = time.Now()
	}
	prepareNew(&sig.SyncFields)
	sig.BidID = bidID

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var b models.Bid
		if err := first(tx, &b, bidID); err != nil {
			return err
		}
		var existing int64
		if err := tx.Model(&models.BidSignature{}).Where("bid_id = ?", bidID).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("store: check signature: %w", err)
		}
		if existing > 0 {
			return fmt.Errorf("store: bid %s is already signed: %w", bidID, ErrImmutable)
		}
		if !models.CanTransitionBid(b.Status, models.BidAccepted) {
			return fmt.Errorf("store: bid cannot move %s -> %s: %w", b.Status, models.BidAccepted, ErrValidation)
		}

		if err := tx.Create(sig).Error; err != nil {
			return fmt.Errorf("store: create signature: %w", err)
		}
		if err := enqueueUpsert(tx, syncq.TypeBidSignature, &sig.SyncFields); err != nil {
			return err
		}

		b.Status = models.BidAccepted
		if err := tx.Save(&b).Error; err != nil {
			return fmt.Errorf("store: accept bid %s: %w", bidID, err)
		}
		return enqueueUpsert(tx, syncq.TypeBid, &b.SyncFields)
	})
	if err != nil {
		return err
	}
	markQueued(&sig.SyncFields)
	return nil
}

// DeleteBid removes a bid with its line items and signature. Jobs
// referencing the bid block deletion unless cascade is requested, which
// detaches them (jobs belong to the client, not the bid).
func (s *Store) DeleteBid(localID string, cascade bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		var b models.Bid
		if err := first(tx, &b, localID); err != nil {
			return err
		}

		var refs int64
		if err := tx.Model(&models.Job{}).Where("bid_id = ?", localID).
			Count(&refs).Error; err != nil {
			return fmt.Errorf("store: check job references: %w", err)
		}
		if refs > 0 {
			if !cascade {
				return fmt.Errorf("store: %d jobs reference bid %s: %w", refs, localID, ErrReferentialConflict)
			}
			var jobs []models.Job
			if err := tx.Where("bid_id = ?", localID).Find(&jobs).Error; err != nil {
				return fmt.Errorf("store: load referencing jobs: %w", err)
			}
			for i := range jobs {
				if err := tx.Model(&models.Job{}).Where("local_id = ?", jobs[i].LocalID).
					Update("bid_id", nil).Error; err != nil {
					return fmt.Errorf("store: detach job %s: %w", jobs[i].LocalID, err)
				}
				if err := enqueueUpsert(tx, syncq.TypeJob, &jobs[i].SyncFields); err != nil {
					return err
				}
			}
		}

		return deleteBidTx(tx, &b)
	})
}

// GetBid loads a bid with its line items in order and its signature.
func (s *Store) GetBid(localID string) (*models.Bid, error) {
	var b models.Bid
	if err := first(s.db, &b, localID); err != nil {
		return nil, err
	}
	if err := s.db.Where("bid_id = ?", localID).
		Order("sort_order ASC").Find(&b.LineItems).Error; err != nil {
		return nil, fmt.Errorf("store: load line items of %s: %w", localID, err)
	}
	var sig models.BidSignature
	err := s.db.Where("bid_id = ?", localID).First(&sig).Error
	switch {
	case err == nil:
		b.Signature = &sig
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("store: load signature of %s: %w", localID, err)
	}
	return &b, nil
}

// ListBids returns bids matching the optional GORM conditions.
func (s *Store) ListBids(conds ...interface{}) ([]models.Bid, error) {
	var bids []models.Bid
	if err := s.db.Order("created_at ASC").Find(&bids, conds...).Error; err != nil {
		return nil, fmt.Errorf("store: list bids: %w", err)
	}
	return bids, nil
}

// deleteBidTx removes a bid with its line items and signature inside an
// open transaction, queueing remote deletes for everything that was pushed.
func deleteBidTx(tx *gorm.DB, b *models.Bid) error {
	var items []models.BidLineItem
	if err := tx.Where("bid_id = ?", b.LocalID).Find(&items).Error; err != nil {
		return fmt.Errorf("store: load line items of %s: %w", b.LocalID, err)
	}
	for i := range items {
		if err := tx.Where("local_id = ?", items[i].LocalID).Delete(&models.BidLineItem{}).Error; err != nil {
			return fmt.Errorf("store: delete line item %s: %w", items[i].LocalID, err)
		}
		if err := enqueueDelete(tx, syncq.TypeBidLineItem, &items[i].SyncFields); err != nil {
			return err
		}
	}

	var sig models.BidSignature
	err := tx.Where("bid_id = ?", b.LocalID).First(&sig).Error
	switch {
	case err == nil:
		if err := tx.Where("local_id = ?", sig.LocalID).Delete(&models.BidSignature{}).Error; err != nil {
			return fmt.Errorf("store: delete signature %s: %w", sig.LocalID, err)
		}
		if err := enqueueDelete(tx, syncq.TypeBidSignature, &sig.SyncFields); err != nil {
			return err
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("store: load signature of %s: %w", b.LocalID, err)
	}

	if err := tx.Where("local_id = ?", b.LocalID).Delete(&models.Bid{}).Error; err != nil {
		return fmt.Errorf("store: delete bid %s: %w", b.LocalID, err)
	}
	return enqueueDelete(tx, syncq.TypeBid, &b.SyncFields)
}

// bidMutable rejects edits to a signed bid.
func bidMutable(tx *gorm.DB, b *models.Bid) error {
	var signed int64
	if err := tx.Model(&models.BidSignature{}).Where("bid_id = ?", b.LocalID).
		Count(&signed).Error; err != nil {
		return fmt.Errorf("store: check signature: %w", err)
	}
	if signed > 0 {
		return fmt.Errorf("store: bid %s is signed: %w", b.LocalID, ErrImmutable)
	}
	return nil
}

// renumberLineItemsTx rewrites sort_order contiguously from 0 in current order.
func renumberLineItemsTx(tx *gorm.DB, bidID string) error {
	var items []models.BidLineItem
	if err := tx.Where("bid_id = ?", bidID).
		Order("sort_order ASC").Find(&items).Error; err != nil {
		return fmt.Errorf("store: load line items of %s: %w", bidID, err)
	}
	for pos := range items {
		if items[pos].SortOrder == pos {
			continue
		}
		if err := tx.Model(&models.BidLineItem{}).Where("local_id = ?", items[pos].LocalID).
			Update("sort_order", pos).Error; err != nil {
			return fmt.Errorf("store: renumber line item %s: %w", items[pos].LocalID, err)
		}
		if err := enqueueUpsert(tx, syncq.TypeBidLineItem, &items[pos].SyncFields); err != nil {
			return err
		}
	}
	return nil
}

// recomputeBidTx rederives pricing from current line item rows, persists
// the bid, and queues it for push.
func recomputeBidTx(tx *gorm.DB, b *models.Bid) error {
	var items []models.BidLineItem
	if err := tx.Where("bid_id = ?", b.LocalID).
		Order("sort_order ASC").Find(&items).Error; err != nil {
		return fmt.Errorf("store: load line items of %s: %w", b.LocalID, err)
	}
	derive.RecomputeBid(b, items)
	if err := tx.Save(b).Error; err != nil {
		return fmt.Errorf("store: save bid %s: %w", b.LocalID, err)
	}
	return enqueueUpsert(tx, syncq.TypeBid, &b.SyncFields)
}

// validateBid rejects malformed bids before they reach disk.
func validateBid(b *models.Bid) error {
	if b.Number == "" {
		return fmt.Errorf("store: bid number is required: %w", ErrValidation)
	}
	if b.Status == "" {
		b.Status = models.BidDraft
	}
	if !models.ValidBidStatus(b.Status) {
		return fmt.Errorf("store: unknown bid status %q: %w", b.Status, ErrValidation)
	}
	if b.Tier == "" {
		b.Tier = models.TierGood
	}
	if !models.ValidBidTier(b.Tier) {
		return fmt.Errorf("store: unknown bid tier %q: %w", b.Tier, ErrValidation)
	}
	if b.TaxRate < 0 || b.TaxRate > 1 {
		return fmt.Errorf("store: tax rate %v outside [0,1]: %w", b.TaxRate, ErrValidation)
	}
	return nil
}
