// Package syncq is the sync state machine: the coalescing pending-change
// queue, the per-record lifecycle transitions, and the drain loop that
// pushes local changes to the service of record and pulls remote ones back.
package syncq

import (
	"fmt"

	"github.com/zulandar/fieldsync/internal/models"
)

// Entity type names on the wire and in the change queue.
const (
	TypeClient       = "client"
	TypeLead         = "lead"
	TypeMeasurement  = "measurement"
	TypeArea         = "area"
	TypeBid          = "bid"
	TypeBidLineItem  = "bid_line_item"
	TypeBidSignature = "bid_signature"
	TypeJob          = "job"
)

// Entity is any model carrying sync bookkeeping fields.
type Entity interface {
	Sync() *models.SyncFields
}

// EntityTypes lists all synchronizable types. The order matters only for
// pulls; pushes follow queue sequence, which is creation order.
func EntityTypes() []string {
	return []string{
		TypeClient, TypeLead, TypeMeasurement, TypeArea,
		TypeBid, TypeBidLineItem, TypeBidSignature, TypeJob,
	}
}

// NewEntity returns a fresh model instance for an entity type.
func NewEntity(entityType string) (Entity, error) {
	switch entityType {
	case TypeClient:
		return &models.Client{}, nil
	case TypeLead:
		return &models.Lead{}, nil
	case TypeMeasurement:
		return &models.Measurement{}, nil
	case TypeArea:
		return &models.Area{}, nil
	case TypeBid:
		return &models.Bid{}, nil
	case TypeBidLineItem:
		return &models.BidLineItem{}, nil
	case TypeBidSignature:
		return &models.BidSignature{}, nil
	case TypeJob:
		return &models.Job{}, nil
	}
	return nil, fmt.Errorf("syncq: unknown entity type %q", entityType)
}

// TableName returns the GORM table for an entity type.
func TableName(entityType string) (string, error) {
	switch entityType {
	case TypeClient:
		return "clients", nil
	case TypeLead:
		return "leads", nil
	case TypeMeasurement:
		return "measurements", nil
	case TypeArea:
		return "areas", nil
	case TypeBid:
		return "bids", nil
	case TypeBidLineItem:
		return "bid_line_items", nil
	case TypeBidSignature:
		return "bid_signatures", nil
	case TypeJob:
		return "jobs", nil
	}
	return "", fmt.Errorf("syncq: unknown entity type %q", entityType)
}
