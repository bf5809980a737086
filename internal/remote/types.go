// Package remote is the client for the service of record. The service is a
// black-box REST API reachable only when the device is online; this package
// only shapes requests and classifies failures, all sync policy lives in
// syncq.
package remote

import (
	"encoding/json"
	"fmt"
	"time"
)

// PushResult is the remote's answer to a successful create or update.
type PushResult struct {
	RemoteID string    `json:"id"`
	Version  time.Time `json:"version"`
}

// Record is a remote entity as returned by pulls and conflict responses.
type Record struct {
	RemoteID string          `json:"id"`
	LocalID  string          `json:"localId,omitempty"`
	Version  time.Time       `json:"version"`
	Deleted  bool            `json:"deleted,omitempty"`
	Fields   json.RawMessage `json:"fields"`
}

// apiError is the structured error body every failing call returns.
type apiError struct {
	Err       string `json:"error"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"requestId"`
}

// RejectedError is a non-retryable 4xx rejection from the remote. The sync
// layer surfaces these immediately instead of retrying.
type RejectedError struct {
	Status    int
	Message   string
	Details   string
	RequestID string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("remote: rejected (%d): %s (request %s)", e.Status, e.Message, e.RequestID)
}

// ConflictError indicates the remote holds a newer version of the record.
// The current remote record rides along for reconciliation.
type ConflictError struct {
	Remote Record
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("remote: conflict: remote version %s is newer", e.Remote.Version.Format(time.RFC3339))
}
