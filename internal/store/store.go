// Package store persists saved creations: the original photo, the result
// and its caption.
//
// Two backends implement CreationStore. FileStore keeps one compressed
// record per creation under a local directory and is the default.
// CloudStore keeps metadata in DynamoDB and image payloads in S3 for users
// who want their gallery off the device. Both assign ids from a monotonic
// counter and list newest first.
package store

import (
	"context"
	"errors"
	"slices"
	"time"
)

// SchemaVersion is written on first Open and checked on every later Open.
const SchemaVersion = 1

// ErrNotOpen is returned by every operation before Open or after Close.
var ErrNotOpen = errors.New("DB not initialized")

// Creation is a saved result. Records are never mutated after Add.
type Creation struct {
	ID int64 `json:"id" dynamodbav:"id"`
	// Timestamp is milliseconds since the Unix epoch.
	Timestamp             int64  `json:"timestamp" dynamodbav:"timestamp"`
	OriginalImageBase64   string `json:"originalImageBase64" dynamodbav:"-"`
	OriginalImageMIMEType string `json:"originalImageMimeType" dynamodbav:"originalImageMimeType"`
	ToonifiedImageBase64  string `json:"toonifiedImageBase64" dynamodbav:"-"`
	Caption               string `json:"caption" dynamodbav:"caption"`
}

// NewCreation is the caller-supplied part of a Creation.
type NewCreation struct {
	OriginalImageBase64   string
	OriginalImageMIMEType string
	ToonifiedImageBase64  string
	Caption               string
}

// CreationStore is the persistence interface used by the studio. Open is
// idempotent. Deleting an absent id succeeds.
type CreationStore interface {
	Open(ctx context.Context) error
	Add(ctx context.Context, c NewCreation) (int64, error)
	List(ctx context.Context) ([]Creation, error)
	Delete(ctx context.Context, id int64) error
	Close() error
}

func newCreation(id int64, c NewCreation) Creation {
	return Creation{
		ID:                    id,
		Timestamp:             time.Now().UnixMilli(),
		OriginalImageBase64:   c.OriginalImageBase64,
		OriginalImageMIMEType: c.OriginalImageMIMEType,
		ToonifiedImageBase64:  c.ToonifiedImageBase64,
		Caption:               c.Caption,
	}
}

// sortNewestFirst orders by descending id, which is insertion order reversed.
func sortNewestFirst(cs []Creation) {
	slices.SortFunc(cs, func(a, b Creation) int {
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})
}
