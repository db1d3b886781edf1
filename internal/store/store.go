// Package store persists the harvested collection.
//
// Every backend replaces the whole collection on Save: a reader sees either
// the previous collection or the new one, never a mix. Load returns the
// records in the order they were saved, or an error matching
// errors.ErrNotFound when nothing was saved yet.
package store

import (
	"context"

	"github.com/ppiankov/harvester/internal/model"
)

// Sink is the persistence contract of a harvest cycle.
type Sink interface {
	Save(ctx context.Context, records []model.Record) error
	Load(ctx context.Context) ([]model.Record, error)
}

// Store is a Sink holding resources that must be released.
type Store interface {
	Sink
	Close() error
}

// Decoder turns a saved document array back into records.
type Decoder interface {
	Extract(raw []byte) ([]model.Record, error)
}
