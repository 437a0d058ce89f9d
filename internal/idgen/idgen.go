// Package idgen generates the identifiers used across the store and the
// live channel.
package idgen

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// New returns a UUIDv7 string, the id format for persisted rows. Falls back
// to a random UUIDv4 if v7 generation fails.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Ordered returns a ULID string. Used for live envelope ids, where clients
// sort by id across sockets.
func Ordered() string {
	return ulid.Make().String()
}
