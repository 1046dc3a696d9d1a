package protocol

import "github.com/oklog/ulid/v2"

// NewID returns a fresh message id. Ids are ULIDs, so they sort by creation time.
func NewID() string {
	return ulid.Make().String()
}
