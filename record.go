package tinybase

import "github.com/google/uuid"

// Record pairs a stable identifier with the value stored under it. IDs
// are minted at insertion and never change across an update.
type Record[T any] struct {
	ID   uuid.UUID
	Data T
}
