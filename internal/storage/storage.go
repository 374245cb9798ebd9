package storage

import "launchpool/internal/model"

// Storage receives batches of pool events.
type Storage interface {
	PutEventBatch(events []model.PoolEvent) error
}
