package storage

import "poolCore/internal/model"

// Storage is a sink for replay output: emitted pool events and final pool
// state snapshots.
type Storage interface {
	PutEventBatch(events []model.PoolEventRecord) error
	PutPoolStates(states []model.PoolStateRecord) error
}
