package model

// PoolEventRecord is the persisted envelope for one emitted notification.
type PoolEventRecord struct {
	Seq       uint64      `json:"seq"`
	Pool      string      `json:"pool"`
	EventName string      `json:"event_name"`
	Timestamp uint64      `json:"timestamp"`
	Decoded   interface{} `json:"decoded"`
}
