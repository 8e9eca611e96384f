package store

import "time"

// EventTypeAdvertisement is the head's record that some worker recently
// offered an event type (spec §3 "Event-type advertisement").
type EventTypeAdvertisement struct {
	NamespaceID string
	EventType   string
	HeartbeatTS time.Time
}
