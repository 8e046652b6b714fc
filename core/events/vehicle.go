package events

import "time"

// Kind identifies a vehicle event.
type Kind string

const (
	KindReady   Kind = "ready"
	KindRetired Kind = "retired"
)

// VehicleEvent describes a change observed on a tracked vehicle.
type VehicleEvent struct {
	Kind          Kind      `json:"kind"`
	Plate         string    `json:"plate"`
	CurrentCharge int       `json:"current_charge"`
	TotalCharge   int       `json:"total_charge"`
	EstimatedAt   time.Time `json:"estimated,omitempty"`
	Time          time.Time `json:"time"`
}

// Publisher receives vehicle events. Implementations must not block.
type Publisher interface {
	Publish(VehicleEvent)
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(VehicleEvent) {}
