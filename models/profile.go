package models

import "evalgo.org/qosd/internal/assoc"

// Profile is a named, reusable bundle of per-queue configuration.
//
// The same shape backs both profile kinds:
//   - KindScheduleProfile: Entries maps queue numbers to Queue records
//   - KindQueueProfile: Entries maps queue numbers to QueueProfileEntry records
//
// Example JSON representation:
//
//	{
//	  "@id": "qos:1f0e...",
//	  "@type": "ScheduleProfile",
//	  "name": "factory-default",
//	  "entries": [{"key": 7, "value": "queue:8a21..."}],
//	  "hw_default": true
//	}
type Profile struct {
	Header

	// Name is unique per kind and matched case-sensitively
	Name string `json:"name" validate:"required"`

	// Entries maps a queue number (0-7) to its entry record
	Entries assoc.Association[int, Ref] `json:"entries,omitempty"`

	// HWDefault marks the immutable factory-default variant
	HWDefault bool `json:"hw_default,omitempty"`
}

// Algorithm is a queue scheduling algorithm.
type Algorithm string

const (
	// AlgorithmStrict drains the queue fully before lower queues are served.
	AlgorithmStrict Algorithm = "strict"

	// AlgorithmWRR shares bandwidth in proportion to the queue weight.
	AlgorithmWRR Algorithm = "wrr"
)

// Valid reports whether a is a known algorithm.
func (a Algorithm) Valid() bool {
	return a == AlgorithmStrict || a == AlgorithmWRR
}

// QueueEntry is the scheduling configuration of one queue in a schedule
// profile. Weight is set if and only if Algorithm is wrr.
type QueueEntry struct {
	Header

	// Algorithm is strict or wrr
	Algorithm Algorithm `json:"algorithm" validate:"required,oneof=strict wrr"`

	// Weight is the WRR weight; nil for strict queues
	Weight *int `json:"weight,omitempty" validate:"omitempty,gt=0"`

	// HWDefault marks entries of the factory-default profile
	HWDefault bool `json:"hw_default,omitempty"`
}

// PriorityEntry lists the local priorities mapped to one queue of a queue
// mapping profile. LocalPriorities behaves as a set.
type PriorityEntry struct {
	Header

	// LocalPriorities are switch-internal priorities (0-7), without duplicates
	LocalPriorities []int `json:"local_priorities,omitempty" validate:"unique,dive,min=0,max=7"`

	// HWDefault marks entries of the factory-default profile
	HWDefault bool `json:"hw_default,omitempty"`
}

// HasLocalPriority reports whether priority is already mapped.
func (e *PriorityEntry) HasLocalPriority(priority int) bool {
	for _, p := range e.LocalPriorities {
		if p == priority {
			return true
		}
	}
	return false
}
