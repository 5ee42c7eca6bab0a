package api

import (
	"evalgo.org/qosd/models"
)

// ListResponse is the envelope of every list endpoint.
type ListResponse[T any] struct {
	Count  int `json:"count"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Items  []T `json:"items"`
}

// ProfileSummary describes one profile in a profile listing.
type ProfileSummary struct {
	ID        models.Ref `json:"id"`
	Name      string     `json:"name"`
	HWDefault bool       `json:"hw_default"`
	Active    bool       `json:"active"`
	Queues    []int      `json:"queues"`
}

// ScheduleProfileResponse is a scheduling profile with its queue entries
// resolved.
type ScheduleProfileResponse struct {
	Profile *models.Profile            `json:"profile"`
	Active  bool                       `json:"active"`
	Queues  map[int]*models.QueueEntry `json:"queues"`
}

// QueueProfileResponse is a queue mapping profile with its entries resolved.
type QueueProfileResponse struct {
	Profile *models.Profile               `json:"profile"`
	Active  bool                          `json:"active"`
	Queues  map[int]*models.PriorityEntry `json:"queues"`
}

// SystemResponse is the system record plus the trust mode pulled out of
// its QoS config.
type SystemResponse struct {
	System *models.System `json:"system"`
	Trust  string         `json:"trust,omitempty"`
}
