package models

// System is the switch-wide record. It owns the references to the active
// QoS configuration: the default schedule and queue profiles, the live
// CoS/DSCP map rows and the free-form QoS config map (qos_trust, ...).
//
// Factory-default profiles are never referenced from here; they are looked
// up by name when needed.
type System struct {
	Header

	// ScheduleProfile is the active queue scheduling profile
	ScheduleProfile Ref `json:"qos,omitempty"`

	// QueueProfile is the active queue mapping profile
	QueueProfile Ref `json:"q_profile,omitempty"`

	// CosMapEntries are the live CoS map rows
	CosMapEntries []Ref `json:"qos_cos_map_entries,omitempty"`

	// DscpMapEntries are the live DSCP map rows
	DscpMapEntries []Ref `json:"qos_dscp_map_entries,omitempty"`

	// QoSConfig is the free-form QoS key/value map
	QoSConfig map[string]string `json:"qos_config,omitempty"`
}
