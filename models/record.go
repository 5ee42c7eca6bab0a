// Package models defines the QoS records kept in the switch configuration
// store.
//
// Every record is a JSON document identified by a Ref and typed by a Kind,
// mirroring the @id/@type convention used throughout the store:
//
//	{
//	  "@id": "queue:5b0c...",
//	  "@type": "Queue",
//	  "algorithm": "wrr",
//	  "weight": 7
//	}
//
// Records point at each other through Refs. The System record is the root:
// it references the active profiles and the live CoS/DSCP map rows.
package models

// Ref identifies a record in the configuration store.
type Ref string

// Kind is the record type, used as the @type value and the store table name.
type Kind string

const (
	// KindScheduleProfile holds queue scheduling profiles (queue -> Queue).
	KindScheduleProfile Kind = "ScheduleProfile"

	// KindQueue holds the per-queue scheduling entries of a schedule profile.
	KindQueue Kind = "Queue"

	// KindQueueProfile holds queue mapping profiles (queue -> QueueProfileEntry).
	KindQueueProfile Kind = "QueueProfile"

	// KindQueueProfileEntry holds the local priorities mapped to one queue.
	KindQueueProfileEntry Kind = "QueueProfileEntry"

	// KindCosMapEntry holds one row of the CoS classification map.
	KindCosMapEntry Kind = "CosMapEntry"

	// KindDscpMapEntry holds one row of the DSCP classification map.
	KindDscpMapEntry Kind = "DscpMapEntry"

	// KindSystem holds the switch-wide system record.
	KindSystem Kind = "System"
)

var kindPrefixes = map[Kind]string{
	KindScheduleProfile:   "qos",
	KindQueue:             "queue",
	KindQueueProfile:      "q_profile",
	KindQueueProfileEntry: "q_profile_entry",
	KindCosMapEntry:       "cos_map_entry",
	KindDscpMapEntry:      "dscp_map_entry",
	KindSystem:            "system",
}

// Kinds lists every record kind known to the store.
func Kinds() []Kind {
	return []Kind{
		KindScheduleProfile,
		KindQueue,
		KindQueueProfile,
		KindQueueProfileEntry,
		KindCosMapEntry,
		KindDscpMapEntry,
		KindSystem,
	}
}

// Prefix returns the ID prefix used for records of this kind.
func (k Kind) Prefix() string {
	if p, ok := kindPrefixes[k]; ok {
		return p
	}
	return string(k)
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kindPrefixes[k]
	return ok
}

func (k Kind) String() string {
	return string(k)
}

// Document is implemented by every record type so the store can assign
// identity on insert.
type Document interface {
	SetIdentity(kind Kind, ref Ref)
}

// Header carries the identity fields shared by all records.
type Header struct {
	// ID is the unique record reference
	ID Ref `json:"@id"`

	// Type is the record kind
	Type Kind `json:"@type"`
}

// SetIdentity implements Document.
func (h *Header) SetIdentity(kind Kind, ref Ref) {
	h.ID = ref
	h.Type = kind
}
