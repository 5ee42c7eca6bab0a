// Package qos bootstraps and maintains the QoS configuration of the switch
// inside the configuration store.
//
// The engine never opens or commits a transaction. Every operation takes the
// caller's Txn, so a complete bootstrap (trust mode, CoS map, DSCP map,
// scheduling profile, queue mapping profile) runs as one unit of work and is
// committed or rolled back by the caller.
//
// # Usage Example
//
//	txn, err := st.Begin(true)
//	if err != nil {
//	    return err
//	}
//	defer txn.Rollback()
//
//	sys, err := txn.EnsureSystem()
//	if err != nil {
//	    return err
//	}
//
//	b := qos.NewBootstrapper(qos.NewProfileStore(logger), logger)
//	if err := b.Run(txn, sys); err != nil {
//	    return err
//	}
//	return txn.Commit()
//
// Profile lookup is a find-then-create sequence and is not atomic on its own.
// Callers that share a store must serialize writers, which the bbolt store
// does by allowing a single read-write transaction at a time.
package qos

import (
	"evalgo.org/qosd/models"
)

// Txn is the transaction handle of the configuration store.
type Txn interface {
	// Insert stores doc as a new record and returns its ref
	Insert(kind models.Kind, doc models.Document) (models.Ref, error)

	// Get decodes a record into out
	Get(kind models.Kind, ref models.Ref, out interface{}) error

	// Put replaces a whole record
	Put(kind models.Kind, ref models.Ref, doc interface{}) error

	// Records lists the refs of every record of a kind
	Records(kind models.Kind) ([]models.Ref, error)
}

// entryKind returns the kind of the records a profile kind points at.
func entryKind(kind models.Kind) (models.Kind, bool) {
	switch kind {
	case models.KindScheduleProfile:
		return models.KindQueue, true
	case models.KindQueueProfile:
		return models.KindQueueProfileEntry, true
	}
	return "", false
}
