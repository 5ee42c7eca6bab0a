package store

import (
	"errors"

	"evalgo.org/qosd/models"
)

// Statistics contains record counts for the status API and CLI.
type Statistics struct {
	// Records is the number of records per kind
	Records map[models.Kind]int `json:"records" yaml:"records"`

	// Total is the number of records across all kinds
	Total int `json:"total" yaml:"total"`

	// Path is the database file
	Path string `json:"path" yaml:"path"`
}

// GetStatistics counts the records of every kind.
func (s *Store) GetStatistics() (*Statistics, error) {
	stats := &Statistics{
		Records: make(map[models.Kind]int),
		Path:    s.Path(),
	}

	err := s.View(func(txn *Txn) error {
		for _, kind := range models.Kinds() {
			refs, err := txn.Records(kind)
			if err != nil {
				return err
			}
			stats.Records[kind] = len(refs)
			stats.Total += len(refs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
