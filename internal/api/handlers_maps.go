package api

import (
	"errors"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"

	"evalgo.org/qosd/internal/store"
	"evalgo.org/qosd/models"
)

// listCosMap handles GET /api/v1/maps/cos
// Rows are the live rows the system record references, ordered by code point.
func (s *Server) listCosMap(c echo.Context) error {
	var rows []*models.CosMapEntry
	err := s.store.View(func(txn *store.Txn) error {
		refs, err := liveRows(txn, models.KindCosMapEntry)
		if err != nil {
			return err
		}
		rows = make([]*models.CosMapEntry, 0, len(refs))
		for _, ref := range refs {
			var row models.CosMapEntry
			if err := txn.Get(models.KindCosMapEntry, ref, &row); err != nil {
				return err
			}
			rows = append(rows, &row)
		}
		return nil
	})
	if err != nil {
		return storeError(err, "CoS map", "")
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CodePoint < rows[j].CodePoint })
	return c.JSON(http.StatusOK, page(c, rows))
}

// listDscpMap handles GET /api/v1/maps/dscp
func (s *Server) listDscpMap(c echo.Context) error {
	var rows []*models.DscpMapEntry
	err := s.store.View(func(txn *store.Txn) error {
		refs, err := liveRows(txn, models.KindDscpMapEntry)
		if err != nil {
			return err
		}
		rows = make([]*models.DscpMapEntry, 0, len(refs))
		for _, ref := range refs {
			var row models.DscpMapEntry
			if err := txn.Get(models.KindDscpMapEntry, ref, &row); err != nil {
				return err
			}
			rows = append(rows, &row)
		}
		return nil
	})
	if err != nil {
		return storeError(err, "DSCP map", "")
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CodePoint < rows[j].CodePoint })
	return c.JSON(http.StatusOK, page(c, rows))
}

func liveRows(txn *store.Txn, kind models.Kind) ([]models.Ref, error) {
	sys, err := txn.System()
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if kind == models.KindDscpMapEntry {
		return sys.DscpMapEntries, nil
	}
	return sys.CosMapEntries, nil
}

func page[T any](c echo.Context, items []T) ListResponse[T] {
	limit, offset := parsePagination(c)
	window := paginate(items, limit, offset)
	return ListResponse[T]{
		Count:  len(window),
		Total:  len(items),
		Limit:  limit,
		Offset: offset,
		Items:  window,
	}
}
