// Package api provides the HTTP API server for the SalesCube analysis service.
package api

import (
	"github.com/salescube-io/salescube/internal/olap"
)

type (
	// Version represents the API version response structure.
	Version struct {
		Version     string `json:"version"`
		ServiceName string `json:"serviceName"`
		BuildInfo   string `json:"buildInfo,omitempty"`
	}

	// HealthStatus represents the health check response structure.
	HealthStatus struct {
		Status      string `json:"status"`
		ServiceName string `json:"serviceName"`
		Version     string `json:"version"`
		Uptime      string `json:"uptime,omitempty"`
	}

	// AggregateCell is the JSON shape of one aggregate row. A collapsed
	// dimension is rendered as null, never as a placeholder string, so
	// clients can distinguish "aggregated away" from a real value.
	AggregateCell struct {
		Geography *string `json:"geography"`
		Time      *string `json:"time"`
		Product   *string `json:"product"`
		Quantity  int64   `json:"quantity"`
		Revenue   float64 `json:"revenue"`
		Count     int64   `json:"count"`
	}

	// ClassifiedCell is an AggregateCell labeled with its cube
	// aggregation level.
	ClassifiedCell struct {
		AggregateCell

		Level string `json:"level"`
	}

	// SetCell is an AggregateCell labeled with the grouping set that
	// produced it.
	SetCell struct {
		AggregateCell

		Set string `json:"set"`
	}

	// MeasuresPayload is the JSON shape of one measures triple.
	MeasuresPayload struct {
		Quantity int64   `json:"quantity"`
		Revenue  float64 `json:"revenue"`
		Count    int64   `json:"count"`
	}

	// CrossTabPayload is the JSON shape of a formatted cross-tab.
	CrossTabPayload struct {
		Rows         []string                   `json:"rows"`
		Columns      []string                   `json:"columns"`
		Cells        [][]MeasuresPayload        `json:"cells"`
		RowTotals    []MeasuresPayload          `json:"rowTotals"`
		ColumnTotals []MeasuresPayload          `json:"columnTotals"`
		GeoTotals    map[string]MeasuresPayload `json:"geoTotals"`
		GrandTotal   MeasuresPayload            `json:"grandTotal"`
	}
)

// newAggregateCell converts an engine row to its JSON shape.
func newAggregateCell(row olap.AggregateRow) AggregateCell {
	cell := AggregateCell{
		Quantity: row.Measures.Quantity,
		Revenue:  row.Measures.Revenue,
		Count:    row.Measures.Count,
	}

	if !row.Collapsed[olap.Geography] {
		v := row.Values[olap.Geography]
		cell.Geography = &v
	}

	if !row.Collapsed[olap.Time] {
		v := row.Values[olap.Time]
		cell.Time = &v
	}

	if !row.Collapsed[olap.Product] {
		v := row.Values[olap.Product]
		cell.Product = &v
	}

	return cell
}

// newClassifiedCells converts classified cube rows.
func newClassifiedCells(rows []olap.ClassifiedRow) []ClassifiedCell {
	out := make([]ClassifiedCell, 0, len(rows))
	for _, row := range rows {
		out = append(out, ClassifiedCell{
			AggregateCell: newAggregateCell(row.AggregateRow),
			Level:         row.Level.String(),
		})
	}

	return out
}

// newSetCells converts classified grouping-set rows.
func newSetCells(rows []olap.SetRow) []SetCell {
	out := make([]SetCell, 0, len(rows))
	for _, row := range rows {
		out = append(out, SetCell{
			AggregateCell: newAggregateCell(row.AggregateRow),
			Set:           row.Set.String(),
		})
	}

	return out
}

// newMeasuresPayload converts one measures triple.
func newMeasuresPayload(m olap.Measures) MeasuresPayload {
	return MeasuresPayload{Quantity: m.Quantity, Revenue: m.Revenue, Count: m.Count}
}

// newCrossTabPayload converts a formatted cross-tab.
func newCrossTabPayload(ct *olap.CrossTab) *CrossTabPayload {
	if ct == nil {
		return nil
	}

	payload := &CrossTabPayload{
		Rows:       ct.Rows,
		Columns:    ct.Columns,
		Cells:      make([][]MeasuresPayload, len(ct.Cells)),
		GeoTotals:  make(map[string]MeasuresPayload, len(ct.GeoTotals)),
		GrandTotal: newMeasuresPayload(ct.GrandTotal),
	}

	for i, row := range ct.Cells {
		payload.Cells[i] = make([]MeasuresPayload, len(row))
		for j, m := range row {
			payload.Cells[i][j] = newMeasuresPayload(m)
		}
	}

	payload.RowTotals = make([]MeasuresPayload, len(ct.RowTotals))
	for i, m := range ct.RowTotals {
		payload.RowTotals[i] = newMeasuresPayload(m)
	}

	payload.ColumnTotals = make([]MeasuresPayload, len(ct.ColumnTotals))
	for i, m := range ct.ColumnTotals {
		payload.ColumnTotals[i] = newMeasuresPayload(m)
	}

	for geo, m := range ct.GeoTotals {
		payload.GeoTotals[geo] = newMeasuresPayload(m)
	}

	return payload
}
