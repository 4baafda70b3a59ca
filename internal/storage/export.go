package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/gridsim/internal/field"
)

type ExportData struct {
	Run       RunMetadata      `json:"run"`
	Snapshots []field.Snapshot `json:"snapshots"`
}

// ExportJSON writes meta and history as one indented JSON document.
func ExportJSON(w io.Writer, meta RunMetadata, history []field.Snapshot) error {
	if history == nil {
		history = []field.Snapshot{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{Run: meta, Snapshots: history})
}

// ExportCSV writes one row per snapshot: step, time, then every value in
// row-major order. Values are written with full precision.
func ExportCSV(w io.Writer, history []field.Snapshot) error {
	cw := csv.NewWriter(w)

	if len(history) > 0 {
		header := []string{"step", "time"}
		for i := range history[0].Values {
			header = append(header, fmt.Sprintf("v%d", i))
		}
		if err := cw.Write(header); err != nil {
			return err
		}
	}

	for _, snap := range history {
		row := make([]string, 0, len(snap.Values)+2)
		row = append(row, strconv.Itoa(snap.Step), strconv.FormatFloat(snap.Time, 'g', -1, 64))
		for _, v := range snap.Values {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
