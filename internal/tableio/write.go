package tableio

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/banshee-data/temporal-compression/internal/trial"
)

// FlatHeader is the column order of the flat row-per-trial output.
func FlatHeader() []string {
	h := []string{"condition", "row", ColParticipant, ColRoute,
		ColPathTime, ColSimTime, ColDistance, ColReactionTime}
	for _, r := range trial.Ratings() {
		h = append(h, r.Column())
	}
	return append(h, ColOptimalTime, "diff", "sim_centered", "compression", "log_compression",
		"excluded", "exclusion")
}

// FormatNull renders a nullable value; nulls are empty cells.
func FormatNull(v sql.NullFloat64) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float64, 'g', -1, 64)
}

func flatRecord(c trial.Condition, tr trial.Trial) []string {
	rec := []string{string(c), strconv.Itoa(tr.Row), tr.ParticipantID, tr.RouteID,
		FormatNull(tr.PathTime), FormatNull(tr.SimTime), FormatNull(tr.Distance), FormatNull(tr.ReactionTime)}
	for _, r := range trial.Ratings() {
		rec = append(rec, FormatNull(tr.Ratings[r]))
	}
	return append(rec,
		FormatNull(tr.OptimalTime), FormatNull(tr.Diff), FormatNull(tr.SimCentered),
		FormatNull(tr.Compression), FormatNull(tr.LogCompression),
		strconv.FormatBool(tr.Excluded), string(tr.Exclusion))
}

// WriteFlat writes every trial of every table, in table then row order,
// tagged with its condition.
func WriteFlat(w io.Writer, tables ...*trial.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(FlatHeader()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, tr := range t.Trials {
			if err := cw.Write(flatRecord(t.Condition, tr)); err != nil {
				return fmt.Errorf("failed to write %s row %d: %w", t.Condition, tr.Row, err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
