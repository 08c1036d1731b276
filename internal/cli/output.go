package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/PratikDhanave/creation-sync/internal/pending"
	"github.com/PratikDhanave/creation-sync/internal/reconcile"
)

// viewRow is the JSON/text shape of one merged-view row.
type viewRow struct {
	State     string    `json:"state"` // "pending" | "confirmed"
	Token     string    `json:"token"`
	ID        string    `json:"id,omitempty"`
	TargetID  string    `json:"target_id,omitempty"`
	Method    string    `json:"method,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func rowsFromView(items []reconcile.Item) []viewRow {
	rows := make([]viewRow, 0, len(items))
	for _, it := range items {
		if it.Pending() {
			rows = append(rows, viewRow{
				State:     string(pending.StatusPending),
				Token:     it.Token,
				TargetID:  it.Entry.TargetID,
				Method:    it.Entry.Method,
				CreatedAt: it.Entry.CreatedAt,
			})
			continue
		}
		rows = append(rows, viewRow{
			State:     "confirmed",
			Token:     it.Token,
			ID:        it.Creation.ID,
			TargetID:  it.Creation.TargetID,
			Method:    it.Creation.Method,
			CreatedAt: it.Creation.CreatedAt,
		})
	}
	return rows
}

func rowsFromEntries(entries []pending.Entry) []viewRow {
	rows := make([]viewRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, viewRow{
			State:     string(e.Status),
			Token:     e.Token,
			TargetID:  e.TargetID,
			Method:    e.Method,
			CreatedAt: e.CreatedAt,
		})
	}
	return rows
}

func writeRows(w io.Writer, format string, rows []viewRow) error {
	if format == "json" {
		return writeJSON(w, rows)
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "(none)")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATE\tTOKEN\tID\tTARGET\tMETHOD\tCREATED")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.State, r.Token, dash(r.ID), dash(r.TargetID), dash(r.Method), r.CreatedAt.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
