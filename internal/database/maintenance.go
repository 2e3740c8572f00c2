package database

import (
	"fmt"
	"time"
)

// PruneTraces deletes runs started more than days ago together with
// their hops, and returns how many runs were removed.
func (db *DB) PruneTraces(days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	if _, err := db.Exec(`DELETE FROM hops WHERE trace_id IN (SELECT id FROM traces WHERE started_at < ?)`, cutoff); err != nil {
		return 0, fmt.Errorf("prune hops: %w", err)
	}
	res, err := db.Exec(`DELETE FROM traces WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune traces: %w", err)
	}
	removed, _ := res.RowsAffected()

	// Vacuum to reclaim space (run occasionally)
	if removed > 0 && time.Now().Day() == 1 {
		if _, err := db.Exec("VACUUM"); err != nil {
			return removed, fmt.Errorf("vacuum: %w", err)
		}
	}
	return removed, nil
}
