package database

import (
	"database/sql"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"geotrace/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SaveTrace stores a finished run and its hops in arrival order
func (db *DB) SaveTrace(summary models.TraceSummary, hops []models.HopRecord) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
        INSERT INTO traces (target, started_at, finished_at, status, message, hop_count, avg_latency_ms, path_distance_km)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `,
		summary.Target,
		summary.StartedAt.UTC(),
		summary.FinishedAt.UTC(),
		string(summary.Status),
		summary.Message,
		summary.HopCount,
		nullFloat(summary.AvgLatencyMs),
		summary.PathDistanceKm,
	)
	if err != nil {
		return 0, fmt.Errorf("insert trace: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("trace id: %w", err)
	}

	for seq, h := range hops {
		rtt, err := json.Marshal(h.RTTSamples)
		if err != nil {
			return 0, fmt.Errorf("marshal rtt: %w", err)
		}
		var lat, lon *float64
		var city, country string
		if h.Location != nil {
			lat, lon = h.Location.Latitude, h.Location.Longitude
			city, country = h.Location.City, h.Location.Country
		}
		_, err = tx.Exec(`
            INSERT INTO hops (trace_id, seq, hop_number, ip, hostname, rtt_ms, latitude, longitude,
                              city, country, organization, asn, reputation_score, error)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        `,
			id, seq, h.HopNumber, h.Address, h.Hostname, string(rtt),
			nullFloat(lat), nullFloat(lon), city, country,
			h.Organization, h.ASN, nullFloat(h.ReputationScore), h.Error,
		)
		if err != nil {
			return 0, fmt.Errorf("insert hop %d: %w", h.HopNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

const traceColumns = `id, target, started_at, finished_at, status, message, hop_count, avg_latency_ms, path_distance_km`

// GetTraces retrieves the most recent runs
func (db *DB) GetTraces(limit int) ([]models.TraceSummary, error) {
	rows, err := db.Query(`SELECT `+traceColumns+` FROM traces ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var traces []models.TraceSummary
	for rows.Next() {
		t, err := scanTrace(rows)
		if err != nil {
			continue
		}
		traces = append(traces, t)
	}
	return traces, rows.Err()
}

// GetTrace retrieves one run by ID
func (db *DB) GetTrace(id int64) (models.TraceSummary, error) {
	row := db.QueryRow(`SELECT `+traceColumns+` FROM traces WHERE id = ?`, id)
	t, err := scanTrace(row)
	if err == sql.ErrNoRows {
		return t, fmt.Errorf("trace %d not found: %w", id, err)
	}
	return t, err
}

// GetHops retrieves the hops of a run in arrival order
func (db *DB) GetHops(traceID int64) ([]models.HopRecord, error) {
	rows, err := db.Query(`
        SELECT hop_number, ip, hostname, rtt_ms, latitude, longitude, city, country,
               organization, asn, reputation_score, error
        FROM hops
        WHERE trace_id = ?
        ORDER BY seq
    `, traceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hops []models.HopRecord
	for rows.Next() {
		var h models.HopRecord
		var hostname, rtt, city, country, org, errMsg sql.NullString
		var lat, lon, score sql.NullFloat64
		var asn sql.NullInt64
		if err := rows.Scan(&h.HopNumber, &h.Address, &hostname, &rtt, &lat, &lon,
			&city, &country, &org, &asn, &score, &errMsg); err != nil {
			continue
		}
		h.Hostname = hostname.String
		h.Organization = org.String
		h.Error = errMsg.String
		h.ASN = int(asn.Int64)
		h.RTTSamples = []float64{}
		if rtt.Valid {
			if err := json.UnmarshalFromString(rtt.String, &h.RTTSamples); err != nil {
				h.RTTSamples = []float64{}
			}
		}
		if score.Valid {
			s := score.Float64
			h.ReputationScore = &s
		}
		if lat.Valid || lon.Valid || city.String != "" || country.String != "" {
			h.Location = &models.Location{City: city.String, Country: country.String}
			if lat.Valid {
				v := lat.Float64
				h.Location.Latitude = &v
			}
			if lon.Valid {
				v := lon.Float64
				h.Location.Longitude = &v
			}
		}
		hops = append(hops, h)
	}
	return hops, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrace(s scanner) (models.TraceSummary, error) {
	var t models.TraceSummary
	var status string
	var message sql.NullString
	var avg, dist sql.NullFloat64
	err := s.Scan(&t.ID, &t.Target, &t.StartedAt, &t.FinishedAt, &status, &message,
		&t.HopCount, &avg, &dist)
	if err != nil {
		return t, err
	}
	t.Status = models.OutcomeStatus(status)
	t.Message = message.String
	t.PathDistanceKm = dist.Float64
	if avg.Valid {
		v := avg.Float64
		t.AvgLatencyMs = &v
	}
	return t, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

var _ models.Database = (*DB)(nil)
