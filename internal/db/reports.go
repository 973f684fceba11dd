package db

import (
	"context"
	"fmt"
	"time"

	"callcentre-bot/internal/models"
)

// CityReport aggregates order outcomes for one city over a period.
type CityReport struct {
	City     string
	Total    int
	Done     int
	Refused  int
	Modern   int
	Turnover float64
	Payroll  float64
}

// AvgCheck is turnover per completed order, 0 when nothing completed.
func (r CityReport) AvgCheck() float64 {
	if r.Done == 0 {
		return 0
	}
	return r.Turnover / float64(r.Done)
}

// MasterReport aggregates a single master's closed orders over a period.
type MasterReport struct {
	MasterID int64
	Name     string
	Done     int
	Refused  int
	Turnover float64
	Payroll  float64
}

// ReportByCity builds per-city aggregates for orders created or closed
// within [from, to).
func (d *DB) ReportByCity(ctx context.Context, cities []string, from, to time.Time) ([]CityReport, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT city,
		       COUNT(*) FILTER (WHERE create_date >= $2 AND create_date < $3),
		       COUNT(*) FILTER (WHERE status_order = $4 AND closing_data >= $2 AND closing_data < $3),
		       COUNT(*) FILTER (WHERE status_order = $5 AND closing_data >= $2 AND closing_data < $3),
		       COUNT(*) FILTER (WHERE status_order = $6),
		       COALESCE(SUM(clean) FILTER (WHERE status_order = $4 AND closing_data >= $2 AND closing_data < $3), 0)::float8,
		       COALESCE(SUM(master_change) FILTER (WHERE status_order = $4 AND closing_data >= $2 AND closing_data < $3), 0)::float8
		FROM orders
		WHERE city = ANY($1)
		  AND ((create_date >= $2 AND create_date < $3)
		    OR (closing_data >= $2 AND closing_data < $3)
		    OR status_order = $6)
		GROUP BY city
		ORDER BY city ASC`,
		cities, from, to,
		models.StatusDone, models.StatusRefused, models.StatusModern)
	if err != nil {
		return nil, fmt.Errorf("report by city: %w", err)
	}
	defer rows.Close()

	var out []CityReport
	for rows.Next() {
		var r CityReport
		if err := rows.Scan(&r.City, &r.Total, &r.Done, &r.Refused, &r.Modern,
			&r.Turnover, &r.Payroll); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReportByMasters builds per-master aggregates for orders closed within
// [from, to). Masters without closed orders still appear with zeros.
func (d *DB) ReportByMasters(ctx context.Context, cities []string, from, to time.Time) ([]MasterReport, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT m.id, m.name,
		       COUNT(o.id) FILTER (WHERE o.status_order = $4),
		       COUNT(o.id) FILTER (WHERE o.status_order = $5),
		       COALESCE(SUM(o.clean) FILTER (WHERE o.status_order = $4), 0)::float8,
		       COALESCE(SUM(o.master_change) FILTER (WHERE o.status_order = $4), 0)::float8
		FROM master m
		LEFT JOIN orders o
		       ON o.master_id = m.id AND o.closing_data >= $2 AND o.closing_data < $3
		WHERE m.cities && $1 AND m.status_work = $6
		GROUP BY m.id, m.name
		ORDER BY m.name ASC`,
		cities, from, to,
		models.StatusDone, models.StatusRefused, models.MasterStatusActive)
	if err != nil {
		return nil, fmt.Errorf("report by masters: %w", err)
	}
	defer rows.Close()

	var out []MasterReport
	for rows.Next() {
		var r MasterReport
		if err := rows.Scan(&r.MasterID, &r.Name, &r.Done, &r.Refused,
			&r.Turnover, &r.Payroll); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MasterStats summarizes one master's standing for the personal menu.
type MasterStats struct {
	Active int
	Modern int
	Done   int
	Earned float64
}

// GetMasterStats aggregates a master's orders across all time.
func (d *DB) GetMasterStats(ctx context.Context, masterID int64) (*MasterStats, error) {
	var s MasterStats
	err := d.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE status_order = ANY($2)),
		       COUNT(*) FILTER (WHERE status_order = $3),
		       COUNT(*) FILTER (WHERE status_order = $4),
		       COALESCE(SUM(master_change) FILTER (WHERE status_order = $4), 0)::float8
		FROM orders WHERE master_id = $1`,
		masterID,
		[]models.Status{models.StatusAccepted, models.StatusEnRoute, models.StatusInProgress},
		models.StatusModern, models.StatusDone).
		Scan(&s.Active, &s.Modern, &s.Done, &s.Earned)
	if err != nil {
		return nil, fmt.Errorf("master stats %d: %w", masterID, err)
	}
	return &s, nil
}
