package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/corpledger-dev/corpledger/internal/model"
)

// SaveIndustryPage commits one page of industry jobs and advances the
// industry cursor in a single transaction. Jobs in a terminal status are
// never rewritten; running jobs are updated in place so status transitions
// (active -> delivered) land on the stored row.
func (s *Store) SaveIndustryPage(ctx context.Context, jobs []model.IndustryJob, cursor int64) (Counts, error) {
	var counts Counts
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, j := range jobs {
			var status string
			err := tx.QueryRowContext(ctx,
				`SELECT status FROM industry_jobs WHERE job_id = ?`, j.JobID).Scan(&status)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				if err := writeJob(ctx, tx, j, true); err != nil {
					return err
				}
				counts.Inserted++
			case err != nil:
				return fmt.Errorf("checking industry job %d: %w", j.JobID, err)
			case model.JobStatus(status).Terminal():
				counts.Skipped++
			default:
				if err := writeJob(ctx, tx, j, false); err != nil {
					return err
				}
				counts.Updated++
			}
		}
		return advanceCursor(ctx, tx, DomainIndustry, cursor)
	})
	return counts, err
}

func writeJob(ctx context.Context, tx *sql.Tx, j model.IndustryJob, insert bool) error {
	var err error
	if insert {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO industry_jobs (
				job_id, installer_id, facility_id, location_id, activity_id,
				blueprint_id, blueprint_type_id, product_type_id,
				runs, successful_runs, cost, status, duration,
				start_date, end_date, pause_date, completed_date,
				completed_character_id, output_location_id, raw_json
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			j.JobID, j.InstallerID, j.FacilityID, j.LocationID, j.ActivityID,
			j.BlueprintID, j.BlueprintTypeID, j.ProductTypeID,
			j.Runs, j.SuccessfulRuns, j.Cost.String(), string(j.Status), j.Duration,
			timeToDB(j.StartDate), timeToDB(j.EndDate), timeToDB(j.PauseDate), timeToDB(j.CompletedDate),
			j.CompletedCharID, j.OutputLocationID, string(j.Raw))
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE industry_jobs SET
				installer_id = ?, facility_id = ?, location_id = ?, activity_id = ?,
				blueprint_id = ?, blueprint_type_id = ?, product_type_id = ?,
				runs = ?, successful_runs = ?, cost = ?, status = ?, duration = ?,
				start_date = ?, end_date = ?, pause_date = ?, completed_date = ?,
				completed_character_id = ?, output_location_id = ?, raw_json = ?
			WHERE job_id = ?`,
			j.InstallerID, j.FacilityID, j.LocationID, j.ActivityID,
			j.BlueprintID, j.BlueprintTypeID, j.ProductTypeID,
			j.Runs, j.SuccessfulRuns, j.Cost.String(), string(j.Status), j.Duration,
			timeToDB(j.StartDate), timeToDB(j.EndDate), timeToDB(j.PauseDate), timeToDB(j.CompletedDate),
			j.CompletedCharID, j.OutputLocationID, string(j.Raw),
			j.JobID)
	}
	if err != nil {
		return fmt.Errorf("writing industry job %d: %w", j.JobID, err)
	}
	return nil
}

// DeliveredJobs returns delivered jobs with a known installer and cost,
// oldest first. These feed the industry credit flow rule.
func (s *Store) DeliveredJobs(ctx context.Context) ([]model.IndustryJob, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT job_id, installer_id, facility_id, location_id, activity_id,
		       blueprint_id, blueprint_type_id, product_type_id,
		       runs, successful_runs, cost, status, duration,
		       start_date, end_date, pause_date, completed_date,
		       completed_character_id, output_location_id, raw_json
		FROM industry_jobs
		WHERE status = ? AND installer_id != 0
		ORDER BY end_date ASC, job_id ASC`,
		string(model.JobDelivered))
	if err != nil {
		return nil, fmt.Errorf("querying delivered jobs: %w", err)
	}
	defer rows.Close()

	var out []model.IndustryJob
	for rows.Next() {
		var j model.IndustryJob
		var cost, status string
		var start, end, pause, completed string
		var raw string
		err := rows.Scan(&j.JobID, &j.InstallerID, &j.FacilityID, &j.LocationID, &j.ActivityID,
			&j.BlueprintID, &j.BlueprintTypeID, &j.ProductTypeID,
			&j.Runs, &j.SuccessfulRuns, &cost, &status, &j.Duration,
			&start, &end, &pause, &completed,
			&j.CompletedCharID, &j.OutputLocationID, &raw)
		if err != nil {
			return nil, fmt.Errorf("scanning industry job: %w", err)
		}
		j.Cost = decFromDB(cost)
		j.Status = model.JobStatus(status)
		j.StartDate = timeFromDB(start)
		j.EndDate = timeFromDB(end)
		j.PauseDate = timeFromDB(pause)
		j.CompletedDate = timeFromDB(completed)
		j.Raw = []byte(raw)
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating industry jobs: %w", err)
	}
	return out, nil
}
