/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"github.com/friendsincode/weekplanner/internal/models"
	"gorm.io/gorm"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		&models.Task{},
		&models.TimeSlot{},
		&models.ScheduleEntry{},
		&models.PlanRun{},
		&models.AuditLog{},
	); err != nil {
		return err
	}

	return applyPostgresScheduleOverlapGuard(database)
}

// applyPostgresScheduleOverlapGuard rejects stored entries that overlap
// another entry on the same day. HH:MM strings compare in time order.
func applyPostgresScheduleOverlapGuard(database *gorm.DB) error {
	if database.Dialector.Name() != "postgres" {
		return nil
	}

	stmt := `
CREATE OR REPLACE FUNCTION prevent_schedule_overlap()
RETURNS trigger
LANGUAGE plpgsql
AS $$
BEGIN
  IF NEW.end_time <= NEW.start_time THEN
    RAISE EXCEPTION 'schedule entry end must be after start'
      USING ERRCODE = '23514';
  END IF;

  IF EXISTS (
    SELECT 1
    FROM schedules s
    WHERE s.day = NEW.day
      AND s.id <> NEW.id
      AND s.start_time < NEW.end_time
      AND NEW.start_time < s.end_time
  ) THEN
    RAISE EXCEPTION 'overlapping schedule entries on %', NEW.day
      USING ERRCODE = '23514';
  END IF;

  RETURN NEW;
END;
$$;

DROP TRIGGER IF EXISTS trg_prevent_schedule_overlap ON schedules;

CREATE TRIGGER trg_prevent_schedule_overlap
BEFORE INSERT OR UPDATE OF day, start_time, end_time
ON schedules
FOR EACH ROW
EXECUTE FUNCTION prevent_schedule_overlap();
`
	if err := database.Exec(stmt).Error; err != nil {
		return fmt.Errorf("apply postgres schedule overlap guard: %w", err)
	}

	return nil
}
