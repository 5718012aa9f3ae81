/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"errors"
	"time"
)

// ErrNotFound is returned by repositories when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Task is a stored task definition from the latest plan request.
type Task struct {
	ID          string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name        string     `gorm:"column:task_name;type:varchar(255);uniqueIndex;not null" json:"task_name"`
	HoursPerDay float64    `gorm:"not null;check:chk_tasks_hours,hours_per_day > 0 AND hours_per_day <= 24" json:"hours_per_day"`
	Deadline    *time.Time `gorm:"index" json:"deadline,omitempty"`
	Position    int        `gorm:"not null;default:0" json:"-"` // request order, breaks priority ties
	CreatedAt   time.Time  `json:"created_at"`

	Entries []ScheduleEntry `gorm:"foreignKey:TaskID" json:"-"`
}

// TableName returns the table name for GORM.
func (Task) TableName() string {
	return "tasks"
}

// TimeSlot is one stored availability window.
type TimeSlot struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Day       string    `gorm:"column:day_of_week;type:varchar(20);index;not null" json:"day"`
	StartTime string    `gorm:"type:varchar(5);not null" json:"start"`
	EndTime   string    `gorm:"type:varchar(5);not null" json:"end"`
	Position  int       `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the table name for GORM.
func (TimeSlot) TableName() string {
	return "time_slots"
}

// ScheduleEntry is one stored scheduled segment.
type ScheduleEntry struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	RunID     string    `gorm:"type:varchar(26);index" json:"run_id"`
	TaskID    string    `gorm:"type:varchar(36);index;not null" json:"task_id"`
	TaskName  string    `gorm:"type:varchar(255)" json:"task_name"`
	Day       string    `gorm:"type:varchar(20);index;not null" json:"day"`
	Date      time.Time `json:"date"`
	StartTime string    `gorm:"type:varchar(5);not null" json:"start_time"`
	EndTime   string    `gorm:"type:varchar(5);not null" json:"end_time"`
	Duration  int       `gorm:"not null" json:"duration"` // minutes
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the table name for GORM.
func (ScheduleEntry) TableName() string {
	return "schedules"
}

// PlanTrigger says what started a plan run.
type PlanTrigger string

const (
	PlanTriggerAPI    PlanTrigger = "api"
	PlanTriggerReplan PlanTrigger = "replan"
)

// PlanRun records one persisted plan. IDs are ULIDs so runs sort by creation.
type PlanRun struct {
	ID               string      `gorm:"type:varchar(26);primaryKey" json:"id"`
	WeekStart        time.Time   `gorm:"index" json:"week_start"`
	Status           string      `gorm:"type:varchar(16);not null" json:"status"`
	Message          string      `gorm:"type:text" json:"message"`
	ScheduledMinutes int         `json:"scheduled_minutes"`
	Trigger          PlanTrigger `gorm:"type:varchar(16)" json:"trigger"`
	SnapshotKey      string      `gorm:"type:varchar(255)" json:"snapshot_key,omitempty"`
	CreatedAt        time.Time   `gorm:"index" json:"created_at"`
}

// TableName returns the table name for GORM.
func (PlanRun) TableName() string {
	return "plan_runs"
}
