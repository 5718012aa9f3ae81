/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/weekplanner/internal/clock"
	"github.com/friendsincode/weekplanner/internal/models"
	"github.com/friendsincode/weekplanner/internal/planner"
	"github.com/friendsincode/weekplanner/internal/schedule"
	"github.com/friendsincode/weekplanner/internal/scheduling"
	"github.com/friendsincode/weekplanner/internal/store"
)

// TaskView is a stored task as returned to clients.
type TaskView struct {
	ID          string  `json:"id"`
	TaskName    string  `json:"task_name"`
	HoursPerDay float64 `json:"hours_per_day"`
	Deadline    *string `json:"deadline"`
}

// EntryView is a stored schedule entry as returned to clients.
type EntryView struct {
	ID        string `json:"id"`
	TaskID    string `json:"task_id"`
	TaskName  string `json:"task_name"`
	Day       string `json:"day"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Duration  int    `json:"duration"`
}

// SlotView is a stored availability window.
type SlotView struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (a *API) decodeRequest(w http.ResponseWriter, r *http.Request) (scheduling.Request, bool) {
	var req scheduling.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return req, false
	}
	return req, true
}

// writePlanError maps planner errors to responses.
func (a *API) writePlanError(w http.ResponseWriter, err error) {
	if code := scheduling.ErrorCode(err); code != "" {
		writeError(w, http.StatusBadRequest, code, err.Error())
		return
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "cancelled")
	case errors.Is(err, planner.ErrPersist):
		a.logger.Error().Err(err).Msg("failed to store plan")
		writeError(w, http.StatusInternalServerError, "db_error")
	default:
		a.logger.Error().Err(err).Msg("plan failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}

func (a *API) handleCommit(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeRequest(w, r)
	if !ok {
		return
	}

	m := meta(r)
	m.Trigger = models.PlanTriggerAPI
	plan, run, err := a.planner.Commit(r.Context(), req, m)
	if err != nil {
		a.writePlanError(w, err)
		return
	}

	w.Header().Set("X-Plan-Run", run.ID)
	writeJSON(w, http.StatusOK, plan.Result)
}

func (a *API) handlePreview(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeRequest(w, r)
	if !ok {
		return
	}

	result, cached, err := a.planner.Preview(r.Context(), req)
	if err != nil {
		a.writePlanError(w, err)
		return
	}

	if cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleTasksList(w http.ResponseWriter, r *http.Request) {
	tasks, err := a.store.ListTasks(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("list tasks failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	out := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		view := TaskView{ID: t.ID, TaskName: t.Name, HoursPerDay: t.HoursPerDay}
		if t.Deadline != nil {
			d := t.Deadline.UTC().Format(clock.DateLayout)
			view.Deadline = &d
		}
		out = append(out, view)
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleSchedulesList(w http.ResponseWriter, r *http.Request) {
	entries, err := a.store.ListSchedule(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("list schedule failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	out := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, EntryView{
			ID:        e.ID,
			TaskID:    e.TaskID,
			TaskName:  e.TaskName,
			Day:       e.Day,
			Date:      e.Date.UTC().Format(clock.DateLayout),
			StartTime: e.StartTime,
			EndTime:   e.EndTime,
			Duration:  e.Duration,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleSlotsList returns stored availability in the request's
// available_time shape so it can be posted back unchanged.
func (a *API) handleSlotsList(w http.ResponseWriter, r *http.Request) {
	slots, err := a.store.ListSlots(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("list slots failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	out := make(map[string][]SlotView)
	for _, s := range slots {
		out[s.Day] = append(out[s.Day], SlotView{Start: s.StartTime, End: s.EndTime})
	}
	writeJSON(w, http.StatusOK, map[string]any{"available_time": out})
}

func (a *API) handleRunsList(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", 20)
	if !ok {
		return
	}
	runs, err := a.store.ListRuns(r.Context(), limit)
	if err != nil {
		a.logger.Error().Err(err).Msg("list plan runs failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (a *API) handleAuditList(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", 100)
	if !ok {
		return
	}
	rows, err := a.store.ListAudit(r.Context(), limit)
	if err != nil {
		a.logger.Error().Err(err).Msg("list audit log failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"audit_logs": rows})
}

func (a *API) handleEntryDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "entryID")
	if err := a.planner.DeleteEntry(r.Context(), id, meta(r)); err != nil {
		a.writeDeleteError(w, err, "Schedule not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Schedule deleted successfully"})
}

func (a *API) handleTaskDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")
	if err := a.planner.DeleteTask(r.Context(), id, meta(r)); err != nil {
		a.writeDeleteError(w, err, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Task and associated schedules deleted successfully"})
}

func (a *API) writeDeleteError(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", notFound)
		return
	}
	a.logger.Error().Err(err).Msg("delete failed")
	writeError(w, http.StatusInternalServerError, "db_error")
}

func (a *API) handleExportICal(w http.ResponseWriter, r *http.Request) {
	weeks, ok := queryInt(w, r, "weeks", 1)
	if !ok {
		return
	}
	if weeks < 1 || weeks > schedule.MaxExportWeeks {
		writeError(w, http.StatusBadRequest, "invalid_weeks", fmt.Sprintf("weeks must be between 1 and %d", schedule.MaxExportWeeks))
		return
	}

	result, err := a.exports.ExportToICal(r.Context(), weeks)
	if err != nil {
		if errors.Is(err, schedule.ErrNothingToExport) {
			writeError(w, http.StatusNotFound, "not_found", "no stored schedule")
			return
		}
		a.logger.Error().Err(err).Msg("iCal export failed")
		writeError(w, http.StatusInternalServerError, "export_failed")
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, fmt.Sprintf("%s must be an integer", name))
		return 0, false
	}
	return n, true
}
