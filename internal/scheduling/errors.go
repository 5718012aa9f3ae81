/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"errors"

	"github.com/friendsincode/weekplanner/internal/availability"
	"github.com/friendsincode/weekplanner/internal/clock"
	"github.com/friendsincode/weekplanner/internal/demand"
)

// Error codes returned to API clients for rejected requests.
const (
	CodeInvalidTime     = "invalid_time"
	CodeInvalidDeadline = "invalid_deadline"
	CodeInvalidDate     = "invalid_date"
	CodeEmptySlot       = "empty_slot"
	CodeOverlap         = "overlap"
	CodeInvalidTask     = "invalid_task"
	CodeUnknownDay      = "unknown_day"
	CodeDuplicateDay    = "duplicate_day"
)

var validationCodes = []struct {
	err  error
	code string
}{
	{availability.ErrOverlap, CodeOverlap},
	{availability.ErrEmptySlot, CodeEmptySlot},
	{availability.ErrDuplicateDay, CodeDuplicateDay},
	{demand.ErrInvalidDeadline, CodeInvalidDeadline},
	{demand.ErrInvalidTask, CodeInvalidTask},
	{clock.ErrInvalidTime, CodeInvalidTime},
	{clock.ErrUnknownDay, CodeUnknownDay},
	{clock.ErrInvalidDate, CodeInvalidDate},
}

// IsValidationError reports whether err means the request itself was rejected.
func IsValidationError(err error) bool {
	return ErrorCode(err) != ""
}

// ErrorCode maps a validation error to its client-facing code, or "" for
// anything else.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, vc := range validationCodes {
		if errors.Is(err, vc.err) {
			return vc.code
		}
	}
	return ""
}
