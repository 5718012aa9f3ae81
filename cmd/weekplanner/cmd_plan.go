/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/friendsincode/weekplanner/internal/scheduling"
)

var (
	planFile      string
	planWeekStart string
	planStrict    bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Compute a weekly plan from a request file",
	Long: `Compute a weekly plan without touching the database.

The request is read as YAML when the file ends in .yaml or .yml and as JSON
otherwise. Use "-" to read JSON from stdin.

Examples:
  # Plan a request file
  weekplanner plan -f week.yaml

  # Anchor the plan to a given week
  weekplanner plan -f week.json --week-start 2026-10-12

  # Exit non-zero unless every task was fully scheduled
  weekplanner plan -f week.yaml --strict
`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planFile, "file", "f", "", "Request file (JSON or YAML, - for stdin)")
	planCmd.Flags().StringVar(&planWeekStart, "week-start", "", "Override week_start (YYYY-MM-DD)")
	planCmd.Flags().BoolVar(&planStrict, "strict", false, "Fail unless the plan status is ok")
	_ = planCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	req, err := readRequest(planFile, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if planWeekStart != "" {
		req.WeekStart = planWeekStart
	}

	engine := scheduling.NewEngine(zerolog.Nop())
	result, err := engine.Plan(cmd.Context(), req)
	if err != nil {
		if code := scheduling.ErrorCode(err); code != "" {
			return fmt.Errorf("%s: %w", code, err)
		}
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}

	if planStrict && result.Status != "ok" {
		return fmt.Errorf("plan status %s: %s", result.Status, result.Message)
	}
	return nil
}

// readRequest decodes a plan request from path, or from stdin when path is "-".
func readRequest(path string, stdin io.Reader) (scheduling.Request, error) {
	var req scheduling.Request

	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return req, fmt.Errorf("read request: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &req)
	default:
		err = json.Unmarshal(data, &req)
	}
	if err != nil {
		return req, fmt.Errorf("decode request %s: %w", path, err)
	}
	return req, nil
}
