/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/friendsincode/weekplanner/internal/db"
	"github.com/friendsincode/weekplanner/internal/events"
	"github.com/friendsincode/weekplanner/internal/planner"
	"github.com/friendsincode/weekplanner/internal/scheduling"
	"github.com/friendsincode/weekplanner/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE:  runMigrate,
}

var replanCmd = &cobra.Command{
	Use:   "replan",
	Short: "Re-plan the stored tasks for the current week once",
	Long: `Re-plan the stored tasks and availability against the current week and
store the result, as the scheduled re-plan does.`,
	RunE: runReplan,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(replanCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	database, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = db.Close(database) }()

	if err := db.Migrate(database); err != nil {
		return err
	}
	logger.Info().Str("backend", string(cfg.DBBackend)).Msg("database schema up to date")
	return nil
}

func runReplan(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	database, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = db.Close(database) }()
	if err := db.Migrate(database); err != nil {
		return err
	}

	svc := planner.NewService(scheduling.NewEngine(logger), store.New(database), events.NewBus(), logger)
	run, err := svc.Replan(cmd.Context())
	if errors.Is(err, planner.ErrNothingToReplan) {
		logger.Info().Msg("no stored tasks, nothing to re-plan")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s (%d minutes)\n", run.ID, run.WeekStart.Format("2006-01-02"), run.Status, run.ScheduledMinutes)
	return nil
}
