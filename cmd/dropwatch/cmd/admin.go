// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package cmd

import (
	"fmt"

	"github.com/dropwatch/core/internal/admin"
	"github.com/dropwatch/core/internal/db/models"
	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage tracked TLDs and their job schedules",
}

var tldAddCmd = &cobra.Command{
	Use:   "tld-add [name]",
	Short: "Add or update a tracked TLD",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		a, err := bootstrap(configPath)
		if err != nil {
			return exitErr(ExitFatalConfig, err)
		}
		displayName, _ := c.Flags().GetString("display-name")
		priority, _ := c.Flags().GetInt("priority")
		tld, err := admin.UpsertTLD(a.DB, args[0], displayName, priority)
		if err != nil {
			return exitErr(ExitGeneric, err)
		}
		fmt.Printf("tld %q ready (id=%d)\n", tld.Name, tld.ID)
		return nil
	},
}

var tldListCmd = &cobra.Command{
	Use:   "tld-list",
	Short: "List tracked TLDs",
	RunE: func(c *cobra.Command, args []string) error {
		a, err := bootstrap(configPath)
		if err != nil {
			return exitErr(ExitFatalConfig, err)
		}
		rows, err := admin.ListTLDs(a.DB)
		if err != nil {
			return exitErr(ExitGeneric, err)
		}
		for _, t := range rows {
			fmt.Printf("%-20s active=%-5v priority=%d last_drop_count=%d\n", t.Name, t.IsActive, t.Priority, t.LastDropCount)
		}
		return nil
	},
}

var jobAddCmd = &cobra.Command{
	Use:   "job-add [tld] [cron-schedule]",
	Short: "Add or update a job's cron schedule",
	Args:  cobra.ExactArgs(2),
	RunE: func(c *cobra.Command, args []string) error {
		a, err := bootstrap(configPath)
		if err != nil {
			return exitErr(ExitFatalConfig, err)
		}
		timeout, _ := c.Flags().GetInt64("timeout-seconds")
		retries, _ := c.Flags().GetInt("max-retries")
		job, err := admin.UpsertJob(a.DB, args[0], models.JobKindFull, args[1], timeout, retries)
		if err != nil {
			return exitErr(ExitGeneric, err)
		}
		fmt.Printf("job %s/%s scheduled %q (id=%d)\n", job.Tld, job.Kind, job.Schedule, job.ID)
		return nil
	},
}

var jobListCmd = &cobra.Command{
	Use:   "job-list",
	Short: "List configured jobs",
	RunE: func(c *cobra.Command, args []string) error {
		a, err := bootstrap(configPath)
		if err != nil {
			return exitErr(ExitFatalConfig, err)
		}
		rows, err := admin.ListJobs(a.DB)
		if err != nil {
			return exitErr(ExitGeneric, err)
		}
		for _, j := range rows {
			fmt.Printf("%-20s %-8s enabled=%-5v schedule=%q\n", j.Tld, j.Kind, j.IsEnabled, j.Schedule)
		}
		return nil
	},
}

func init() {
	tldAddCmd.Flags().String("display-name", "", "human-readable TLD name")
	tldAddCmd.Flags().Int("priority", 0, "display priority; tld list orders by it, highest first")
	jobAddCmd.Flags().Int64("timeout-seconds", 7200, "hard wall-clock timeout per run")
	jobAddCmd.Flags().Int("max-retries", 5, "maximum in-process retries per run")

	adminCmd.AddCommand(tldAddCmd, tldListCmd, jobAddCmd, jobListCmd)
	rootCmd.AddCommand(adminCmd)
}
