// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package cmd

import (
	"fmt"

	"github.com/dropwatch/core/internal/query"
	"github.com/spf13/cobra"
)

var (
	queryTld       string
	queryDate      string
	querySubstring string
	queryPage      int
	queryPageSize  int
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search detected drops",
	RunE: func(c *cobra.Command, args []string) error {
		a, err := bootstrap(configPath)
		if err != nil {
			return exitErr(ExitFatalConfig, err)
		}

		result, err := query.QueryDrops(a.DB, query.DropFilter{
			Tld:       queryTld,
			Date:      queryDate,
			Substring: querySubstring,
			Page:      queryPage,
			PageSize:  queryPageSize,
		})
		if err != nil {
			return exitErr(ExitGeneric, err)
		}

		for _, d := range result.Data {
			fmt.Printf("%-30s %-10s %-10s len=%d charset=%s\n", d.Label, d.Tld, d.DropDate, d.Length, d.CharsetType)
		}
		fmt.Printf("page %d/%d, %d total\n", result.Page, result.LastPage, result.Total)
		return nil
	},
}

func init() {
	queryCmd.Flags().StringVar(&queryTld, "tld", "", "filter by TLD")
	queryCmd.Flags().StringVar(&queryDate, "date", "", "filter by exact drop date YYYY-MM-DD")
	queryCmd.Flags().StringVar(&querySubstring, "substring", "", "filter by label substring")
	queryCmd.Flags().IntVar(&queryPage, "page", 1, "page number")
	queryCmd.Flags().IntVar(&queryPageSize, "page-size", 50, "results per page")

	rootCmd.AddCommand(queryCmd)
}
