// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package main

import (
	"os"

	"github.com/dropwatch/core/cmd/dropwatch/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
