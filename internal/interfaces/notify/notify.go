// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

// Package notify declares the notification request sink the core pushes
// matches into. Delivery and channel routing (email/webhook/etc.) are
// out of scope for the core.
package notify

import "github.com/dropwatch/core/internal/db/models"

type Request struct {
	UserID      uint
	Drop        models.DropRecord
	WatchlistID uint
}

type Sink interface {
	SubmitNotification(req Request) error
}
