// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package watchlist

import (
	"context"

	"github.com/dropwatch/core/internal/db"
	"github.com/dropwatch/core/internal/interfaces/notify"
)

const NotificationQueueName = "watchlist-notifications"

// QueueNotifier forwards notification requests onto the durable work
// queue (the same goqite-backed queue ingestion jobs run through) instead
// of calling the out-of-scope transport directly; a notifier process
// elsewhere drains NotificationQueueName.
type QueueNotifier struct{}

func (QueueNotifier) SubmitNotification(req notify.Request) error {
	return db.EnqueueJSON(context.Background(), NotificationQueueName, req)
}
