package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// Notifier publishes new insight ids on a PostgreSQL NOTIFY channel so
// dashboards can refresh without polling.
type Notifier struct {
	DB      *sql.DB
	Channel string
}

// NewNotifier constructs a Notifier.  The channel should match the
// POSTGRES_NOTIFY_CHANNEL environment variable.
func NewNotifier(db *sql.DB, channel string) *Notifier {
	return &Notifier{DB: db, Channel: channel}
}

// Notify sends the insight id as the payload.  A nil Notifier or an empty
// channel is a no-op.
func (n *Notifier) Notify(ctx context.Context, insightID string) error {
	if n == nil || n.Channel == "" {
		return nil
	}
	// NOTIFY does not accept bind parameters, so the payload is quoted too.
	stmt := fmt.Sprintf("NOTIFY %s, %s", pq.QuoteIdentifier(n.Channel), pq.QuoteLiteral(insightID))
	_, err := n.DB.ExecContext(ctx, stmt)
	return err
}
