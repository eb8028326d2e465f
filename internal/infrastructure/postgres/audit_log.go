package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-tour-booking/internal/application"
)

// AuditLog appends credential events to the credential_events table.
type AuditLog struct {
	pool *pgxpool.Pool
}

func NewAuditLog(pool *pgxpool.Pool) *AuditLog {
	return &AuditLog{pool: pool}
}

func (a *AuditLog) Record(ctx context.Context, ev application.AuditEvent) error {
	var meta []byte
	if len(ev.Metadata) > 0 {
		b, err := json.Marshal(ev.Metadata)
		if err != nil {
			return err
		}
		meta = b
	}
	_, err := a.pool.Exec(ctx, `
		INSERT INTO credential_events (user_id, email, action, ip, user_agent, metadata)
		VALUES (NULLIF($1, ''), NULLIF($2, ''), $3, NULLIF($4, ''), NULLIF($5, ''), $6)
	`, ev.UserID, ev.Email, ev.Action, ev.IP, ev.UserAgent, meta)
	return err
}

var _ application.AuditLog = (*AuditLog)(nil)
