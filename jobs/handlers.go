package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/luminacare/lumina/internal/shared"
)

// Mailer sends transactional email. The SMTP integration satisfies this in
// production; tests use a recorder.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// ExpirySweeper deactivates sessions past their expiry. Satisfied by the
// masquerade service.
type ExpirySweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// HandleSendEmail processes TaskTypeSendEmail tasks.
func HandleSendEmail(mailer Mailer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if err := mailer.Send(ctx, payload.To, payload.Subject, payload.Body); err != nil {
			logger.Error("send email", slog.String("to", payload.To), slog.Any("error", err))
			return err
		}
		return nil
	}
}

// HandleMasqueradeSweep deactivates every active masquerade session whose
// expiry has passed. The sweep backs up the expiry check performed on read.
func HandleMasqueradeSweep(broker ExpirySweeper, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		swept, err := broker.SweepExpired(ctx, time.Now())
		if err != nil {
			logger.Error("masquerade sweep", slog.Any("error", err))
			return err
		}
		if swept > 0 {
			logger.Info("masquerade sweep", slog.Int64("deactivated", swept))
		}
		return nil
	}
}

// HandleAuditCleanup prunes audit entries older than the retention window.
func HandleAuditCleanup(audit *shared.AuditLogger, retention time.Duration, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		if err := audit.Cleanup(ctx, retention); err != nil {
			logger.Error("audit cleanup", slog.Any("error", err))
			return err
		}
		return nil
	}
}
