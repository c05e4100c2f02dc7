package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeMasqueradeSweep deactivates masquerade sessions past their expiry.
	TaskTypeMasqueradeSweep = "masquerade:sweep"
	// TaskTypeAuditCleanup prunes audit entries past the retention window.
	TaskTypeAuditCleanup = "audit:cleanup"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewMasqueradeSweepTask constructs the expiry-sweep task.
func NewMasqueradeSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeMasqueradeSweep, nil)
}

// NewAuditCleanupTask constructs the audit retention task.
func NewAuditCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeAuditCleanup, nil)
}
