package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TypeCaptureRetry = "capture:retry"

// CaptureRetryPayload identifies the extension whose authorized payment
// still needs to be collected.
type CaptureRetryPayload struct {
	ExtensionID string `json:"extension_id"`
}

// NewCaptureRetryTask builds the retry task for one outstanding capture.
// Retries are bounded; an extension that keeps failing stays CAPTURE_FAILED
// and is picked up again by the next reconciliation sweep.
func NewCaptureRetryTask(extensionID string) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(CaptureRetryPayload{ExtensionID: extensionID})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeCaptureRetry, b)
	opts := []asynq.Option{asynq.MaxRetry(5), asynq.Queue("default")}
	return task, opts, nil
}
