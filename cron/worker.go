package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"pitstop/config"
	extensionRepo "pitstop/database/repository/extension"
	"pitstop/models"
	"pitstop/services/extension"
	"pitstop/services/tasks"

	"github.com/hibiken/asynq"
)

const TypeCaptureReconcile = "capture:reconcile"

// InitCaptureWorker starts the background worker and scheduler that collect
// outstanding extension payments. Approval holds whose inline capture failed
// are flagged CAPTURE_FAILED; the reconciliation sweep re-enqueues each one
// as its own retry task so asynq's backoff applies per extension.
func InitCaptureWorker(extSvc extension.Service, extRepo extensionRepo.ExtensionRepository) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisCaptureQueueDB,
	}

	client := asynq.NewClient(redisOpts)

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeCaptureReconcile, handleCaptureReconcile(client, extRepo))
	mux.HandleFunc(tasks.TypeCaptureRetry, handleCaptureRetry(extSvc))

	scheduler := asynq.NewScheduler(redisOpts, nil)
	if _, err := scheduler.Register("@every 15m", asynq.NewTask(TypeCaptureReconcile, nil)); err != nil {
		log.Fatalf("[CaptureWorker] failed to register reconcile schedule: %v", err)
	}

	go func() {
		log.Println("[CaptureWorker] starting scheduler...")
		if err := scheduler.Run(); err != nil {
			log.Fatalf("[CaptureWorker] scheduler stopped: %v", err)
		}
	}()

	go func() {
		log.Println("[CaptureWorker] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[CaptureWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[CaptureWorker] max retry attempts reached, exiting")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

// handleCaptureReconcile sweeps CAPTURE_FAILED extensions into individual
// retry tasks.
func handleCaptureReconcile(client *asynq.Client, extRepo extensionRepo.ExtensionRepository) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		outstanding, err := extRepo.ListOutstandingCaptures(ctx)
		if err != nil {
			log.Printf("[CaptureReconcile] failed to list outstanding captures: %v", err)
			return err
		}
		if len(outstanding) == 0 {
			return nil
		}

		log.Printf("[CaptureReconcile] %d outstanding capture(s) found", len(outstanding))
		for _, e := range outstanding {
			task, opts, err := tasks.NewCaptureRetryTask(e.ID)
			if err != nil {
				log.Printf("[CaptureReconcile] failed to build task for %s: %v", e.ID, err)
				continue
			}
			// Unique suppresses duplicate tasks while one is still queued.
			opts = append(opts, asynq.Unique(time.Hour))
			if _, err := client.EnqueueContext(ctx, task, opts...); err != nil {
				log.Printf("[CaptureReconcile] failed to enqueue retry for %s: %v", e.ID, err)
			}
		}
		return nil
	}
}

// handleCaptureRetry attempts one capture. Non-retryable rejections are
// swallowed so asynq does not keep retrying a capture that needs a human.
func handleCaptureRetry(extSvc extension.Service) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p tasks.CaptureRetryPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[CaptureRetry] invalid payload: %v", err)
			return err
		}

		_, err := extSvc.Capture(ctx, p.ExtensionID)
		if err == nil {
			log.Printf("[CaptureRetry] capture succeeded for extension %s", p.ExtensionID)
			return nil
		}

		if we, ok := err.(*models.WorkflowError); ok && !we.Retryable() {
			log.Printf("[CaptureRetry] capture for %s needs manual follow-up: %v", p.ExtensionID, err)
			return nil
		}
		log.Printf("[CaptureRetry] capture failed for %s, will retry: %v", p.ExtensionID, err)
		return err
	}
}
