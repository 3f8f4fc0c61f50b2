package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"meetsync/config"
	recordsRepo "meetsync/database/repository/records"
	"meetsync/models"
	"meetsync/services/tasks"

	"github.com/hibiken/asynq"
)

// InitArchiveWorker runs the async worker persisting completed bookings
// in the background.
func InitArchiveWorker(repo recordsRepo.BookingRecordRepository) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeArchiveBooking, handleArchiveTask(repo))

	go func() {
		log.Println("[ArchiveWorker] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[ArchiveWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[ArchiveWorker] max retry attempts reached, exiting")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

func handleArchiveTask(repo recordsRepo.BookingRecordRepository) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var record models.BookingRecord
		if err := json.Unmarshal(task.Payload(), &record); err != nil {
			log.Printf("[ArchiveWorker] invalid payload: %v", err)
			return err
		}

		id, err := repo.Create(ctx, record)
		if err != nil {
			log.Printf("[ArchiveWorker] failed to persist booking record: %v", err)
			return err
		}
		log.Printf("[ArchiveWorker] archived booking %s (event %s)", id, record.EventID)
		return nil
	}
}
