package tasks

import (
	"context"
	"encoding/json"

	"meetsync/config"
	"meetsync/models"

	"github.com/hibiken/asynq"
)

const TypeArchiveBooking = "booking:archive"

// NewArchiveBookingTask wraps a completed booking record as a queue task.
func NewArchiveBookingTask(record models.BookingRecord) (*asynq.Task, error) {
	b, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeArchiveBooking, b), nil
}

// QueueArchiver enqueues booking records for background persistence. It
// implements booking.Archiver so the engine never waits on Mongo.
type QueueArchiver struct {
	client *asynq.Client
}

func NewQueueArchiver() *QueueArchiver {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	return &QueueArchiver{client: client}
}

func (a *QueueArchiver) Archive(ctx context.Context, record models.BookingRecord) error {
	task, err := NewArchiveBookingTask(record)
	if err != nil {
		return err
	}
	_, err = a.client.EnqueueContext(ctx, task, asynq.MaxRetry(5))
	return err
}

func (a *QueueArchiver) Close() error {
	return a.client.Close()
}
