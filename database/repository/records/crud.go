package recordsRepo

import (
	"context"
	"time"

	"meetsync/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Create inserts a new booking record and returns its ID.
func (r *mongoRecordRepo) Create(ctx context.Context, record models.BookingRecord) (string, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	if _, err := r.coll.InsertOne(ctx, record); err != nil {
		return "", err
	}
	return record.ID, nil
}

// GetByID returns a booking record by its ID.
func (r *mongoRecordRepo) GetByID(ctx context.Context, id string) (*models.BookingRecord, error) {
	var record models.BookingRecord
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&record); err != nil {
		return nil, err
	}
	return &record, nil
}

// GetByAttendeeEmail fetches all records for one attendee.
func (r *mongoRecordRepo) GetByAttendeeEmail(ctx context.Context, email string) ([]models.BookingRecord, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"attendeeEmail": email})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.BookingRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ListRecent returns the most recently created records, newest first.
func (r *mongoRecordRepo) ListRecent(ctx context.Context, limit int64) ([]models.BookingRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit)
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.BookingRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
