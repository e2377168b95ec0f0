package bookinglogRepo

import (
	"context"
	"fmt"

	"beatbook/config"
	"beatbook/database"
	"beatbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoBookingLogRepo struct {
	collection *mongo.Collection
}

// NewMongoBookingLogRepo creates a new MongoDB-backed booking log repository.
func NewMongoBookingLogRepo() BookingLogRepository {
	return &mongoBookingLogRepo{
		collection: database.MongoClient.Database(config.AppConfig.DatabaseName).Collection("booking_log"),
	}
}

func (r *mongoBookingLogRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "idempotencyKey", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create booking log index: %w", err)
	}
	return nil
}

func (r *mongoBookingLogRepo) InsertUnique(ctx context.Context, entry models.BookingLogEntry) (bool, error) {
	_, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return true, nil
		}
		return false, fmt.Errorf("failed to insert booking log entry: %w", err)
	}
	return false, nil
}

func (r *mongoBookingLogRepo) GetByKey(ctx context.Context, key string) (*models.BookingLogEntry, error) {
	var entry models.BookingLogEntry
	err := r.collection.FindOne(ctx, bson.M{"idempotencyKey": key}).Decode(&entry)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch booking log entry: %w", err)
	}
	return &entry, nil
}

func (r *mongoBookingLogRepo) ListBySession(ctx context.Context, sessionID string) ([]models.BookingLogEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "committedAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"sessionId": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list booking log entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []models.BookingLogEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode booking log entries: %w", err)
	}
	return entries, nil
}
