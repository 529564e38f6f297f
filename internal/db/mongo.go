package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/config"
)

// NewMongo connects to the document store holding the tracking records and
// verifies the connection with a bounded ping.
func NewMongo(cfg *config.Config) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect failed: %w", err)
	}
	if err := mongoClient.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping failed: %w", err)
	}

	database := mongoClient.Database(cfg.Mongo.Database)
	if err := EnsureTrackingIndexes(ctx, database); err != nil {
		return nil, err
	}
	return database, nil
}

// EnsureTrackingIndexes creates the unique per-assignment index and the
// compound index serving fleet-wide dashboard queries.
func EnsureTrackingIndexes(ctx context.Context, database *mongo.Database) error {
	collection := database.Collection("tracking_records")
	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "assignment_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "lot_id", Value: 1}, {Key: "carrier_id", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create tracking indexes: %w", err)
	}
	return nil
}
