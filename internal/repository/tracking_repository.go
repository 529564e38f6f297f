package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/model"
)

// TrackingRepository stores the per-assignment telemetry documents. The
// collection carries a unique index on assignment_id and a compound index
// on (lot_id, carrier_id); see db.EnsureTrackingIndexes.
type TrackingRepository struct {
	collection *mongo.Collection
}

func NewTrackingRepository(database *mongo.Database) *TrackingRepository {
	return &TrackingRepository{collection: database.Collection("tracking_records")}
}

func (r *TrackingRepository) GetByAssignmentID(ctx context.Context, assignmentID string) (*model.TrackingRecord, error) {
	var record model.TrackingRecord
	err := r.collection.FindOne(ctx, bson.M{"assignment_id": assignmentID}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// Save upserts the whole document keyed by assignment id.
func (r *TrackingRepository) Save(ctx context.Context, record *model.TrackingRecord) error {
	record.UpdatedAt = time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = record.UpdatedAt
	}
	filter := bson.M{"assignment_id": record.AssignmentID}
	update := bson.M{"$set": record}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *TrackingRepository) ListByLotID(ctx context.Context, lotID string) ([]model.TrackingRecord, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"lot_id": lotID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []model.TrackingRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// MarkOfflineBefore flips connection_status to offline for every record
// whose last sync is older than the cutoff. Returns the number flipped.
func (r *TrackingRepository) MarkOfflineBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	filter := bson.M{
		"connection_status": model.ConnectionOnline,
		"last_sync_at":      bson.M{"$lt": cutoff},
	}
	update := bson.M{"$set": bson.M{"connection_status": model.ConnectionOffline}}
	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}
