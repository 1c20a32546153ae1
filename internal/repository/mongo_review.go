package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mansoorceksport/mentorlink/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoReviewRepository implements domain.ReviewRepository
type MongoReviewRepository struct {
	collection *mongo.Collection
}

func NewMongoReviewRepository(db *mongo.Database) *MongoReviewRepository {
	coll := db.Collection("reviews")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "booking_id", Value: 1}, {Key: "mentee_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "mentor_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "mentee_id", Value: 1}}},
	})

	return &MongoReviewRepository{collection: coll}
}

func (r *MongoReviewRepository) Create(ctx context.Context, rv *domain.Review) error {
	if rv.ID == "" {
		rv.ID = domain.NewID()
	}
	rv.CreatedAt = time.Now().UTC()

	if _, err := r.collection.InsertOne(ctx, rv); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAlreadyReviewed
		}
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

func (r *MongoReviewRepository) ListByMentor(ctx context.Context, mentorID string) ([]*domain.Review, error) {
	return r.list(ctx, bson.M{"mentor_id": mentorID})
}

func (r *MongoReviewRepository) ListByMentee(ctx context.Context, menteeID string) ([]*domain.Review, error) {
	return r.list(ctx, bson.M{"mentee_id": menteeID})
}

// AggregateByMentor sums ratings per mentor straight from the reviews.
func (r *MongoReviewRepository) AggregateByMentor(ctx context.Context) (map[string]domain.RatingAggregate, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$mentor_id"},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$rating"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate reviews: %w", err)
	}
	defer cursor.Close(ctx)

	out := make(map[string]domain.RatingAggregate)
	for cursor.Next(ctx) {
		var row struct {
			MentorID string `bson:"_id"`
			Total    int    `bson:"total"`
			Count    int    `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		out[row.MentorID] = domain.RatingAggregate{Total: row.Total, Count: row.Count}
	}
	return out, cursor.Err()
}

func (r *MongoReviewRepository) list(ctx context.Context, filter bson.M) ([]*domain.Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return decodeAll[domain.Review](ctx, cursor)
}
