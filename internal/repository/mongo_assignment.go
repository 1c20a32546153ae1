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

// MongoAssignmentRepository implements domain.AssignmentRepository
type MongoAssignmentRepository struct {
	collection *mongo.Collection
}

func NewMongoAssignmentRepository(db *mongo.Database) *MongoAssignmentRepository {
	coll := db.Collection("assignments")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			// At most one unanswered attempt per booking
			Keys: bson.D{{Key: "booking_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("one_pending_per_booking").
				SetPartialFilterExpression(bson.M{"mentor_response": domain.ResponsePending}),
		},
		{Keys: bson.D{{Key: "booking_id", Value: 1}, {Key: "assigned_at", Value: 1}}},
		{Keys: bson.D{{Key: "mentor_id", Value: 1}, {Key: "mentor_response", Value: 1}, {Key: "assigned_at", Value: -1}}},
	})

	return &MongoAssignmentRepository{collection: coll}
}

func (r *MongoAssignmentRepository) Create(ctx context.Context, a *domain.Assignment) error {
	if a.ID == "" {
		a.ID = domain.NewID()
	}
	if a.MentorResponse == "" {
		a.MentorResponse = domain.ResponsePending
	}

	if _, err := r.collection.InsertOne(ctx, a); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAssignmentInFlight
		}
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

func (r *MongoAssignmentRepository) GetByID(ctx context.Context, id string) (*domain.Assignment, error) {
	var a domain.Assignment
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return &a, nil
}

func (r *MongoAssignmentRepository) ListPendingByMentor(ctx context.Context, mentorID string) ([]*domain.Assignment, error) {
	filter := bson.M{"mentor_id": mentorID, "mentor_response": domain.ResponsePending}
	opts := options.Find().SetSort(bson.D{{Key: "assigned_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending assignments: %w", err)
	}
	return decodeAll[domain.Assignment](ctx, cursor)
}

func (r *MongoAssignmentRepository) ListByBooking(ctx context.Context, bookingID string) ([]*domain.Assignment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "assigned_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"booking_id": bookingID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list booking assignments: %w", err)
	}
	return decodeAll[domain.Assignment](ctx, cursor)
}

func (r *MongoAssignmentRepository) Respond(ctx context.Context, id, mentorID string, response domain.AssignmentResponse, at time.Time) error {
	filter := bson.M{
		"_id":             id,
		"mentor_id":       mentorID,
		"mentor_response": domain.ResponsePending,
	}
	update := bson.M{"$set": bson.M{"mentor_response": response, "responded_at": at.UTC()}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to respond to assignment: %w", err)
	}
	if result.MatchedCount == 0 {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !current.IsPending() {
			return domain.ErrAlreadyResponded
		}
		return domain.ErrConflict
	}
	return nil
}
