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

// MongoBookingRepository implements domain.BookingRepository
type MongoBookingRepository struct {
	collection *mongo.Collection
}

func NewMongoBookingRepository(db *mongo.Database) *MongoBookingRepository {
	coll := db.Collection("bookings")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "requester_id", Value: 1}, {Key: "preferred_date", Value: 1}}},
		{Keys: bson.D{{Key: "approval_status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "mentor_id", Value: 1}}, Options: options.Index().SetSparse(true)},
	})

	return &MongoBookingRepository{collection: coll}
}

func (r *MongoBookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	now := time.Now().UTC()
	if b.ID == "" {
		b.ID = domain.NewID()
	}
	b.CreatedAt = now
	b.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, b); err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *MongoBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	var b domain.Booking
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &b, nil
}

func (r *MongoBookingRepository) ListByRequester(ctx context.Context, requesterID string) ([]*domain.Booking, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "preferred_date", Value: 1},
		{Key: "preferred_time", Value: 1},
	})
	return r.find(ctx, bson.M{"requester_id": requesterID}, opts)
}

func (r *MongoBookingRepository) ListByStatus(ctx context.Context, status domain.BookingStatus) ([]*domain.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, bson.M{"approval_status": status}, opts)
}

func (r *MongoBookingRepository) ListByIDs(ctx context.Context, ids []string) ([]*domain.Booking, error) {
	if len(ids) == 0 {
		return []*domain.Booking{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
}

func (r *MongoBookingRepository) ListAll(ctx context.Context) ([]*domain.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	return r.find(ctx, bson.M{}, opts)
}

// Transition applies a compare-and-set status change. The mentor fields are
// written on assignment and cleared whenever the target status holds no mentor.
func (r *MongoBookingRepository) Transition(ctx context.Context, t domain.BookingTransition) error {
	filter := bson.M{"_id": t.BookingID, "approval_status": t.From}
	if t.ExpectMentorID != "" {
		filter["mentor_id"] = t.ExpectMentorID
	}

	set := bson.M{"approval_status": t.To, "updated_at": t.At.UTC()}
	update := bson.M{"$set": set}
	switch {
	case t.To == domain.BookingAssignedPendingMentor:
		set["mentor_id"] = t.SetMentorID
		set["assigned_by"] = t.AssignedBy
	case !t.To.HoldsMentor():
		update["$unset"] = bson.M{"mentor_id": "", "assigned_by": ""}
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to transition booking: %w", err)
	}
	if result.MatchedCount == 0 {
		if _, err := r.GetByID(ctx, t.BookingID); err != nil {
			return err
		}
		return domain.ErrConflict
	}
	return nil
}

func (r *MongoBookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Booking, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return decodeAll[domain.Booking](ctx, cursor)
}
