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

// MongoCategoryRepository implements domain.CategoryRepository
type MongoCategoryRepository struct {
	collection *mongo.Collection
}

func NewMongoCategoryRepository(db *mongo.Database) *MongoCategoryRepository {
	coll := db.Collection("expertise_categories")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return &MongoCategoryRepository{collection: coll}
}

func (r *MongoCategoryRepository) Create(ctx context.Context, c *domain.ExpertiseCategory) error {
	if c.ID == "" {
		c.ID = domain.NewID()
	}
	c.CreatedAt = time.Now().UTC()

	if _, err := r.collection.InsertOne(ctx, c); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateCategory
		}
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

func (r *MongoCategoryRepository) GetByID(ctx context.Context, id string) (*domain.ExpertiseCategory, error) {
	var c domain.ExpertiseCategory
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

func (r *MongoCategoryRepository) List(ctx context.Context) ([]*domain.ExpertiseCategory, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return decodeAll[domain.ExpertiseCategory](ctx, cursor)
}
