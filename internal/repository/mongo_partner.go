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

// MongoPartnerRepository implements domain.PartnerRepository
type MongoPartnerRepository struct {
	collection *mongo.Collection
}

func NewMongoPartnerRepository(db *mongo.Database) *MongoPartnerRepository {
	coll := db.Collection("partner_profiles")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return &MongoPartnerRepository{collection: coll}
}

func (r *MongoPartnerRepository) Create(ctx context.Context, p *domain.PartnerProfile) error {
	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = domain.NewID()
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAccountExists
		}
		return fmt.Errorf("failed to create partner profile: %w", err)
	}
	return nil
}

func (r *MongoPartnerRepository) GetByUserID(ctx context.Context, userID string) (*domain.PartnerProfile, error) {
	var p domain.PartnerProfile
	if err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get partner profile: %w", err)
	}
	return &p, nil
}

func (r *MongoPartnerRepository) Update(ctx context.Context, p *domain.PartnerProfile) error {
	p.UpdatedAt = time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"organization_name": p.OrganizationName,
			"organization_type": p.OrganizationType,
			"website":           p.Website,
			"description":       p.Description,
			"updated_at":        p.UpdatedAt,
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"user_id": p.UserID}, update)
	if err != nil {
		return fmt.Errorf("failed to update partner profile: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
