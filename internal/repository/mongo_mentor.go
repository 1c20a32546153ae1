package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mansoorceksport/mentorlink/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoMentorRepository implements domain.MentorRepository
type MongoMentorRepository struct {
	collection *mongo.Collection
	users      *mongo.Collection
}

func NewMongoMentorRepository(db *mongo.Database) *MongoMentorRepository {
	coll := db.Collection("mentor_profiles")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "expertise_category_ids", Value: 1}, {Key: "is_active", Value: 1}}},
	})

	return &MongoMentorRepository{
		collection: coll,
		users:      db.Collection("users"),
	}
}

func (r *MongoMentorRepository) Create(ctx context.Context, m *domain.MentorProfile) error {
	now := time.Now().UTC()
	if m.ID == "" {
		m.ID = domain.NewID()
	}
	if m.ExpertiseCategoryIDs == nil {
		m.ExpertiseCategoryIDs = []string{}
	}
	m.CreatedAt = now
	m.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAccountExists
		}
		return fmt.Errorf("failed to create mentor profile: %w", err)
	}
	return nil
}

func (r *MongoMentorRepository) GetByUserID(ctx context.Context, userID string) (*domain.MentorProfile, error) {
	var m domain.MentorProfile
	if err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&m); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get mentor profile: %w", err)
	}
	return &m, nil
}

// Update writes the owner editable fields. Rating and session counters are
// only changed through their dedicated increments.
func (r *MongoMentorRepository) Update(ctx context.Context, m *domain.MentorProfile) error {
	m.UpdatedAt = time.Now().UTC()
	if m.ExpertiseCategoryIDs == nil {
		m.ExpertiseCategoryIDs = []string{}
	}
	update := bson.M{
		"$set": bson.M{
			"bio":                    m.Bio,
			"years_experience":       m.YearsExperience,
			"company":                m.Company,
			"job_title":              m.JobTitle,
			"linkedin_url":           m.LinkedInURL,
			"expertise_category_ids": m.ExpertiseCategoryIDs,
			"is_active":              m.IsActive,
			"updated_at":             m.UpdatedAt,
		},
	}
	return r.updateByUser(ctx, m.UserID, update, "update mentor profile")
}

func (r *MongoMentorRepository) ListEligible(ctx context.Context, categoryIDs []string) (map[string][]domain.EligibleMentor, error) {
	result := make(map[string][]domain.EligibleMentor, len(categoryIDs))
	if len(categoryIDs) == 0 {
		return result, nil
	}
	for _, id := range categoryIDs {
		result[id] = []domain.EligibleMentor{}
	}

	cursor, err := r.collection.Find(ctx, bson.M{
		"is_active":              true,
		"expertise_category_ids": bson.M{"$in": categoryIDs},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query mentor profiles: %w", err)
	}
	profiles, err := decodeAll[domain.MentorProfile](ctx, cursor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mentor profiles: %w", err)
	}
	if len(profiles) == 0 {
		return result, nil
	}

	userIDs := make([]string, 0, len(profiles))
	for _, p := range profiles {
		userIDs = append(userIDs, p.UserID)
	}
	cursor, err = r.users.Find(ctx, bson.M{
		"_id":             bson.M{"$in": userIDs},
		"role":            domain.RoleMentor,
		"approval_status": domain.ApprovalApproved,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query mentor users: %w", err)
	}
	users, err := decodeAll[domain.Principal](ctx, cursor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mentor users: %w", err)
	}
	approved := make(map[string]*domain.Principal, len(users))
	for _, u := range users {
		approved[u.ID] = u
	}

	for _, p := range profiles {
		u, ok := approved[p.UserID]
		if !ok {
			continue
		}
		row := eligibleRow(u, p)
		for _, catID := range p.ExpertiseCategoryIDs {
			if list, wanted := result[catID]; wanted {
				result[catID] = append(list, row)
			}
		}
	}
	for catID := range result {
		sortEligible(result[catID])
	}
	return result, nil
}

func (r *MongoMentorRepository) IncrementSessions(ctx context.Context, userID string) error {
	update := bson.M{
		"$inc": bson.M{"total_sessions": 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	return r.updateByUser(ctx, userID, update, "increment sessions")
}

func (r *MongoMentorRepository) AddRating(ctx context.Context, userID string, rating int) error {
	update := bson.M{
		"$inc": bson.M{"rating_total": rating, "rating_count": 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	return r.updateByUser(ctx, userID, update, "add rating")
}

func (r *MongoMentorRepository) SetRatingAggregate(ctx context.Context, userID string, agg domain.RatingAggregate) error {
	update := bson.M{
		"$set": bson.M{
			"rating_total": agg.Total,
			"rating_count": agg.Count,
			"updated_at":   time.Now().UTC(),
		},
	}
	return r.updateByUser(ctx, userID, update, "set rating aggregate")
}

func (r *MongoMentorRepository) updateByUser(ctx context.Context, userID string, update bson.M, op string) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"user_id": userID}, update)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func eligibleRow(u *domain.Principal, p *domain.MentorProfile) domain.EligibleMentor {
	return domain.EligibleMentor{
		MentorID:             u.ID,
		ProfileID:            p.ID,
		DisplayName:          u.DisplayName,
		Email:                u.Email,
		JobTitle:             p.JobTitle,
		Company:              p.Company,
		ExpertiseCategoryIDs: p.ExpertiseCategoryIDs,
		Rating:               p.AverageRating(),
		TotalSessions:        p.TotalSessions,
	}
}

func sortEligible(list []domain.EligibleMentor) {
	sort.Slice(list, func(i, j int) bool { return list[i].MentorID < list[j].MentorID })
}
