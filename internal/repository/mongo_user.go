package repository

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/mansoorceksport/mentorlink/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoUserRepository implements domain.PrincipalRepository
type MongoUserRepository struct {
	collection *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	coll := db.Collection("users")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// firebase_uid is sparse: principals seeded by email have none until first login
	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "firebase_uid", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "approval_status", Value: 1}, {Key: "created_at", Value: -1}}},
	})

	return &MongoUserRepository{
		collection: coll,
	}
}

func (r *MongoUserRepository) Create(ctx context.Context, p *domain.Principal) error {
	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = domain.NewID()
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	doc := bson.M{
		"_id":             p.ID,
		"email":           p.Email,
		"display_name":    p.DisplayName,
		"role":            p.Role,
		"approval_status": p.ApprovalStatus,
		"created_at":      p.CreatedAt,
		"updated_at":      p.UpdatedAt,
	}
	if p.FirebaseUID != "" {
		doc["firebase_uid"] = p.FirebaseUID
	}
	if p.Phone != "" {
		doc["phone"] = p.Phone
	}
	if p.Gender != "" {
		doc["gender"] = p.Gender
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAccountExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*domain.Principal, error) {
	var p domain.Principal
	if err := r.collection.FindOne(ctx, filter).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &p, nil
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*domain.Principal, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepository) GetByFirebaseUID(ctx context.Context, uid string) (*domain.Principal, error) {
	return r.findOne(ctx, bson.M{"firebase_uid": uid})
}

func (r *MongoUserRepository) UpdateContact(ctx context.Context, id string, u domain.ContactUpdate) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}
	if u.DisplayName != nil {
		set["display_name"] = *u.DisplayName
	}
	if u.Phone != nil {
		set["phone"] = *u.Phone
	}
	if u.Gender != nil {
		set["gender"] = *u.Gender
	}
	if u.TelegramChatID != nil {
		if *u.TelegramChatID == 0 {
			unset["telegram_chat_id"] = ""
		} else {
			set["telegram_chat_id"] = *u.TelegramChatID
		}
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return r.updateOne(ctx, bson.M{"_id": id}, update, domain.ErrNotFound)
}

func (r *MongoUserRepository) UpdatePhoto(ctx context.Context, id, url, key string) error {
	update := bson.M{"$set": bson.M{"photo_url": url, "photo_key": key, "updated_at": time.Now().UTC()}}
	if url == "" {
		update = bson.M{
			"$unset": bson.M{"photo_url": "", "photo_key": ""},
			"$set":   bson.M{"updated_at": time.Now().UTC()},
		}
	}
	return r.updateOne(ctx, bson.M{"_id": id}, update, domain.ErrNotFound)
}

func (r *MongoUserRepository) LinkFirebaseUID(ctx context.Context, id, uid string) error {
	update := bson.M{
		"$set": bson.M{
			"firebase_uid": uid,
			"updated_at":   time.Now().UTC(),
		},
	}
	err := r.updateOne(ctx, bson.M{"_id": id}, update, domain.ErrNotFound)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrAccountExists
	}
	return err
}

// SetApproval moves approval_status from -> to only if it still reads from.
func (r *MongoUserRepository) SetApproval(ctx context.Context, id string, from, to domain.ApprovalStatus) error {
	filter := bson.M{"_id": id, "approval_status": from}
	update := bson.M{"$set": bson.M{"approval_status": to, "updated_at": time.Now().UTC()}}
	return r.updateOne(ctx, filter, update, domain.ErrConflict)
}

// SetRole moves role from -> to only if it still reads from.
func (r *MongoUserRepository) SetRole(ctx context.Context, id string, from, to domain.Role) error {
	filter := bson.M{"_id": id, "role": from}
	update := bson.M{"$set": bson.M{"role": to, "updated_at": time.Now().UTC()}}
	return r.updateOne(ctx, filter, update, domain.ErrConflict)
}

func (r *MongoUserRepository) ListPendingApprovals(ctx context.Context) ([]*domain.Principal, error) {
	filter := bson.M{
		"role":            bson.M{"$in": []domain.Role{domain.RoleMentor, domain.RolePartner}},
		"approval_status": domain.ApprovalPending,
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending users: %w", err)
	}
	return decodeAll[domain.Principal](ctx, cursor)
}

func (r *MongoUserRepository) List(ctx context.Context, f domain.PrincipalFilter) ([]*domain.Principal, error) {
	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	if f.Search != "" {
		pattern := primitiveRegex(f.Search)
		filter["$or"] = bson.A{
			bson.M{"display_name": pattern},
			bson.M{"email": pattern},
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return decodeAll[domain.Principal](ctx, cursor)
}

func (r *MongoUserRepository) CountByRole(ctx context.Context) (map[domain.Role]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$role"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to count users by role: %w", err)
	}
	defer cursor.Close(ctx)

	counts := make(map[domain.Role]int, len(domain.AllRoles))
	for _, role := range domain.AllRoles {
		counts[role] = 0
	}
	for cursor.Next(ctx) {
		var row struct {
			Role  domain.Role `bson:"_id"`
			Count int         `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		counts[row.Role] = row.Count
	}
	return counts, cursor.Err()
}

// RecordLogin stamps last_login_at.
func (r *MongoUserRepository) RecordLogin(ctx context.Context, id string, at time.Time) error {
	update := bson.M{"$set": bson.M{"last_login_at": at.UTC()}}
	return r.updateOne(ctx, bson.M{"_id": id}, update, domain.ErrNotFound)
}

// updateOne applies update and maps "no document matched" to missErr.
// A CAS miss on an existing id is a conflict, a miss on an unknown id is not found.
func (r *MongoUserRepository) updateOne(ctx context.Context, filter, update bson.M, missErr error) error {
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return err
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.MatchedCount == 0 {
		if missErr == domain.ErrConflict {
			if _, getErr := r.GetByID(ctx, filter["_id"].(string)); getErr != nil {
				return getErr
			}
		}
		return missErr
	}
	return nil
}

func primitiveRegex(s string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
}
