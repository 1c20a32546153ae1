package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mansoorceksport/mentorlink/internal/config"
	"github.com/mansoorceksport/mentorlink/internal/domain"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.uber.org/zap"
)

// Store bundles the Profile Store and Booking Repository of one backend
// together with its transactor.
type Store struct {
	Users       domain.PrincipalRepository
	Mentors     domain.MentorRepository
	Partners    domain.PartnerRepository
	Categories  domain.CategoryRepository
	Bookings    domain.BookingRepository
	Assignments domain.AssignmentRepository
	Reviews     domain.ReviewRepository
	Tx          domain.Transactor

	close func(ctx context.Context) error
}

// Open connects to the backend selected by cfg.Store.Driver
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMongo:
		return OpenMongo(ctx, cfg.MongoDB, cfg.OTEL.Enabled, logger)
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.Postgres, logger)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// OpenMongo connects to a MongoDB replica set
func OpenMongo(ctx context.Context, cfg config.MongoDBConfig, traced bool, logger *zap.Logger) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Client().ApplyURI(cfg.URI)
	if traced {
		opts.SetMonitor(otelmongo.NewMonitor())
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	logger.Info("Connected to MongoDB", zap.String("database", cfg.Database))

	store := NewMongoStore(client, client.Database(cfg.Database))
	store.close = client.Disconnect
	return store, nil
}

// NewMongoStore builds the repositories on an open client
func NewMongoStore(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		Users:       NewMongoUserRepository(db),
		Mentors:     NewMongoMentorRepository(db),
		Partners:    NewMongoPartnerRepository(db),
		Categories:  NewMongoCategoryRepository(db),
		Bookings:    NewMongoBookingRepository(db),
		Assignments: NewMongoAssignmentRepository(db),
		Reviews:     NewMongoReviewRepository(db),
		Tx:          NewMongoTransactor(client),
	}
}

// OpenPostgres connects a pgx pool and applies migrations
func OpenPostgres(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	logger.Info("Connected to Postgres")

	migrator, err := NewMigrator(pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	defer migrator.Close()
	if err := migrator.Run(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	store := NewPostgresStore(pool)
	store.close = func(context.Context) error {
		pool.Close()
		return nil
	}
	return store, nil
}

// NewPostgresStore builds the repositories on a migrated pool
func NewPostgresStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Users:       NewPostgresUserRepository(pool),
		Mentors:     NewPostgresMentorRepository(pool),
		Partners:    NewPostgresPartnerRepository(pool),
		Categories:  NewPostgresCategoryRepository(pool),
		Bookings:    NewPostgresBookingRepository(pool),
		Assignments: NewPostgresAssignmentRepository(pool),
		Reviews:     NewPostgresReviewRepository(pool),
		Tx:          NewPostgresTransactor(pool),
	}
}

// WithCache wraps the read-heavy repositories with Redis caching
func (s *Store) WithCache(cache *RedisCache, cfg config.CacheConfig, logger *zap.Logger) *Store {
	mentors := NewCachedMentorRepository(s.Mentors, cache, cfg.EligibilityTTL, logger)
	s.Mentors = mentors
	s.Users = NewCachedUserRepository(s.Users, mentors)
	s.Categories = NewCachedCategoryRepository(s.Categories, cache, cfg.CategoriesTTL)
	return s
}

// Close releases the backend connection
func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}
