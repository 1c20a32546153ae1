package repository

import (
	"context"
	"fmt"

	"github.com/mansoorceksport/mentorlink/internal/domain"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoTransactor runs units of work in a multi-document transaction.
// The deployment must be a replica set.
type MongoTransactor struct {
	client *mongo.Client
}

func NewMongoTransactor(client *mongo.Client) *MongoTransactor {
	return &MongoTransactor{client: client}
}

// WithinTx implements domain.Transactor. fn receives a session context and
// may be re-run by the driver on transient transaction errors.
func (t *MongoTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	// Nested units join the outer transaction.
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	sess, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer sess.EndSession(ctx)

	// The driver may retry the callback; only the committed attempt's hooks run.
	var runHooks func(context.Context)
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		txCtx, run := domain.WithCommitHooks(sc)
		runHooks = run
		return nil, fn(txCtx)
	})
	if err != nil {
		return err
	}
	runHooks(ctx)
	return nil
}

// decodeAll drains a cursor into a slice of T.
func decodeAll[T any](ctx context.Context, cursor *mongo.Cursor) ([]*T, error) {
	defer cursor.Close(ctx)

	items := make([]*T, 0)
	for cursor.Next(ctx) {
		var item T
		if err := cursor.Decode(&item); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	return items, cursor.Err()
}
