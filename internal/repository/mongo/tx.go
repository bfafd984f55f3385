package mongo

import (
	"alcyxob/fitness-scheduler/internal/repository"
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// mongoTxRunner implements repository.TxRunner on top of MongoDB sessions.
// Every mutation of the schedule together with its ledger record runs through
// WithTransaction so both are committed atomically. Majority read/write
// concern makes concurrent transactions touching the same documents abort
// with a transient error instead of interleaving, which gives the
// row-lock-style serialization the undo engine relies on.
type mongoTxRunner struct {
	client *mongo.Client
}

// NewMongoTxRunner creates a transaction runner bound to the given client.
func NewMongoTxRunner(client *mongo.Client) repository.TxRunner {
	return &mongoTxRunner{client: client}
}

func (r *mongoTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	txnOptions := options.Transaction().
		SetReadConcern(readconcern.Majority()).
		SetWriteConcern(writeconcern.Majority())

	// The session context is passed to fn; repository calls made with it
	// join the transaction. fn returning an error aborts the whole thing.
	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	}, txnOptions)
	return err
}
