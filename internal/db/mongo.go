package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ErrMongoNotReady is returned when every connection attempt fails.
var ErrMongoNotReady = errors.New("mongo is not ready")

// MongoOptions tune the document-store connection.
type MongoOptions struct {
	ConnectTimeout time.Duration
	RetryAttempts  int
	RetryInterval  time.Duration
}

// ConnectMongo connects to MongoDB, retrying until the server answers a ping.
func ConnectMongo(ctx context.Context, uri, database string, opts MongoOptions) (*mongo.Database, error) {
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 1
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}

	var lastErr error
	for attempt := range opts.RetryAttempts {
		client, err := mongo.Connect(options.Client().
			ApplyURI(uri).
			SetConnectTimeout(opts.ConnectTimeout))
		if err == nil {
			if err = client.Ping(ctx, nil); err == nil {
				return client.Database(database), nil
			}
			_ = client.Disconnect(ctx)
		}
		lastErr = err

		if attempt == opts.RetryAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrMongoNotReady, ctx.Err())
		case <-time.After(opts.RetryInterval):
		}
	}
	return nil, fmt.Errorf("%w: %w", ErrMongoNotReady, lastErr)
}
