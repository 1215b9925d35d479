// Package repository owns the MongoDB connection and the index migrations
// shared by the orders, catalog and analytics stores.
package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type PoolOptions struct {
	MaxPoolSize uint64
	MinPoolSize uint64
}

var DefaultPoolOptions = PoolOptions{MaxPoolSize: 100, MinPoolSize: 10}

// Mongo is a connected database handle.
type Mongo struct {
	client *mongo.Client
	DB     *mongo.Database
}

func Connect(ctx context.Context, uri, database string, pool PoolOptions) (*Mongo, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(pool.MaxPoolSize).
		SetMinPoolSize(pool.MinPoolSize)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &Mongo{client: client, DB: client.Database(database)}, nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
