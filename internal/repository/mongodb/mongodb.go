package mongodb

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	connectTimeout  = 10 * time.Second
	usersCollection = "users"
	defaultDatabase = "accounts"
)

// Mongo wraps a connected client and the database used by the service.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// New connects to MongoDB at the given URI, verifies the connection and
// ensures the indexes the service relies on. The database name is taken
// from the URI path, falling back to "accounts".
func New(ctx context.Context, uri string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	m := &Mongo{
		client: client,
		db:     client.Database(databaseFromURI(uri)),
	}

	if err := m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo indexes: %w", err)
	}
	return m, nil
}

// Ping reports whether the primary is reachable. Used by readiness checks.
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the underlying client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) users() *mongo.Collection {
	return m.db.Collection(usersCollection)
}

// ensureIndexes creates the unique indexes on email and username that back
// the duplicate-identity checks.
func (m *Mongo) ensureIndexes(ctx context.Context) error {
	_, err := m.users().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	return err
}

// databaseFromURI extracts the database name from a mongodb:// URI,
// e.g. mongodb://host:27017/accounts?opts -> accounts.
func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return defaultDatabase
	}
	name := strings.TrimPrefix(u.Path, "/")
	if name == "" {
		return defaultDatabase
	}
	return name
}
