// Package mongodb stores marathons, applications and running logs in MongoDB.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names.
const (
	MarathonCollection    = "marathon"
	ApplicationCollection = "applications"
	RunningDataCollection = "userRunningData"
	defaultConnectTimeout = 10 * time.Second
)

// Connect dials MongoDB with the stable v1 server API and verifies the connection.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1).SetStrict(true).SetDeprecationErrors(true)
	opts := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(serverAPI).
		SetConnectTimeout(defaultConnectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return client, nil
}

// Store implements the domain stores on top of one MongoDB database.
type Store struct {
	marathons    *mongo.Collection
	applications *mongo.Collection
	runningData  *mongo.Collection
}

// NewStore constructs a Store over db.
func NewStore(db *mongo.Database) *Store {
	return &Store{
		marathons:    db.Collection(MarathonCollection),
		applications: db.Collection(ApplicationCollection),
		runningData:  db.Collection(RunningDataCollection),
	}
}

// EnsureIndexes creates the indexes the queries rely on. userId is unique so
// that two first-time merges from different processes cannot both insert.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.runningData.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("index %s.userId: %w", RunningDataCollection, err)
	}

	if _, err := s.marathons.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "email", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("index %s: %w", MarathonCollection, err)
	}

	if _, err := s.applications.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
	}); err != nil {
		return fmt.Errorf("index %s.email: %w", ApplicationCollection, err)
	}
	return nil
}
