package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Config holds the document-store connection settings. All fields are
// required and validated eagerly, before any job or request runs
type Config struct {
	URI                     string
	Database                string
	RatesCollection         string
	SubscriptionsCollection string
	PropertiesCollection    string

	// RatesDocumentID is the fixed _id of the single per-source rates
	// document all pair updates merge into
	RatesDocumentID string
}

// Validate reports every missing configuration key at once
func (c Config) Validate() error {
	var missing []string

	for key, value := range map[string]string{
		"uri":                      c.URI,
		"database":                 c.Database,
		"rates collection":         c.RatesCollection,
		"subscriptions collection": c.SubscriptionsCollection,
		"properties collection":    c.PropertiesCollection,
		"rates document id":        c.RatesDocumentID,
	} {
		if value == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing mongo configuration: %s", strings.Join(missing, ", "))
	}

	return nil
}

// Adapter is the MongoDB-backed store. It implements the rate store,
// the watermark store and the subscription store
type Adapter struct {
	client *mongo.Client

	rates         *mongo.Collection
	subscriptions *mongo.Collection
	properties    *mongo.Collection

	ratesDocumentID string
}

// Connect opens and pings the MongoDB deployment
func Connect(ctx context.Context, cfg Config) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("unable to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, errors.Join(
			fmt.Errorf("unable to reach mongo (ping): %w", err),
			client.Disconnect(ctx),
		)
	}

	db := client.Database(cfg.Database)

	return &Adapter{
		client:          client,
		rates:           db.Collection(cfg.RatesCollection),
		subscriptions:   db.Collection(cfg.SubscriptionsCollection),
		properties:      db.Collection(cfg.PropertiesCollection),
		ratesDocumentID: cfg.RatesDocumentID,
	}, nil
}

// Close disconnects the underlying client
func (a *Adapter) Close(ctx context.Context) error {
	return a.client.Disconnect(ctx)
}
