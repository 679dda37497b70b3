package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Config for the document store connection.
type Config struct {
	URI         string
	Database    string
	DialTimeout time.Duration
}

// Mongo is a read-only adapter over the compliance document store. It
// implements dedup.Store; this subsystem never writes through it.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Mongo, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	logger.Info("store.connecting", "database", cfg.Database)
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.DialTimeout))
	if err != nil {
		return nil, fmt.Errorf("connect document store: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping document store: %w", err)
	}

	logger.Info("store.connected", "database", cfg.Database)
	return &Mongo{client: client, db: client.Database(cfg.Database), logger: logger}, nil
}

// FindOne returns the first record matching the filter, or (nil, nil) when
// no record matches.
func (m *Mongo) FindOne(ctx context.Context, collection string, filter map[string]any) (map[string]any, error) {
	var record bson.M
	err := m.db.Collection(collection).FindOne(ctx, bson.M(filter)).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		m.logger.Error("store.find_one.failed", "collection", collection, "error", err)
		return nil, err
	}

	out := make(map[string]any, len(record))
	for k, v := range record {
		out[k] = normalizeValue(v)
	}
	return out, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	m.logger.Info("store.closing")
	return m.client.Disconnect(ctx)
}

// normalizeValue flattens driver-specific types into plain strings where the
// callers only compare and display them.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case fmt.Stringer:
		return t.String()
	default:
		return v
	}
}
