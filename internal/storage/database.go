package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/zhongyi/internal/types"
)

// MongoSink mirrors records into a MongoDB collection, one document per
// record with fields in page order.
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
	count      int
	logger     *slog.Logger
}

// NewMongoSink connects to MongoDB and selects the collection for a category.
func NewMongoSink(ctx context.Context, uri, database, collection string, logger *slog.Logger) (*MongoSink, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, mongoErr(fmt.Errorf("mongodb connect: %w", err))
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, mongoErr(fmt.Errorf("mongodb ping: %w", err))
	}

	return &MongoSink{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "mongo_storage", "collection", collection),
	}, nil
}

func (s *MongoSink) Name() string { return "mongodb" }

// RecordDocument renders a record as an ordered BSON document.
func RecordDocument(rec *types.Record, now time.Time) bson.D {
	doc := make(bson.D, 0, rec.Len()+3)
	doc = append(doc,
		bson.E{Key: "_category", Value: rec.Category},
		bson.E{Key: "_source_url", Value: rec.SourceURL},
		bson.E{Key: "_timestamp", Value: now},
	)
	for _, f := range rec.Fields() {
		doc = append(doc, bson.E{Key: f.Label, Value: f.Value})
	}
	return doc
}

func (s *MongoSink) Append(rec *types.Record) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.collection.InsertOne(ctx, RecordDocument(rec, time.Now())); err != nil {
		return mongoErr(fmt.Errorf("mongodb insert: %w", err))
	}

	s.count++
	s.logger.Debug("record stored in mongodb", "total", s.count)
	return nil
}

func (s *MongoSink) Close() error {
	s.logger.Info("mongodb storage closing", "total_records", s.count)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func mongoErr(err error) error {
	return &types.StorageError{Backend: "mongodb", Err: err}
}

// --- Multi-Sink Fan-Out ---

// MultiSink writes records to multiple backends.
type MultiSink struct {
	backends []Sink
	logger   *slog.Logger
}

// NewMultiSink creates a sink that fans out to multiple backends.
func NewMultiSink(backends []Sink, logger *slog.Logger) *MultiSink {
	return &MultiSink{
		backends: backends,
		logger:   logger.With("component", "multi_storage"),
	}
}

func (s *MultiSink) Name() string { return "multi" }

func (s *MultiSink) Append(rec *types.Record) error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Append(rec); err != nil {
			s.logger.Error("backend append failed", "backend", backend.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *MultiSink) Close() error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Close(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
