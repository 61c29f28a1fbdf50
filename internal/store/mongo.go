package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/kadirbelkuyu/schemagraph/internal/config"
	"github.com/kadirbelkuyu/schemagraph/internal/graph"
	"github.com/kadirbelkuyu/schemagraph/pkg/logger"
)

const (
	tablesCollection = "schema_tables"
	indexCollection  = "schema_index"
	schemaIndexID    = "schema_index"
)

// MongoStore keeps table documents in one collection keyed by
// "schema.table" and the schema index as a single document.
type MongoStore struct {
	cfg    *config.Config
	log    *logger.Logger
	client *mongo.Client
}

type tableDocument struct {
	ID          string `bson:"_id"`
	graph.Table `bson:",inline"`
}

type indexDocument struct {
	ID                string `bson:"_id"`
	graph.SchemaIndex `bson:",inline"`
}

func NewMongoStore(cfg *config.Config, log *logger.Logger) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.GetMongoURI()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoStore{cfg: cfg, log: log, client: client}, nil
}

func (s *MongoStore) Kind() string { return "mongo" }

// Backup is a no-op for the mongo store.
func (s *MongoStore) Backup() (string, error) {
	return "", nil
}

func (s *MongoStore) WriteTable(table *graph.Table) error {
	ctx, cancel := s.opContext()
	defer cancel()

	docID := table.Key().String()
	coll := s.collection(tablesCollection)

	var existing graph.Table
	err := coll.FindOne(ctx, bson.M{"_id": docID}).Decode(&existing)
	switch {
	case err == nil:
		mergeTable(table, &existing)
	case errors.Is(err, mongo.ErrNoDocuments):
	default:
		return fmt.Errorf("failed to load table document %s: %w", docID, err)
	}

	doc := tableDocument{ID: docID, Table: *table}
	if _, err := coll.ReplaceOne(ctx, bson.M{"_id": docID}, doc, options.Replace().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to write table document %s: %w", docID, err)
	}

	return nil
}

func (s *MongoStore) WriteIndex(index *graph.SchemaIndex) error {
	existing, err := s.LoadIndex()
	switch {
	case err == nil:
		mergeIndex(index, existing)
	case errors.Is(err, ErrIndexNotFound):
	default:
		return err
	}

	ctx, cancel := s.opContext()
	defer cancel()

	doc := indexDocument{ID: schemaIndexID, SchemaIndex: *index}
	if _, err := s.collection(indexCollection).ReplaceOne(ctx, bson.M{"_id": schemaIndexID}, doc, options.Replace().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to write schema index: %w", err)
	}

	return nil
}

func (s *MongoStore) Prune(keep map[graph.TableKey]struct{}) (int, error) {
	ctx, cancel := s.opContext()
	defer cancel()

	ids := make([]string, 0, len(keep))
	for key := range keep {
		ids = append(ids, key.String())
	}

	result, err := s.collection(tablesCollection).DeleteMany(ctx, bson.M{"_id": bson.M{"$nin": ids}})
	if err != nil {
		return 0, fmt.Errorf("failed to prune stale table documents: %w", err)
	}

	return int(result.DeletedCount), nil
}

func (s *MongoStore) LoadTable(schema, table string) (*graph.Table, error) {
	ctx, cancel := s.opContext()
	defer cancel()

	docID := graph.TableKey{Schema: schema, Table: table}.String()

	var doc graph.Table
	if err := s.collection(tablesCollection).FindOne(ctx, bson.M{"_id": docID}).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to load table document %s: %w", docID, err)
	}

	return &doc, nil
}

// LoadTables reads every table document in the collection. Documents
// that fail to decode are logged and skipped.
func (s *MongoStore) LoadTables() ([]*graph.Table, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cursor, err := s.collection(tablesCollection).Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list table documents: %w", err)
	}
	defer cursor.Close(ctx)

	var tables []*graph.Table
	for cursor.Next(ctx) {
		var doc graph.Table
		if err := cursor.Decode(&doc); err != nil {
			s.log.Warnf("skipping undecodable table document: %v", err)
			continue
		}
		tables = append(tables, &doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate table documents: %w", err)
	}

	return tables, nil
}

func (s *MongoStore) LoadIndex() (*graph.SchemaIndex, error) {
	ctx, cancel := s.opContext()
	defer cancel()

	var index graph.SchemaIndex
	err := s.collection(indexCollection).FindOne(ctx, bson.M{"_id": schemaIndexID}).Decode(&index)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrIndexNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load schema index: %w", err)
	}

	return &index, nil
}

func (s *MongoStore) Close() error {
	if s.client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) collection(name string) *mongo.Collection {
	return s.client.Database(s.cfg.Graph.Database).Collection(name)
}

func (s *MongoStore) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}
