package registry

import (
	"context"
	"fmt"

	"github.com/JungesAngebot/platform-connectors/internal/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is the production Store: one document per registry_id in the
// collection named by CONNECTOR_REGISTRY, written with full-document
// upserts so that no field is ever partially cleared (invariant 4).
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore opens the registry collection. It does not create indexes
// beyond the unique key on registry_id; operators are expected to manage
// the rest of the schema out of band, the way the teacher's bolt/sqlite
// stores expect their data directory to already exist.
func NewMongoStore(ctx context.Context, client *mongo.Client, database, collection string) (*MongoStore, error) {
	coll := client.Database(database).Collection(collection)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "registry_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("registry: ensure index: %w", err)
	}
	return &MongoStore{coll: coll}, nil
}

func (s *MongoStore) Load(ctx context.Context, registryID string) (*Entry, error) {
	var entry Entry
	err := s.coll.FindOne(ctx, bson.M{"registry_id": registryID}).Decode(&entry)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("registry: load %s: %w", registryID, err)
	}
	return &entry, nil
}

func (s *MongoStore) Save(ctx context.Context, entry *Entry) error {
	filter := bson.M{"registry_id": entry.RegistryID}
	update := bson.M{"$set": entry}
	opts := options.Update().SetUpsert(true)

	if _, err := s.coll.UpdateOne(ctx, filter, update, opts); err != nil {
		log.WithComponent("registry").Error().Err(err).
			Str("registry_id", entry.RegistryID).
			Msg("failed to persist registry entry")
		return fmt.Errorf("%w: %v", ErrPersistFailure, err)
	}
	return nil
}
