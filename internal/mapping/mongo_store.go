package mapping

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoStore reads mapping records from the collection named by
// CONNECTOR_MAPPINGS.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(client *mongo.Client, database, collection string) *MongoStore {
	return &MongoStore{coll: client.Database(database).Collection(collection)}
}

func (s *MongoStore) Get(ctx context.Context, mappingID string) (*Record, error) {
	var rec Record
	err := s.coll.FindOne(ctx, bson.M{"mapping_id": mappingID}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mapping: get %s: %w", mappingID, err)
	}
	return &rec, nil
}
