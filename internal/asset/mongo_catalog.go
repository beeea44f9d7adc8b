package asset

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoCatalog reads video documents from the collection named by ASSETS.
type MongoCatalog struct {
	coll *mongo.Collection
}

func NewMongoCatalog(client *mongo.Client, database, collection string) *MongoCatalog {
	return &MongoCatalog{coll: client.Database(database).Collection(collection)}
}

func (c *MongoCatalog) FetchVideo(ctx context.Context, videoID string) (*RawVideo, error) {
	var raw RawVideo
	err := c.coll.FindOne(ctx, bson.M{"_id": videoID}).Decode(&raw)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("asset: fetch %s: %w", videoID, err)
	}
	return &raw, nil
}
