package repository

import (
	"context"

	"github.com/quillsync/quillsync/internal/document"
	"github.com/quillsync/quillsync/internal/index"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo stores one Mongo document per user id holding the full index
// snapshot. Whole-slot replace keeps the write path identical to the memory
// repo; snapshots are small (metadata only, no content).
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	return &MongoRepo{col: col}
}

func (m *MongoRepo) Get(ctx context.Context, userID string) (*index.Snapshot, error) {
	var s index.Snapshot
	err := m.col.FindOne(ctx, bson.M{"_id": userID}).Decode(&s)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if s.Entries == nil {
		s.Entries = map[string]document.Metadata{}
	}
	return &s, nil
}

func (m *MongoRepo) Save(ctx context.Context, snap *index.Snapshot) error {
	opts := options.Replace().SetUpsert(true)
	_, err := m.col.ReplaceOne(ctx, bson.M{"_id": snap.UserID}, snap, opts)
	return err
}
