package docstore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore maps every collection to a MongoDB collection and every document id to _id.
// Field paths go straight to $set / $addToSet, so writes never touch sibling fields.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{client: client, db: client.Database(database)}
}

func (s *MongoStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return nil, fmt.Errorf("mongo get %s/%s: %w", collection, id, err)
	}
	return fromBSON(raw), nil
}

func (s *MongoStore) List(ctx context.Context, collection string) ([]Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.db.Collection(collection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo list %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	var out []Entry
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, fmt.Errorf("mongo list %s: %w", collection, err)
		}
		id := fmt.Sprint(normalizeBSON(raw["_id"]))
		out = append(out, Entry{ID: id, Doc: fromBSON(raw)})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("mongo list %s: %w", collection, err)
	}
	return out, nil
}

func (s *MongoStore) Put(ctx context.Context, collection, id string, doc Document) error {
	body := bson.M{}
	for k, v := range doc {
		body[k] = v
	}
	body["_id"] = id
	_, err := s.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, body, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo put %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *MongoStore) SetFields(ctx context.Context, collection, id string, fields map[string]any) error {
	set := bson.M{}
	for path, v := range fields {
		if _, err := SplitPath(path); err != nil {
			return err
		}
		set[path] = v
	}
	if len(set) == 0 {
		return nil
	}
	_, err := s.db.Collection(collection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo set %s/%s: %w", collection, id, err)
	}
	return nil
}

// ClaimField relies on the unique _id: when the field is already present the filter
// misses, the upsert tries to insert a second document with the same _id and fails.
func (s *MongoStore) ClaimField(ctx context.Context, collection, id, field string, value any) (bool, error) {
	if err := ValidateSegment(field); err != nil {
		return false, err
	}
	res, err := s.db.Collection(collection).UpdateOne(ctx,
		bson.M{"_id": id, field: bson.M{"$exists": false}},
		bson.M{"$set": bson.M{field: value}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("mongo claim %s/%s.%s: %w", collection, id, field, err)
	}
	return res.ModifiedCount == 1 || res.UpsertedCount == 1, nil
}

func (s *MongoStore) AddToSet(ctx context.Context, collection, id, path string, value any) error {
	if _, err := SplitPath(path); err != nil {
		return err
	}
	_, err := s.db.Collection(collection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$addToSet": bson.M{path: value}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo addToSet %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func fromBSON(raw bson.M) Document {
	doc := Document{}
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		doc[k] = normalizeBSON(v)
	}
	return doc
}

// normalizeBSON converts driver types into the plain JSON shapes the rest of the code expects.
func normalizeBSON(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeBSON(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeBSON(val)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalizeBSON(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeBSON(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeBSON(val)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.ObjectID:
		return t.Hex()
	case int32:
		return int64(t)
	default:
		return v
	}
}
