package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jayronsanchez/backend-blog-tutorial-linkedin/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const articlesCollection = "articles"

// MongoStore keeps one document per article in the articles collection.
// Mutations map directly onto $inc and $push, and the upvote guard onto a
// $ne filter, so every update is a single server-side atomic operation.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects, pings the primary and makes sure names are unique.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	coll := client.Database(database).Collection(articlesCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create name index: %w", err)
	}

	return &MongoStore{client: client, coll: coll}, nil
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) FindOne(ctx context.Context, name string) (*model.Article, error) {
	var article model.Article
	err := s.coll.FindOne(ctx, bson.M{"name": name}).Decode(&article)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	article.Normalize()
	return &article, nil
}

func (s *MongoStore) Insert(ctx context.Context, article *model.Article) error {
	article.Normalize()
	_, err := s.coll.InsertOne(ctx, article)
	if mongo.IsDuplicateKeyError(err) {
		return ErrExists
	}
	return err
}

func (s *MongoStore) UpdateOne(ctx context.Context, name string, m Mutation) (bool, error) {
	filter := mutationFilter(name, m)
	update := mutationUpdate(m)
	if len(update) == 0 {
		n, err := s.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
		return n > 0, err
	}

	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func mutationFilter(name string, m Mutation) bson.M {
	filter := bson.M{"name": name}
	if m.UnlessUpvotedBy != "" {
		filter["upvoteIds"] = bson.M{"$ne": m.UnlessUpvotedBy}
	}
	return filter
}

func mutationUpdate(m Mutation) bson.M {
	update := bson.M{}
	if m.IncUpvotes != 0 {
		update["$inc"] = bson.M{"upvotes": m.IncUpvotes}
	}

	push := bson.M{}
	if m.PushUpvoteID != "" {
		push["upvoteIds"] = m.PushUpvoteID
	}
	if m.PushComment != nil {
		push["comments"] = *m.PushComment
	}
	if len(push) > 0 {
		update["$push"] = push
	}
	return update
}
