// Package mongostore implements the order store on MongoDB. All
// business rules live in the orders service; this is plain document
// plumbing.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fornalha/pizzaria-orders/internal/orders"
	"github.com/google/uuid"
)

const (
	DefaultDatabase   = "pizzaria"
	DefaultCollection = "orders"

	connectTimeout = 10 * time.Second
)

type Store struct {
	col *mongo.Collection
}

func Connect(ctx context.Context, uri, db, collection string) (*Store, *mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}
	if db == "" {
		db = DefaultDatabase
	}
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{col: client.Database(db).Collection(collection)}, client, nil
}

func New(col *mongo.Collection) *Store { return &Store{col: col} }

func (s *Store) Create(ctx context.Context, o *orders.Order) (string, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if _, err := s.col.InsertOne(ctx, o); err != nil {
		return "", fmt.Errorf("insert order: %w", err)
	}
	return o.ID, nil
}

func (s *Store) Get(ctx context.Context, id string) (*orders.Order, error) {
	var o orders.Order
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, orders.ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &o, nil
}

// Find returns newest first. The phone filter is applied after the
// query on digits-normalized form; the stored phone is free text, so a
// document-side regex would miss formatted variants.
func (s *Store) Find(ctx context.Context, f orders.Filter) ([]orders.Order, error) {
	query := bson.M{}
	if f.ID != "" {
		query["_id"] = f.ID
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.col.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	defer cur.Close(ctx)

	var all []orders.Order
	if err := cur.All(ctx, &all); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	if f.Phone == "" {
		return all, nil
	}

	out := all[:0]
	for _, o := range all {
		if orders.PhoneMatches(o.Customer.Phone, f.Phone) {
			out = append(out, o)
		}
	}
	return out, nil
}

// UpdateFields is a single $set so the merge is all-or-nothing;
// updated_at rides along on every call.
func (s *Store) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	set := bson.M{"updated_at": time.Now()}
	for k, v := range fields {
		set[k] = v
	}
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if res.MatchedCount == 0 {
		return orders.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if res.DeletedCount == 0 {
		return orders.ErrNotFound
	}
	return nil
}
