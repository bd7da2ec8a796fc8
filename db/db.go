package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SlotKeyIndex enforces one slot per (user, date, mealType).
const SlotKeyIndex = "unique_slot_key"

// Dish and slot ids are unique within one user; _id is left to the driver.
const (
	DishIDIndex = "unique_dish_id"
	SlotIDIndex = "unique_slot_id"
)

type DB struct {
	Client             *mongo.Client
	DishesCollection   *mongo.Collection
	SlotCollection     *mongo.Collection
	UserCollection     *mongo.Collection
	SettingsCollection *mongo.Collection
}

// Connect opens the MongoDB connection and resolves the collections.
func Connect(ctx context.Context, uri, database string) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	d := client.Database(database)
	return &DB{
		Client:             client,
		DishesCollection:   d.Collection("dishes"),
		SlotCollection:     d.Collection("schedule_items"),
		UserCollection:     d.Collection("users"),
		SettingsCollection: d.Collection("settings"),
	}, nil
}

// EnsureIndexes creates the indexes the stores rely on.
func (d *DB) EnsureIndexes(ctx context.Context) error {
	slotIdxs := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: 1}, {Key: "mealType", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(SlotKeyIndex),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(SlotIDIndex),
		},
	}
	if _, err := d.SlotCollection.Indexes().CreateMany(ctx, slotIdxs); err != nil {
		return fmt.Errorf("slot indexes: %w", err)
	}

	dishIdxs := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(DishIDIndex),
		},
	}
	if _, err := d.DishesCollection.Indexes().CreateMany(ctx, dishIdxs); err != nil {
		return fmt.Errorf("dish indexes: %w", err)
	}

	userIdxs := []mongo.IndexModel{
		{Keys: bson.M{"username": 1}, Options: options.Index().SetUnique(true).SetName("unique_username")},
	}
	if _, err := d.UserCollection.Indexes().CreateMany(ctx, userIdxs); err != nil {
		return fmt.Errorf("user indexes: %w", err)
	}
	return nil
}

func (d *DB) Close(ctx context.Context) error {
	return d.Client.Disconnect(ctx)
}
