package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"lifeassistant/db"
	"lifeassistant/errs"
	"lifeassistant/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo is the production Store.
type Mongo struct {
	db  *db.DB
	pub Publisher
}

func NewMongo(d *db.DB, pub Publisher) *Mongo {
	return &Mongo{db: d, pub: pub}
}

func (m *Mongo) publish(ctx context.Context, ev models.ChangeEvent) {
	if m.pub != nil {
		m.pub.Publish(ctx, ev)
	}
}

var afterUpdate = options.FindOneAndUpdate().SetReturnDocument(options.After)

func (m *Mongo) ListDishes(ctx context.Context) ([]models.Dish, error) {
	uid, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	cursor, err := m.db.DishesCollection.Find(ctx, bson.M{"userId": uid})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	dishes := []models.Dish{}
	if err := cursor.All(ctx, &dishes); err != nil {
		return nil, err
	}
	return dishes, nil
}

func (m *Mongo) GetDish(ctx context.Context, id string) (models.Dish, error) {
	uid, err := RequireUser(ctx)
	if err != nil {
		return models.Dish{}, err
	}
	var d models.Dish
	err = m.db.DishesCollection.FindOne(ctx, bson.M{"id": id, "userId": uid}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Dish{}, errs.ErrNotFound
	}
	return d, err
}

func (m *Mongo) InsertDish(ctx context.Context, d models.Dish) (models.Dish, error) {
	uid, err := RequireUser(ctx)
	if err != nil {
		return models.Dish{}, err
	}
	d.UserID = uid
	d.Revision = initialRevision()
	if _, err := m.db.DishesCollection.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Dish{}, errs.ErrConflict
		}
		return models.Dish{}, err
	}
	m.publish(ctx, dishEvent(models.OpInsert, d))
	return d, nil
}

func (m *Mongo) UpdateDish(ctx context.Context, d models.Dish) error {
	uid, err := RequireUser(ctx)
	if err != nil {
		return err
	}
	update := bson.M{
		"$set": bson.M{
			"name":        d.Name,
			"ingredients": d.Ingredients,
			"seasonings":  d.Seasonings,
			"videoLink":   d.VideoLink,
			"servings":    d.Servings,
		},
		"$inc": bson.M{"rev": 1},
	}
	var updated models.Dish
	err = m.db.DishesCollection.FindOneAndUpdate(ctx, bson.M{"id": d.ID, "userId": uid}, update, afterUpdate).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return errs.ErrNotFound
	}
	if err != nil {
		return err
	}
	m.publish(ctx, dishEvent(models.OpUpdate, updated))
	return nil
}

func (m *Mongo) DeleteDish(ctx context.Context, id string) error {
	uid, err := RequireUser(ctx)
	if err != nil {
		return err
	}
	var gone models.Dish
	err = m.db.DishesCollection.FindOneAndDelete(ctx, bson.M{"id": id, "userId": uid}).Decode(&gone)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return err
	}
	gone.Revision++
	m.publish(ctx, dishEvent(models.OpDelete, gone))
	return nil
}

func (m *Mongo) ListSlots(ctx context.Context) ([]models.ScheduleSlot, error) {
	uid, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	cursor, err := m.db.SlotCollection.Find(ctx, bson.M{"userId": uid}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	slots := []models.ScheduleSlot{}
	if err := cursor.All(ctx, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

func (m *Mongo) FindSlot(ctx context.Context, key models.SlotKey) (models.ScheduleSlot, error) {
	uid, err := RequireUser(ctx)
	if err != nil {
		return models.ScheduleSlot{}, err
	}
	var s models.ScheduleSlot
	filter := bson.M{"userId": uid, "date": key.Date, "mealType": key.MealType}
	err = m.db.SlotCollection.FindOne(ctx, filter).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ScheduleSlot{}, errs.ErrNotFound
	}
	return s, err
}

// slotWriteError tells a (date, mealType) collision apart from an id collision.
// Both indexes are scoped to the user.
func slotWriteError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		if strings.Contains(err.Error(), db.SlotKeyIndex) {
			return errs.ErrSlotTaken
		}
		return errs.ErrConflict
	}
	return err
}

func (m *Mongo) InsertSlot(ctx context.Context, s models.ScheduleSlot) (models.ScheduleSlot, error) {
	uid, err := RequireUser(ctx)
	if err != nil {
		return models.ScheduleSlot{}, err
	}
	s.UserID = uid
	s.Revision = initialRevision()
	if _, err := m.db.SlotCollection.InsertOne(ctx, s); err != nil {
		return models.ScheduleSlot{}, slotWriteError(err)
	}
	m.publish(ctx, slotEvent(models.OpInsert, s))
	return s, nil
}

func (m *Mongo) UpdateSlot(ctx context.Context, s models.ScheduleSlot) error {
	uid, err := RequireUser(ctx)
	if err != nil {
		return err
	}
	update := bson.M{
		"$set": bson.M{"date": s.Date, "mealType": s.MealType, "items": s.Items},
		"$inc": bson.M{"rev": 1},
	}
	var updated models.ScheduleSlot
	filter := bson.M{"id": s.ID, "userId": uid, "rev": s.Revision}
	err = m.db.SlotCollection.FindOneAndUpdate(ctx, filter, update, afterUpdate).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return m.staleOrMissing(ctx, uid, s.ID)
	}
	if err != nil {
		return slotWriteError(err)
	}
	m.publish(ctx, slotEvent(models.OpUpdate, updated))
	return nil
}

func (m *Mongo) DeleteSlot(ctx context.Context, s models.ScheduleSlot) error {
	uid, err := RequireUser(ctx)
	if err != nil {
		return err
	}
	var gone models.ScheduleSlot
	filter := bson.M{"id": s.ID, "userId": uid, "rev": s.Revision}
	err = m.db.SlotCollection.FindOneAndDelete(ctx, filter).Decode(&gone)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if err := m.staleOrMissing(ctx, uid, s.ID); !errors.Is(err, errs.ErrNotFound) {
			return err
		}
		return nil
	}
	if err != nil {
		return err
	}
	gone.Revision++
	m.publish(ctx, slotEvent(models.OpDelete, gone))
	return nil
}

// staleOrMissing explains a guarded slot write that matched nothing: the slot is
// either gone or was written after the caller read it.
func (m *Mongo) staleOrMissing(ctx context.Context, uid, id string) error {
	n, err := m.db.SlotCollection.CountDocuments(ctx, bson.M{"id": id, "userId": uid}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if n > 0 {
		return errs.ErrConflict
	}
	return errs.ErrNotFound
}

func (m *Mongo) CreateUser(ctx context.Context, u models.User) error {
	if _, err := m.db.UserCollection.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errs.ErrConflict
		}
		return err
	}
	return nil
}

func (m *Mongo) FindUserByUsername(ctx context.Context, username string) (models.User, error) {
	var u models.User
	err := m.db.UserCollection.FindOne(ctx, bson.M{"username": username}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, errs.ErrNotFound
	}
	return u, err
}

func (m *Mongo) TouchLogin(ctx context.Context, userID string, at time.Time) error {
	res, err := m.db.UserCollection.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{"lastLogin": at}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (m *Mongo) GetExportSettings(ctx context.Context) (models.ExportSettings, error) {
	uid, err := RequireUser(ctx)
	if err != nil {
		return models.ExportSettings{}, err
	}
	var s models.ExportSettings
	err = m.db.SettingsCollection.FindOne(ctx, bson.M{"_id": uid}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.DefaultExportSettings(uid), nil
	}
	return s, err
}

func (m *Mongo) SaveExportSettings(ctx context.Context, s models.ExportSettings) error {
	uid, err := RequireUser(ctx)
	if err != nil {
		return err
	}
	s.UserID = uid
	opts := options.Replace().SetUpsert(true)
	_, err = m.db.SettingsCollection.ReplaceOne(ctx, bson.M{"_id": uid}, s, opts)
	return err
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.db.Close(ctx)
}

// initialRevision seeds a new row's revision from the clock so that an id that is
// deleted and inserted again still outranks its own tombstone.
func initialRevision() int64 { return time.Now().UnixNano() }
