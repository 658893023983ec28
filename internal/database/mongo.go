package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	authorizedUsersCollection = "authorized_users"
	userSettingsCollection    = "user_settings"
)

var _ DB = (*MongoClient)(nil) // Ensure MongoClient implements DB

// MongoClient stores users and settings in MongoDB.
type MongoClient struct {
	client   *mongo.Client
	users    *mongo.Collection
	settings *mongo.Collection
}

// NewMongo connects to MongoDB and makes sure the user_id indexes exist.
func NewMongo(ctx context.Context, uri, dbName string) (*MongoClient, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(dbName)
	m := &MongoClient{
		client:   client,
		users:    db.Collection(authorizedUsersCollection),
		settings: db.Collection(userSettingsCollection),
	}

	for _, coll := range []*mongo.Collection{m.users, m.settings} {
		_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("failed to create index on %s: %w", coll.Name(), err)
		}
	}

	return m, nil
}

func (m *MongoClient) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *MongoClient) AddAuthorizedUser(ctx context.Context, userID int64) error {
	_, err := m.users.UpdateOne(ctx,
		bson.D{{Key: "user_id", Value: userID}},
		bson.D{{Key: "$setOnInsert", Value: bson.D{
			{Key: "user_id", Value: userID},
			{Key: "added_at", Value: time.Now().UTC()},
		}}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		log.Error("failed to add authorized user", "user_id", userID, "error", err)
		return err
	}
	return nil
}

func (m *MongoClient) RemoveAuthorizedUser(ctx context.Context, userID int64) error {
	if _, err := m.users.DeleteOne(ctx, bson.D{{Key: "user_id", Value: userID}}); err != nil {
		log.Error("failed to remove authorized user", "user_id", userID, "error", err)
		return err
	}
	return nil
}

func (m *MongoClient) IsAuthorizedUser(ctx context.Context, userID int64) (bool, error) {
	count, err := m.users.CountDocuments(ctx, bson.D{{Key: "user_id", Value: userID}}, options.Count().SetLimit(1))
	if err != nil {
		log.Error("failed to check authorized user", "user_id", userID, "error", err)
		return false, err
	}
	return count > 0, nil
}

func (m *MongoClient) GetAuthorizedUsers(ctx context.Context) ([]AuthorizedUser, error) {
	cursor, err := m.users.Find(ctx, bson.D{})
	if err != nil {
		log.Error("failed to get authorized users", "error", err)
		return nil, err
	}
	var users []AuthorizedUser
	if err := cursor.All(ctx, &users); err != nil {
		log.Error("failed to decode authorized users", "error", err)
		return nil, err
	}
	return users, nil
}

func (m *MongoClient) GetSetting(ctx context.Context, userID int64, field SettingField) (string, error) {
	if !field.Valid() {
		return "", fmt.Errorf("%w: %s", ErrUnknownSetting, field)
	}
	settings, err := m.getUserSettings(ctx, userID)
	if err != nil {
		return "", err
	}
	return settings.Get(field), nil
}

func (m *MongoClient) SetSetting(ctx context.Context, userID int64, field SettingField, value string) error {
	if !field.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, field)
	}
	_, err := m.settings.UpdateOne(ctx,
		bson.D{{Key: "user_id", Value: userID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: string(field), Value: value}}}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		log.Error("failed to set user setting", "user_id", userID, "field", field, "error", err)
		return err
	}
	return nil
}

func (m *MongoClient) GetUserSettings(ctx context.Context, userID int64) (*UserSettings, error) {
	settings, err := m.getUserSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := settings.WithDefaults()
	out.UserID = userID
	return out, nil
}

func (m *MongoClient) getUserSettings(ctx context.Context, userID int64) (*UserSettings, error) {
	var settings UserSettings
	err := m.settings.FindOne(ctx, bson.D{{Key: "user_id", Value: userID}}).Decode(&settings)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		log.Error("failed to get user settings", "user_id", userID, "error", err)
		return nil, err
	}
	return &settings, nil
}
