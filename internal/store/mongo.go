package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/irrelevantclub/toolkit-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultMongoDatabase = "irrelevant-toolkit"
	usersCollection      = "users"
	systemLogsCollection = "system_logs"
)

type userDocument struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	Name     string             `bson:"name"`
	Email    string             `bson:"email"`
	Country  string             `bson:"country"`
	UserType string             `bson:"userType"`

	Company            string `bson:"company,omitempty"`
	AutomationNeeds    string `bson:"automationNeeds,omitempty"`
	InterestArea       string `bson:"interestArea,omitempty"`
	ToolsUsed          string `bson:"toolsUsed,omitempty"`
	ProjectDescription string `bson:"projectDescription,omitempty"`

	RegistrationDate time.Time `bson:"registrationDate"`
	IsVerified       bool      `bson:"isVerified"`

	Extra map[string]interface{} `bson:",inline"`
}

type systemLogDocument struct {
	ID        string                 `bson:"_id"`
	Timestamp time.Time              `bson:"timestamp"`
	Level     string                 `bson:"level"`
	Message   string                 `bson:"message"`
	RequestID string                 `bson:"request_id,omitempty"`
	UserID    string                 `bson:"user_id,omitempty"`
	Action    string                 `bson:"action,omitempty"`
	Error     string                 `bson:"error,omitempty"`
	Extra     map[string]interface{} `bson:"extra,omitempty"`
}

// MongoStore keeps registrants as documents in the users collection.
type MongoStore struct {
	client *mongo.Client
	users  *mongo.Collection
	logs   *mongo.Collection
}

// OpenMongo connects, pings and ensures the unique email index.
func OpenMongo(ctx context.Context, uri string) (*MongoStore, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true}).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(mongoDatabaseName(uri))
	s := &MongoStore{
		client: client,
		users:  db.Collection(usersCollection),
		logs:   db.Collection(systemLogsCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	slog.Info("mongo connected", "database", db.Name())
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("failed to create email index: %w", err)
	}

	_, err = s.logs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "timestamp", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create system_logs index: %w", err)
	}
	return nil
}

func (s *MongoStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *MongoStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDocument
	err := s.users.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return doc.toModel(), nil
}

func (s *MongoStore) Insert(ctx context.Context, u *models.User) (string, error) {
	doc := userDocumentFromModel(u)
	res, err := s.users.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrDuplicate
		}
		return "", fmt.Errorf("failed to insert user: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) WriteLogs(ctx context.Context, entries []models.SystemLog) error {
	if len(entries) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		id := e.ID
		if id == "" {
			id = uuid.NewString()
		}
		docs = append(docs, systemLogDocument{
			ID:        id,
			Timestamp: e.Timestamp,
			Level:     e.Level,
			Message:   e.Message,
			RequestID: e.RequestID,
			UserID:    e.UserID,
			Action:    e.Action,
			Error:     e.Error,
			Extra:     e.Extra,
		})
	}
	_, err := s.logs.InsertMany(ctx, docs)
	return err
}

func (s *MongoStore) PruneLogs(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.logs.DeleteMany(ctx, bson.M{"timestamp": bson.M{"$lt": before}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func userDocumentFromModel(u *models.User) userDocument {
	return userDocument{
		Name:               u.Name,
		Email:              u.Email,
		Country:            u.Country,
		UserType:           string(u.UserType),
		Company:            u.Company,
		AutomationNeeds:    u.AutomationNeeds,
		InterestArea:       u.InterestArea,
		ToolsUsed:          u.ToolsUsed,
		ProjectDescription: u.ProjectDescription,
		RegistrationDate:   u.RegistrationDate,
		IsVerified:         u.IsVerified,
		Extra:              copyExtra(u.Extra),
	}
}

func (d *userDocument) toModel() *models.User {
	return &models.User{
		ID:                 d.ID.Hex(),
		Name:               d.Name,
		Email:              d.Email,
		Country:            d.Country,
		UserType:           models.UserType(d.UserType),
		Company:            d.Company,
		AutomationNeeds:    d.AutomationNeeds,
		InterestArea:       d.InterestArea,
		ToolsUsed:          d.ToolsUsed,
		ProjectDescription: d.ProjectDescription,
		RegistrationDate:   d.RegistrationDate.UTC(),
		IsVerified:         d.IsVerified,
		Extra:              copyExtra(d.Extra),
	}
}

// mongoDatabaseName reads the database from the URI path.
func mongoDatabaseName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return defaultMongoDatabase
	}
	name := strings.Trim(u.Path, "/")
	if name == "" {
		return defaultMongoDatabase
	}
	return name
}
