package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"taskapi/internal/model"
)

// Collection names used by the document store.
const (
	usersCollection      = "users"
	tasksCollection      = "tasks"
	categoriesCollection = "categories"
)

type userDocument struct {
	ID           string     `bson:"_id"`
	FirstName    *string    `bson:"first_name,omitempty"`
	LastName     string     `bson:"last_name"`
	Email        string     `bson:"email"`
	PasswordHash string     `bson:"password_hash"`
	CreatedAt    time.Time  `bson:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
	LastLoginAt  *time.Time `bson:"last_login_at,omitempty"`
}

type taskDocument struct {
	ID          string     `bson:"_id"`
	UserID      string     `bson:"user_id"`
	Name        string     `bson:"name"`
	Description *string    `bson:"description,omitempty"`
	DueDate     *time.Time `bson:"due_date,omitempty"`
	Status      string     `bson:"status"`
	CategoryIDs []string   `bson:"category_ids"`
	CreatedAt   time.Time  `bson:"created_at"`
	UpdatedAt   *time.Time `bson:"updated_at,omitempty"`
}

type categoryDocument struct {
	ID        string     `bson:"_id"`
	UserID    string     `bson:"user_id"`
	Name      string     `bson:"name"`
	Color     *string    `bson:"color,omitempty"`
	CreatedAt time.Time  `bson:"created_at"`
	UpdatedAt *time.Time `bson:"updated_at,omitempty"`
}

// EnsureMongoIndexes creates the unique and lookup indexes the repositories rely on.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		categoriesCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		tasksCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "category_ids", Value: 1}}},
		},
	}
	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}
	return nil
}

// translateMongo maps driver errors onto the repository sentinels.
func translateMongo(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return errors.Join(ErrDuplicate, err)
	default:
		return err
	}
}

func parseID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func newUserDocument(u *model.User) userDocument {
	return userDocument{
		ID:           u.ID.String(),
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
		LastLoginAt:  u.LastLoginAt,
	}
}

func (d userDocument) toModel() *model.User {
	return &model.User{
		ID:           parseID(d.ID),
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		LastLoginAt:  d.LastLoginAt,
	}
}

func newTaskDocument(t *model.Task) taskDocument {
	ids := make([]string, 0, len(t.Categories))
	for _, c := range t.Categories {
		ids = append(ids, c.ID.String())
	}
	return taskDocument{
		ID:          t.ID.String(),
		UserID:      t.UserID.String(),
		Name:        t.Name,
		Description: t.Description,
		DueDate:     t.DueDate,
		Status:      string(t.Status),
		CategoryIDs: ids,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (d taskDocument) toModel() model.Task {
	return model.Task{
		ID:          parseID(d.ID),
		UserID:      parseID(d.UserID),
		Name:        d.Name,
		Description: d.Description,
		DueDate:     d.DueDate,
		Status:      model.TaskStatus(d.Status),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		Categories:  []model.Category{},
	}
}

func newCategoryDocument(c *model.Category) categoryDocument {
	return categoryDocument{
		ID:        c.ID.String(),
		UserID:    c.UserID.String(),
		Name:      c.Name,
		Color:     c.Color,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (d categoryDocument) toModel() model.Category {
	return model.Category{
		ID:        parseID(d.ID),
		UserID:    parseID(d.UserID),
		Name:      d.Name,
		Color:     d.Color,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
