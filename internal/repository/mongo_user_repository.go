package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"taskapi/internal/model"
)

type mongoUserRepository struct {
	users      *mongo.Collection
	tasks      *mongo.Collection
	categories *mongo.Collection
}

// NewMongoUserRepository builds a document-store user repository.
func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{
		users:      db.Collection(usersCollection),
		tasks:      db.Collection(tasksCollection),
		categories: db.Collection(categoriesCollection),
	}
}

func (r *mongoUserRepository) Create(ctx context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	_, err := r.users.InsertOne(ctx, newUserDocument(user))
	return translateMongo(err)
}

func (r *mongoUserRepository) Update(ctx context.Context, user *model.User) error {
	res, err := r.users.ReplaceOne(ctx, bson.M{"_id": user.ID.String()}, newUserDocument(user))
	if err != nil {
		return translateMongo(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *mongoUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *mongoUserRepository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var doc userDocument
	if err := r.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translateMongo(err)
	}
	return doc.toModel(), nil
}

func (r *mongoUserRepository) List(ctx context.Context) ([]model.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.users.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	users := make([]model.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, *d.toModel())
	}
	return users, nil
}

func (r *mongoUserRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.users.UpdateOne(ctx, bson.M{"_id": id.String()}, bson.M{"$set": bson.M{"last_login_at": at}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the user's tasks and categories before the user document.
func (r *mongoUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	owner := bson.M{"user_id": id.String()}
	if _, err := r.tasks.DeleteMany(ctx, owner); err != nil {
		return fmt.Errorf("delete tasks: %w", err)
	}
	if _, err := r.categories.DeleteMany(ctx, owner); err != nil {
		return fmt.Errorf("delete categories: %w", err)
	}
	res, err := r.users.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
