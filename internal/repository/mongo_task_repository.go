package repository

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"taskapi/internal/model"
)

// Tasks embed their category ids; categories are loaded on read.
type mongoTaskRepository struct {
	tasks      *mongo.Collection
	categories *mongo.Collection
}

// NewMongoTaskRepository builds a document-store task repository.
func NewMongoTaskRepository(db *mongo.Database) TaskRepository {
	return &mongoTaskRepository{
		tasks:      db.Collection(tasksCollection),
		categories: db.Collection(categoriesCollection),
	}
}

func (r *mongoTaskRepository) Create(ctx context.Context, task *model.Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	_, err := r.tasks.InsertOne(ctx, newTaskDocument(task))
	return translateMongo(err)
}

func (r *mongoTaskRepository) Update(ctx context.Context, task *model.Task) error {
	res, err := r.tasks.ReplaceOne(ctx, bson.M{"_id": task.ID.String()}, newTaskDocument(task))
	if err != nil {
		return translateMongo(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoTaskRepository) Delete(ctx context.Context, task *model.Task) error {
	res, err := r.tasks.DeleteOne(ctx, bson.M{"_id": task.ID.String()})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var doc taskDocument
	if err := r.tasks.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		return nil, translateMongo(err)
	}
	tasks, err := r.withCategories(ctx, []taskDocument{doc})
	if err != nil {
		return nil, err
	}
	return &tasks[0], nil
}

func (r *mongoTaskRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.tasks.Find(ctx, bson.M{"user_id": ownerID.String()}, opts)
	if err != nil {
		return nil, err
	}
	var docs []taskDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return r.withCategories(ctx, docs)
}

// withCategories converts documents and attaches their categories with one lookup.
func (r *mongoTaskRepository) withCategories(ctx context.Context, docs []taskDocument) ([]model.Task, error) {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, d := range docs {
		for _, id := range d.CategoryIDs {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}

	byID := make(map[string]model.Category, len(ids))
	if len(ids) > 0 {
		opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
		cur, err := r.categories.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
		if err != nil {
			return nil, err
		}
		var cats []categoryDocument
		if err := cur.All(ctx, &cats); err != nil {
			return nil, err
		}
		for _, c := range cats {
			byID[c.ID] = c.toModel()
		}
	}

	tasks := make([]model.Task, 0, len(docs))
	for _, d := range docs {
		task := d.toModel()
		for _, id := range d.CategoryIDs {
			if c, ok := byID[id]; ok {
				task.Categories = append(task.Categories, c)
			}
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}
