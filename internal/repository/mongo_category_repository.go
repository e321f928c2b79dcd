package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"taskapi/internal/model"
)

type mongoCategoryRepository struct {
	categories *mongo.Collection
	tasks      *mongo.Collection
}

// NewMongoCategoryRepository builds a document-store category repository.
func NewMongoCategoryRepository(db *mongo.Database) CategoryRepository {
	return &mongoCategoryRepository{
		categories: db.Collection(categoriesCollection),
		tasks:      db.Collection(tasksCollection),
	}
}

func (r *mongoCategoryRepository) Create(ctx context.Context, category *model.Category) error {
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	_, err := r.categories.InsertOne(ctx, newCategoryDocument(category))
	return translateMongo(err)
}

func (r *mongoCategoryRepository) Update(ctx context.Context, category *model.Category) error {
	res, err := r.categories.ReplaceOne(ctx, bson.M{"_id": category.ID.String()}, newCategoryDocument(category))
	if err != nil {
		return translateMongo(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete pulls the category id out of every task before removing it.
func (r *mongoCategoryRepository) Delete(ctx context.Context, category *model.Category) error {
	id := category.ID.String()
	if _, err := r.tasks.UpdateMany(ctx, bson.M{"category_ids": id}, bson.M{"$pull": bson.M{"category_ids": id}}); err != nil {
		return fmt.Errorf("detach category: %w", err)
	}
	res, err := r.categories.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	var doc categoryDocument
	if err := r.categories.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		return nil, translateMongo(err)
	}
	categories, err := r.withTasks(ctx, []categoryDocument{doc})
	if err != nil {
		return nil, err
	}
	return &categories[0], nil
}

func (r *mongoCategoryRepository) FindByOwnerAndName(ctx context.Context, ownerID uuid.UUID, name string) (*model.Category, error) {
	var doc categoryDocument
	err := r.categories.FindOne(ctx, bson.M{"user_id": ownerID.String(), "name": name}).Decode(&doc)
	if err != nil {
		return nil, translateMongo(err)
	}
	category := doc.toModel()
	return &category, nil
}

func (r *mongoCategoryRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Category, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cur, err := r.categories.Find(ctx, bson.M{"user_id": ownerID.String()}, opts)
	if err != nil {
		return nil, err
	}
	var docs []categoryDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return r.withTasks(ctx, docs)
}

// withTasks converts documents and attaches the tasks that reference them.
func (r *mongoCategoryRepository) withTasks(ctx context.Context, docs []categoryDocument) ([]model.Category, error) {
	categories := make([]model.Category, 0, len(docs))
	if len(docs) == 0 {
		return categories, nil
	}

	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.tasks.Find(ctx, bson.M{"category_ids": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	var tasks []taskDocument
	if err := cur.All(ctx, &tasks); err != nil {
		return nil, err
	}

	byCategory := make(map[string][]model.Task, len(docs))
	for _, t := range tasks {
		for _, cid := range t.CategoryIDs {
			byCategory[cid] = append(byCategory[cid], t.toModel())
		}
	}
	for _, d := range docs {
		category := d.toModel()
		category.Tasks = byCategory[d.ID]
		categories = append(categories, category)
	}
	return categories, nil
}
