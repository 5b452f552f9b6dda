package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

const collectionActions = "actions"

// ActionRepository implements ports.ActionRepository using MongoDB.
type ActionRepository struct {
	col *mongo.Collection
}

func NewActionRepository(db *mongo.Database) *ActionRepository {
	return &ActionRepository{col: db.Collection(collectionActions)}
}

type actionDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Description string             `bson:"description"`
	Category    string             `bson:"category"`
	IsActive    bool               `bson:"is_active"`
	CreatedAt   time.Time          `bson:"created_at"`
}

func (d actionDoc) toDomain() *domain.Action {
	return &domain.Action{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Category:    domain.Category(d.Category),
		IsActive:    d.IsActive,
		CreatedAt:   d.CreatedAt,
	}
}

func (r *ActionRepository) Create(ctx context.Context, a *domain.Action) (*domain.Action, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := actionDoc{
		Name:        a.Name,
		Description: a.Description,
		Category:    string(a.Category),
		IsActive:    a.IsActive,
		CreatedAt:   a.CreatedAt,
	}
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrActionExists
		}
		return nil, fmt.Errorf("insert action: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.toDomain(), nil
}

func (r *ActionRepository) findOne(ctx context.Context, filter bson.M) (*domain.Action, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc actionDoc
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if isNoDocuments(err) {
			return nil, domain.ErrActionNotFound
		}
		return nil, fmt.Errorf("find action: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ActionRepository) FindByID(ctx context.Context, id string) (*domain.Action, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrActionNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *ActionRepository) FindByName(ctx context.Context, name string) (*domain.Action, error) {
	return r.findOne(ctx, bson.M{"name": name})
}

func (r *ActionRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Action, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find actions: %w", err)
	}
	var docs []actionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode actions: %w", err)
	}
	out := make([]*domain.Action, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *ActionRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Action, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return []*domain.Action{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return r.find(ctx, bson.M{"_id": bson.M{"$in": oids}}, options.Find())
}

func (r *ActionRepository) List(ctx context.Context, filter ports.ActionFilter, page domain.Page) ([]*domain.Action, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	q := bson.M{}
	if filter.Category != "" {
		q["category"] = string(filter.Category)
	}
	if filter.IsActive != nil {
		q["is_active"] = *filter.IsActive
	}

	total, err := r.col.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("count actions: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}}).
		SetSkip(page.Skip()).
		SetLimit(int64(page.Limit))
	actions, err := r.find(ctx, q, opts)
	if err != nil {
		return nil, 0, err
	}
	return actions, total, nil
}

func (r *ActionRepository) Update(ctx context.Context, id string, upd ports.ActionUpdate) (*domain.Action, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrActionNotFound
	}

	set := bson.M{}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Category != nil {
		set["category"] = string(*upd.Category)
	}
	if upd.IsActive != nil {
		set["is_active"] = *upd.IsActive
	}
	if len(set) == 0 {
		return r.FindByID(ctx, id)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc actionDoc
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc); err != nil {
		switch {
		case isNoDocuments(err):
			return nil, domain.ErrActionNotFound
		case mongo.IsDuplicateKeyError(err):
			return nil, domain.ErrActionExists
		}
		return nil, fmt.Errorf("update action: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ActionRepository) Delete(ctx context.Context, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return domain.ErrActionNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete action: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrActionNotFound
	}
	return nil
}

type categoryBucket struct {
	Category string `bson:"_id"`
	Actions  []struct {
		ID          primitive.ObjectID `bson:"_id"`
		Name        string             `bson:"name"`
		Description string             `bson:"description"`
	} `bson:"actions"`
	Count int `bson:"count"`
}

// GroupByCategory buckets active actions by category with one aggregation.
func (r *ActionRepository) GroupByCategory(ctx context.Context) ([]domain.CategoryGroup, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"is_active": true}}},
		{{Key: "$sort", Value: bson.D{{Key: "name", Value: 1}}}},
		{{Key: "$group", Value: bson.M{
			"_id": "$category",
			"actions": bson.M{"$push": bson.M{
				"_id":         "$_id",
				"name":        "$name",
				"description": "$description",
			}},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("group actions: %w", err)
	}
	var buckets []categoryBucket
	if err := cur.All(ctx, &buckets); err != nil {
		return nil, fmt.Errorf("decode action groups: %w", err)
	}

	out := make([]domain.CategoryGroup, 0, len(buckets))
	for _, b := range buckets {
		g := domain.CategoryGroup{
			Category: domain.Category(b.Category),
			Actions:  make([]domain.ActionSummary, 0, len(b.Actions)),
			Count:    b.Count,
		}
		for _, a := range b.Actions {
			g.Actions = append(g.Actions, domain.ActionSummary{ID: a.ID.Hex(), Name: a.Name, Description: a.Description})
		}
		out = append(out, g)
	}
	return out, nil
}

// EnsureIndexes creates the unique name index and the category index.
func (r *ActionRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
