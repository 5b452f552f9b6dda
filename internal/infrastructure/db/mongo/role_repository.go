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

const collectionRoles = "roles"

// RoleRepository implements ports.RoleRepository using MongoDB.
type RoleRepository struct {
	col *mongo.Collection
}

func NewRoleRepository(db *mongo.Database) *RoleRepository {
	return &RoleRepository{col: db.Collection(collectionRoles)}
}

type roleDoc struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	Actions     []primitive.ObjectID `bson:"actions"`
	IsActive    bool                 `bson:"is_active"`
	CreatedAt   time.Time            `bson:"created_at"`
}

func (d roleDoc) toDomain() *domain.Role {
	return &domain.Role{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		ActionIDs:   hexIDs(d.Actions),
		IsActive:    d.IsActive,
		CreatedAt:   d.CreatedAt,
	}
}

func (r *RoleRepository) Create(ctx context.Context, role *domain.Role) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := roleDoc{
		Name:        role.Name,
		Description: role.Description,
		Actions:     objectIDs(role.ActionIDs),
		IsActive:    role.IsActive,
		CreatedAt:   role.CreatedAt,
	}
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrRoleExists
		}
		return nil, fmt.Errorf("insert role: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.toDomain(), nil
}

func (r *RoleRepository) findOne(ctx context.Context, filter bson.M) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc roleDoc
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if isNoDocuments(err) {
			return nil, domain.ErrRoleNotFound
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *RoleRepository) FindByID(ctx context.Context, id string) (*domain.Role, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrRoleNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *RoleRepository) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	return r.findOne(ctx, bson.M{"name": name})
}

func (r *RoleRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Role, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find roles: %w", err)
	}
	var docs []roleDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode roles: %w", err)
	}
	out := make([]*domain.Role, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *RoleRepository) FindByAction(ctx context.Context, actionID string) ([]*domain.Role, error) {
	oid, ok := objectID(actionID)
	if !ok {
		return []*domain.Role{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return r.find(ctx, bson.M{"actions": oid}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

func (r *RoleRepository) List(ctx context.Context, filter ports.RoleFilter, page domain.Page) ([]*domain.Role, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	q := bson.M{}
	if filter.IsActive != nil {
		q["is_active"] = *filter.IsActive
	}

	total, err := r.col.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("count roles: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(page.Skip()).
		SetLimit(int64(page.Limit))
	roles, err := r.find(ctx, q, opts)
	if err != nil {
		return nil, 0, err
	}
	return roles, total, nil
}

func (r *RoleRepository) Update(ctx context.Context, id string, upd ports.RoleUpdate) (*domain.Role, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrRoleNotFound
	}

	set := bson.M{}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
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
	var doc roleDoc
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc); err != nil {
		switch {
		case isNoDocuments(err):
			return nil, domain.ErrRoleNotFound
		case mongo.IsDuplicateKeyError(err):
			return nil, domain.ErrRoleExists
		}
		return nil, fmt.Errorf("update role: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return domain.ErrRoleNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrRoleNotFound
	}
	return nil
}

// AddAction uses a guarded $addToSet so the membership check and the write
// are one atomic operation.
func (r *RoleRepository) AddAction(ctx context.Context, roleID, actionID string) error {
	rid, ok := objectID(roleID)
	if !ok {
		return domain.ErrRoleNotFound
	}
	aid, ok := objectID(actionID)
	if !ok {
		return domain.ErrActionNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": rid, "actions": bson.M{"$ne": aid}},
		bson.M{"$addToSet": bson.M{"actions": aid}},
	)
	if err != nil {
		return fmt.Errorf("add action to role: %w", err)
	}
	if res.MatchedCount == 0 {
		return r.missOrConflict(ctx, rid, domain.ErrActionAlreadyInRole)
	}
	return nil
}

func (r *RoleRepository) RemoveAction(ctx context.Context, roleID, actionID string) error {
	rid, ok := objectID(roleID)
	if !ok {
		return domain.ErrRoleNotFound
	}
	aid, ok := objectID(actionID)
	if !ok {
		return domain.ErrActionNotInRole
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": rid, "actions": aid},
		bson.M{"$pull": bson.M{"actions": aid}},
	)
	if err != nil {
		return fmt.Errorf("remove action from role: %w", err)
	}
	if res.MatchedCount == 0 {
		return r.missOrConflict(ctx, rid, domain.ErrActionNotInRole)
	}
	return nil
}

// missOrConflict tells a missing role apart from a failed membership guard.
func (r *RoleRepository) missOrConflict(ctx context.Context, rid primitive.ObjectID, guard error) error {
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": rid}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("count roles: %w", err)
	}
	if n == 0 {
		return domain.ErrRoleNotFound
	}
	return guard
}

func (r *RoleRepository) PullActionFromAll(ctx context.Context, actionID string) (int64, error) {
	aid, ok := objectID(actionID)
	if !ok {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateMany(ctx, bson.M{"actions": aid}, bson.M{"$pull": bson.M{"actions": aid}})
	if err != nil {
		return 0, fmt.Errorf("pull action from roles: %w", err)
	}
	return res.ModifiedCount, nil
}

// EnsureIndexes creates the unique name index and the membership index.
func (r *RoleRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "actions", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
