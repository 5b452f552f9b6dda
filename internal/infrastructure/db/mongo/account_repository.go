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
)

const collectionAccounts = "users"

// AccountRepository implements ports.AccountRepository using MongoDB.
type AccountRepository struct {
	col *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{col: db.Collection(collectionAccounts)}
}

type roleRefDoc struct {
	ID   primitive.ObjectID `bson:"id,omitempty"`
	Name string             `bson:"name"`
}

type accountDoc struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	FirstName        string             `bson:"first_name"`
	LastName         string             `bson:"last_name"`
	Email            string             `bson:"email"`
	Phone            string             `bson:"phone,omitempty"`
	Password         string             `bson:"password"`
	Role             roleRefDoc         `bson:"role"`
	ReferralCode     string             `bson:"referral_code,omitempty"`
	ReferredBy       string             `bson:"referred_by,omitempty"`
	IsVerified       bool               `bson:"is_verified"`
	VerificationCode *string            `bson:"verification_code"`
	CodeExpiresAt    *time.Time         `bson:"code_expires_at,omitempty"`
	CreatedAt        time.Time          `bson:"created_at"`
}

func toRoleRefDoc(ref domain.RoleRef) roleRefDoc {
	doc := roleRefDoc{Name: ref.Name}
	if oid, ok := objectID(ref.ID); ok {
		doc.ID = oid
	}
	return doc
}

func toAccountDoc(a *domain.Account) accountDoc {
	doc := accountDoc{
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		Email:         a.Email,
		Phone:         a.Phone,
		Password:      a.PasswordHash,
		Role:          toRoleRefDoc(a.Role),
		ReferralCode:  a.ReferralCode,
		ReferredBy:    a.ReferredBy,
		IsVerified:    a.IsVerified,
		CodeExpiresAt: a.CodeExpiresAt,
		CreatedAt:     a.CreatedAt,
	}
	if a.VerificationCode != "" {
		code := a.VerificationCode
		doc.VerificationCode = &code
	}
	return doc
}

func (d accountDoc) toDomain() *domain.Account {
	a := &domain.Account{
		ID:            d.ID.Hex(),
		FirstName:     d.FirstName,
		LastName:      d.LastName,
		Email:         d.Email,
		Phone:         d.Phone,
		PasswordHash:  d.Password,
		Role:          domain.RoleRef{Name: d.Role.Name},
		ReferralCode:  d.ReferralCode,
		ReferredBy:    d.ReferredBy,
		IsVerified:    d.IsVerified,
		CodeExpiresAt: d.CodeExpiresAt,
		CreatedAt:     d.CreatedAt,
	}
	if !d.Role.ID.IsZero() {
		a.Role.ID = d.Role.ID.Hex()
	}
	if d.VerificationCode != nil {
		a.VerificationCode = *d.VerificationCode
	}
	return a
}

func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toAccountDoc(a)
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		switch {
		case duplicateOn(err, "referral_code"):
			return nil, domain.ErrReferralCodeTaken
		case mongo.IsDuplicateKeyError(err):
			return nil, domain.ErrAccountExists
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.toDomain(), nil
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc accountDoc
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if isNoDocuments(err) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *AccountRepository) exists(ctx context.Context, filter bson.M) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count accounts: %w", err)
	}
	return n > 0, nil
}

func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, bson.M{"email": email})
}

func (r *AccountRepository) ExistsByReferralCode(ctx context.Context, code string) (bool, error) {
	return r.exists(ctx, bson.M{"referral_code": code})
}

// ConsumeVerificationCode is a single FindOneAndUpdate so two concurrent
// redemptions of the same code cannot both match.
func (r *AccountRepository) ConsumeVerificationCode(ctx context.Context, email, digest string, now time.Time) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"email":             email,
		"verification_code": digest,
		"$or": bson.A{
			bson.M{"code_expires_at": bson.M{"$exists": false}},
			bson.M{"code_expires_at": nil},
			bson.M{"code_expires_at": bson.M{"$gt": now}},
		},
	}
	update := bson.M{
		"$set":   bson.M{"is_verified": true, "verification_code": nil},
		"$unset": bson.M{"code_expires_at": ""},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var doc accountDoc
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if isNoDocuments(err) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("consume verification code: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *AccountRepository) SetVerificationCode(ctx context.Context, id, digest string, expiresAt *time.Time) error {
	oid, ok := objectID(id)
	if !ok {
		return domain.ErrAccountNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{"verification_code": digest}}
	if expiresAt != nil {
		update["$set"].(bson.M)["code_expires_at"] = *expiresAt
	} else {
		update["$unset"] = bson.M{"code_expires_at": ""}
	}

	res, err := r.col.UpdateByID(ctx, oid, update)
	if err != nil {
		return fmt.Errorf("set verification code: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// roleFilter matches accounts by role id, or by name when the stored
// reference predates ids.
func roleFilter(ref domain.RoleRef) bson.M {
	clauses := bson.A{
		bson.M{"role.id": bson.M{"$exists": false}, "role.name": ref.Name},
	}
	if oid, ok := objectID(ref.ID); ok {
		clauses = append(clauses, bson.M{"role.id": oid})
	}
	return bson.M{"$or": clauses}
}

// CountByRole matches accounts by role id, or by name when the stored
// reference predates ids.
func (r *AccountRepository) CountByRole(ctx context.Context, ref domain.RoleRef) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, roleFilter(ref))
	if err != nil {
		return 0, fmt.Errorf("count accounts by role: %w", err)
	}
	return n, nil
}

// RenameRole rewrites the embedded reference of every account holding from.
// Legacy name-only references are upgraded to carry the id.
func (r *AccountRepository) RenameRole(ctx context.Context, from domain.RoleRef, name string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	next := toRoleRefDoc(domain.RoleRef{ID: from.ID, Name: name})
	res, err := r.col.UpdateMany(ctx, roleFilter(from), bson.M{"$set": bson.M{"role": next}})
	if err != nil {
		return 0, fmt.Errorf("rename account role: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *AccountRepository) UpdateRole(ctx context.Context, id string, ref domain.RoleRef) (*domain.Account, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc accountDoc
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"role": toRoleRefDoc(ref)}}, opts).Decode(&doc)
	if err != nil {
		if isNoDocuments(err) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("update account role: %w", err)
	}
	return doc.toDomain(), nil
}

// List returns one page of accounts, newest first.
func (r *AccountRepository) List(ctx context.Context, page domain.Page) ([]*domain.Account, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	total, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(page.Skip()).
		SetLimit(int64(page.Limit)).
		SetProjection(bson.M{"password": 0, "verification_code": 0})

	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}
	var docs []accountDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode accounts: %w", err)
	}

	out := make([]*domain.Account, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, total, nil
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return domain.ErrAccountNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// EnsureIndexes creates the unique email and referral code indexes.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "referral_code", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		{Keys: bson.D{{Key: "role.id", Value: 1}}},
		{Keys: bson.D{{Key: "role.name", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
