package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/acmecrm/crm-identity/internal/core/domain"
	"github.com/acmecrm/crm-identity/internal/core/ports"
)

const usersCollection = "users"

// UserRepository persists User records. The unique indexes on external_id
// and email are what serialize concurrent creation attempts; there is no
// application-level locking.
type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

type mongoUser struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	ExternalID string             `bson:"external_id"`
	Email      string             `bson:"email"`
	FirstName  string             `bson:"first_name"`
	LastName   string             `bson:"last_name"`
	AvatarURL  string             `bson:"avatar_url,omitempty"`
	Role       string             `bson:"role"`
	IsActive   bool               `bson:"is_active"`
	CreatedAt  int64              `bson:"created_at"`
	UpdatedAt  int64              `bson:"updated_at"`
}

func (mu *mongoUser) toDomain() *domain.User {
	return &domain.User{
		ID:         mu.ID.Hex(),
		ExternalID: mu.ExternalID,
		Email:      mu.Email,
		FirstName:  mu.FirstName,
		LastName:   mu.LastName,
		AvatarURL:  mu.AvatarURL,
		Role:       domain.Role(mu.Role),
		IsActive:   mu.IsActive,
		CreatedAt:  unixToTime(mu.CreatedAt),
		UpdatedAt:  unixToTime(mu.UpdatedAt),
	}
}

// Upsert performs the atomic insert-or-patch keyed by external id. Profile
// fields go in $set; role only when explicitly supplied. is_active, role
// default and created_at live in $setOnInsert so a profile refresh can
// neither resurrect a deactivated user nor touch an existing role.
func (r *UserRepository) Upsert(ctx context.Context, in ports.UpsertUserInput) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC()
	set := bson.M{
		"email":      in.Email,
		"first_name": in.FirstName,
		"last_name":  in.LastName,
		"avatar_url": in.AvatarURL,
		"updated_at": now.Unix(),
	}
	setOnInsert := bson.M{
		"external_id": in.ExternalID,
		"is_active":   true,
		"created_at":  now.Unix(),
	}
	if in.Role != "" {
		set["role"] = string(in.Role)
	} else {
		setOnInsert["role"] = string(domain.DefaultRole)
	}

	filter := bson.M{"external_id": in.ExternalID}
	update := bson.M{"$set": set, "$setOnInsert": setOnInsert}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var mu mongoUser
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&mu)
	if mongo.IsDuplicateKeyError(err) {
		// Two near-simultaneous creation attempts: the unique index on
		// external_id resolved the race; the loser re-runs as a plain
		// patch. A duplicate on the email index instead means the email
		// belongs to a different identity.
		err = r.coll.FindOneAndUpdate(ctx, filter, update,
			options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&mu)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserExists
		}
	}
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return mu.toDomain(), nil
}

func (r *UserRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"external_id": externalID})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	if err := r.coll.FindOne(ctx, filter).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain(), nil
}

// UpdateRole patches only the role field. This is the single write path
// that may alter a role.
func (r *UserRepository) UpdateRole(ctx context.Context, id string, role domain.Role) error {
	return r.patchByID(ctx, id, bson.M{"role": string(role)})
}

// SetActive patches only the active flag.
func (r *UserRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.patchByID(ctx, id, bson.M{"is_active": active})
}

func (r *UserRepository) patchByID(ctx context.Context, id string, fields bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	fields["updated_at"] = time.Now().UTC().Unix()
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("patch user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// DeactivateByExternalID flips is_active for the record carrying the
// external id, reporting found=false when there is none.
func (r *UserRepository) DeactivateByExternalID(ctx context.Context, externalID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"external_id": externalID},
		bson.M{"$set": bson.M{"is_active": false, "updated_at": time.Now().UTC().Unix()}})
	if err != nil {
		return false, fmt.Errorf("deactivate user: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (r *UserRepository) List(ctx context.Context, filter ports.ListUsersFilter) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := bson.M{}
	if filter.Role != "" {
		query["role"] = string(filter.Role)
	}
	if filter.ActiveOnly {
		query["is_active"] = true
	}
	if filter.Search != "" {
		regex := bson.M{"$regex": filter.Search, "$options": "i"}
		query["$or"] = bson.A{
			bson.M{"first_name": regex},
			bson.M{"last_name": regex},
			bson.M{"email": regex},
		}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	cur, err := r.coll.Find(ctx, query, options.Find().SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)

	var users []*domain.User
	for cur.Next(ctx) {
		var mu mongoUser
		if err := cur.Decode(&mu); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		users = append(users, mu.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// EnsureIndexes creates the indexes the sync path relies on. The unique
// external_id and email indexes are load-bearing for race resolution, not
// just query speed.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "external_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "role", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}
