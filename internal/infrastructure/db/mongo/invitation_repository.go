package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/acmecrm/crm-identity/internal/core/domain"
)

const invitationsCollection = "invitations"

type InvitationRepository struct {
	coll *mongo.Collection
}

func NewInvitationRepository(db *mongo.Database) *InvitationRepository {
	return &InvitationRepository{coll: db.Collection(invitationsCollection)}
}

type mongoInvitation struct {
	ID        string `bson:"_id"`
	Email     string `bson:"email"`
	Role      string `bson:"role"`
	Token     string `bson:"token"`
	InvitedBy string `bson:"invited_by"`
	Status    string `bson:"status"`
	CreatedAt int64  `bson:"created_at"`
	ExpiresAt int64  `bson:"expires_at"`
}

func (mi *mongoInvitation) toDomain() *domain.Invitation {
	return &domain.Invitation{
		ID:        mi.ID,
		Email:     mi.Email,
		Role:      domain.Role(mi.Role),
		Token:     mi.Token,
		InvitedBy: mi.InvitedBy,
		Status:    domain.InvitationStatus(mi.Status),
		CreatedAt: unixToTime(mi.CreatedAt),
		ExpiresAt: unixToTime(mi.ExpiresAt),
	}
}

func (r *InvitationRepository) Insert(ctx context.Context, inv *domain.Invitation) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoInvitation{
		ID:        inv.ID,
		Email:     inv.Email,
		Role:      string(inv.Role),
		Token:     inv.Token,
		InvitedBy: inv.InvitedBy,
		Status:    string(inv.Status),
		CreatedAt: inv.CreatedAt.Unix(),
		ExpiresAt: inv.ExpiresAt.Unix(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert invitation: %w", err)
	}
	return nil
}

func (r *InvitationRepository) FindByID(ctx context.Context, id string) (*domain.Invitation, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *InvitationRepository) FindPendingByEmail(ctx context.Context, email string) (*domain.Invitation, error) {
	return r.findOne(ctx, bson.M{"email": email, "status": string(domain.InvitationPending)})
}

func (r *InvitationRepository) findOne(ctx context.Context, filter bson.M) (*domain.Invitation, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mi mongoInvitation
	if err := r.coll.FindOne(ctx, filter).Decode(&mi); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("find invitation: %w", err)
	}
	return mi.toDomain(), nil
}

func (r *InvitationRepository) ListByStatus(ctx context.Context, status domain.InvitationStatus) ([]*domain.Invitation, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.M{"status": string(status)},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer cur.Close(ctx)

	var invs []*domain.Invitation
	for cur.Next(ctx) {
		var mi mongoInvitation
		if err := cur.Decode(&mi); err != nil {
			return nil, fmt.Errorf("decode invitation: %w", err)
		}
		invs = append(invs, mi.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return invs, nil
}

func (r *InvitationRepository) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"expires_at": expiresAt.Unix()}})
	if err != nil {
		return fmt.Errorf("update invitation expiry: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrInvitationNotFound
	}
	return nil
}

func (r *InvitationRepository) MarkAccepted(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": string(domain.InvitationAccepted)}})
	if err != nil {
		return fmt.Errorf("mark invitation accepted: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrInvitationNotFound
	}
	return nil
}

func (r *InvitationRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrInvitationNotFound
	}
	return nil
}

// EnsureIndexes creates the email and status lookup indexes.
func (r *InvitationRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}
