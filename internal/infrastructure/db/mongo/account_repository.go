package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/devhub/community-api/internal/core/domain"
)

const accountCollection = "accounts"

// MongoAccountRepository persists the Account aggregate in a single
// collection. Token-conditioned transitions (rotation, logout, reset
// confirmation) are single findAndModify/update calls so concurrent requests
// on the same account resolve on the store's per-document atomicity.
type MongoAccountRepository struct {
	coll *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *MongoAccountRepository {
	return &MongoAccountRepository{coll: db.Collection(accountCollection)}
}

type mongoAccount struct {
	ID                     primitive.ObjectID `bson:"_id,omitempty"`
	Email                  string             `bson:"email"`
	Username               string             `bson:"username"`
	PasswordHash           string             `bson:"password_hash"`
	IsEmailVerified        bool               `bson:"is_email_verified"`
	EmailVerificationCode  string             `bson:"email_verification_code,omitempty"`
	OTPExpiresAt           int64              `bson:"otp_expires_at,omitempty"`
	PasswordResetToken     string             `bson:"password_reset_token,omitempty"`
	PasswordResetExpiresAt int64              `bson:"password_reset_expires_at,omitempty"`
	RefreshToken           string             `bson:"refresh_token,omitempty"`
	OAuthProviderID        string             `bson:"oauth_provider_id,omitempty"`
	OAuthUsername          string             `bson:"oauth_username,omitempty"`
	CreatedAt              int64              `bson:"created_at"`
	UpdatedAt              int64              `bson:"updated_at"`
}

// EnsureIndexes creates the uniqueness constraints the data model relies on.
// Email and username are unique outright; oauth_provider_id is unique only
// when present. Duplicate signups racing past the application-level preflight
// are rejected here.
func (r *MongoAccountRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email"),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_username"),
		},
		{
			Keys:    bson.D{{Key: "oauth_provider_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName("uniq_oauth_provider_id"),
		},
		{
			Keys:    bson.D{{Key: "refresh_token", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("idx_refresh_token"),
		},
		{
			Keys:    bson.D{{Key: "password_reset_token", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("idx_password_reset_token"),
		},
	})
	if err != nil {
		return fmt.Errorf("ensure account indexes: %w", err)
	}
	return nil
}

func (r *MongoAccountRepository) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	doc := toMongoAccount(account)

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, duplicateKeyToDomain(err)
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	created := *account
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		created.ID = oid.Hex()
	}
	return &created, nil
}

// duplicateKeyToDomain maps a unique-index violation back to the sentinel for
// the field that collided, by the index name embedded in the server message.
func duplicateKeyToDomain(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "uniq_username"):
		return domain.ErrUsernameAlreadyExists
	default:
		return domain.ErrEmailAlreadyExists
	}
}

func (r *MongoAccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid}, domain.ErrAccountNotFound)
}

func (r *MongoAccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"email": email}, domain.ErrAccountNotFound)
}

func (r *MongoAccountRepository) FindByEmailOrUsername(ctx context.Context, email, username string) (*domain.Account, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"email": email},
		bson.M{"username": username},
	}}
	return r.findOne(ctx, filter, domain.ErrAccountNotFound)
}

func (r *MongoAccountRepository) FindByOAuthProviderID(ctx context.Context, providerID string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"oauth_provider_id": providerID}, domain.ErrAccountNotFound)
}

func (r *MongoAccountRepository) MarkEmailVerified(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrAccountNotFound
	}

	res, err := r.coll.UpdateByID(ctx, oid, bson.M{
		"$set":   bson.M{"is_email_verified": true, "updated_at": time.Now().UTC().Unix()},
		"$unset": bson.M{"email_verification_code": "", "otp_expires_at": ""},
	})
	if err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *MongoAccountRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrAccountNotFound
	}

	res, err := r.coll.UpdateByID(ctx, oid, bson.M{
		"$set": bson.M{"refresh_token": token, "updated_at": time.Now().UTC().Unix()},
	})
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *MongoAccountRepository) RotateRefreshToken(ctx context.Context, oldToken, newToken string) (*domain.Account, error) {
	var doc mongoAccount
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"refresh_token": oldToken},
		bson.M{"$set": bson.M{"refresh_token": newToken, "updated_at": time.Now().UTC().Unix()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrTokenInvalid
		}
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	return fromMongoAccount(&doc), nil
}

func (r *MongoAccountRepository) ClearRefreshToken(ctx context.Context, token string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"refresh_token": token},
		bson.M{
			"$unset": bson.M{"refresh_token": ""},
			"$set":   bson.M{"updated_at": time.Now().UTC().Unix()},
		},
	)
	if err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrTokenInvalid
	}
	return nil
}

func (r *MongoAccountRepository) SetPasswordResetToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrAccountNotFound
	}

	res, err := r.coll.UpdateByID(ctx, oid, bson.M{
		"$set": bson.M{
			"password_reset_token":      token,
			"password_reset_expires_at": expiresAt.UTC().Unix(),
			"updated_at":                time.Now().UTC().Unix(),
		},
	})
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *MongoAccountRepository) ConfirmPasswordReset(ctx context.Context, token string, now time.Time, newHash string) (*domain.Account, error) {
	var doc mongoAccount
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{
			"password_reset_token":      token,
			"password_reset_expires_at": bson.M{"$gt": now.UTC().Unix()},
		},
		bson.M{
			"$set":   bson.M{"password_hash": newHash, "updated_at": now.UTC().Unix()},
			"$unset": bson.M{"password_reset_token": "", "password_reset_expires_at": ""},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			// Wrong token and expired token are indistinguishable here.
			return nil, domain.ErrPasswordResetExpired
		}
		return nil, fmt.Errorf("confirm password reset: %w", err)
	}
	return fromMongoAccount(&doc), nil
}

func (r *MongoAccountRepository) findOne(ctx context.Context, filter bson.M, notFound error) (*domain.Account, error) {
	var doc mongoAccount
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, notFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return fromMongoAccount(&doc), nil
}

func toMongoAccount(a *domain.Account) mongoAccount {
	return mongoAccount{
		Email:                  a.Email,
		Username:               a.Username,
		PasswordHash:           a.PasswordHash,
		IsEmailVerified:        a.IsEmailVerified,
		EmailVerificationCode:  a.EmailVerificationCode,
		OTPExpiresAt:           timeToUnix(a.OTPExpiresAt),
		PasswordResetToken:     a.PasswordResetToken,
		PasswordResetExpiresAt: timeToUnix(a.PasswordResetExpiresAt),
		RefreshToken:           a.RefreshToken,
		OAuthProviderID:        a.OAuthProviderID,
		OAuthUsername:          a.OAuthUsername,
		CreatedAt:              a.CreatedAt.Unix(),
		UpdatedAt:              a.UpdatedAt.Unix(),
	}
}

func fromMongoAccount(m *mongoAccount) *domain.Account {
	return &domain.Account{
		ID:                     m.ID.Hex(),
		Email:                  m.Email,
		Username:               m.Username,
		PasswordHash:           m.PasswordHash,
		IsEmailVerified:        m.IsEmailVerified,
		EmailVerificationCode:  m.EmailVerificationCode,
		OTPExpiresAt:           unixToTime(m.OTPExpiresAt),
		PasswordResetToken:     m.PasswordResetToken,
		PasswordResetExpiresAt: unixToTime(m.PasswordResetExpiresAt),
		RefreshToken:           m.RefreshToken,
		OAuthProviderID:        m.OAuthProviderID,
		OAuthUsername:          m.OAuthUsername,
		CreatedAt:              unixToTime(m.CreatedAt),
		UpdatedAt:              unixToTime(m.UpdatedAt),
	}
}

func timeToUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().Unix()
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
