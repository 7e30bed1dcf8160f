package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/khoahotran/wellness-api/internal/domain/user"
	"github.com/khoahotran/wellness-api/pkg/apperror"
)

const usersCollection = "users"

type mongoUserRepo struct {
	users   *mongo.Collection
	nowFunc func() time.Time
}

// MongoUserRepoOption configures a Mongo backed user repository.
type MongoUserRepoOption = func(*mongoUserRepo)

// WithMongoNowFunc overrides the clock used for timestamps. Useful for testing.
func WithMongoNowFunc(nowFunc func() time.Time) MongoUserRepoOption {
	return func(r *mongoUserRepo) {
		r.nowFunc = nowFunc
	}
}

// NewMongoUserRepo makes sure the unique email index exists before returning.
func NewMongoUserRepo(ctx context.Context, db *mongo.Database, opts ...MongoUserRepoOption) (user.Repository, error) {
	r := &mongoUserRepo{
		users:   db.Collection(usersCollection),
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}

	_, err := r.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return nil, apperror.NewInternal("failed to create users email index", err)
	}
	return r, nil
}

type userDoc struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password"`
	ProfilePhoto *string   `bson:"profilePhoto,omitempty"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

func (d *userDoc) toDomain() (*user.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, apperror.NewInternal("stored user has an invalid id", err)
	}
	return &user.User{
		ID:           id,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		ProfilePhoto: d.ProfilePhoto,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}, nil
}

func (r *mongoUserRepo) Create(ctx context.Context, u *user.User) error {
	if u == nil {
		return apperror.NewInternal("nil user passed to create", nil)
	}
	now := r.nowFunc()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	u.Email = user.NormalizeEmail(u.Email)

	doc := &userDoc{
		ID:           u.ID.String(),
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		ProfilePhoto: u.ProfilePhoto,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.NewConflict("user", "email", u.Email)
		}
		return apperror.NewInternal("failed to insert user", err)
	}
	return nil
}

func (r *mongoUserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: user.NormalizeEmail(email)}}, email)
}

func (r *mongoUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id.String()}}, id.String())
}

func (r *mongoUserRepo) findOne(ctx context.Context, filter bson.D, identifier string) (*user.User, error) {
	doc := new(userDoc)
	if err := r.users.FindOne(ctx, filter).Decode(doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NewNotFound("user", identifier)
		}
		return nil, apperror.NewInternal("failed to query user", err)
	}
	return doc.toDomain()
}

func (r *mongoUserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, changes user.ProfileChanges) (*user.User, error) {
	if changes.IsEmpty() {
		return r.FindByID(ctx, id)
	}

	set := bson.D{{Key: "updatedAt", Value: r.nowFunc()}}
	if changes.Name != nil {
		set = append(set, bson.E{Key: "name", Value: *changes.Name})
	}
	if changes.ProfilePhoto != nil {
		set = append(set, bson.E{Key: "profilePhoto", Value: *changes.ProfilePhoto})
	}

	doc := new(userDoc)
	err := r.users.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id.String()}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NewNotFound("user", id.String())
		}
		return nil, apperror.NewInternal("failed to update user profile", err)
	}
	return doc.toDomain()
}

func (r *mongoUserRepo) Count(ctx context.Context) (int64, error) {
	n, err := r.users.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, apperror.NewInternal("failed to count users", err)
	}
	return n, nil
}
