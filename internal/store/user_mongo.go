package store

import (
	"context"
	"errors"
	"time"

	"github.com/fittrack/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection     = "users"
	exercisesCollection = "exercises"
)

type userDoc struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	Username    string               `bson:"username"`
	ExerciseIDs []primitive.ObjectID `bson:"loggedExercises"`
}

func (d userDoc) toUser() types.User {
	ids := make([]string, 0, len(d.ExerciseIDs))
	for _, oid := range d.ExerciseIDs {
		ids = append(ids, oid.Hex())
	}
	return types.User{
		ID:          d.ID.Hex(),
		Username:    d.Username,
		ExerciseIDs: ids,
	}
}

// MongoUserRepository handles persistence for users on MongoDB.
type MongoUserRepository struct {
	users     *mongo.Collection
	exercises *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{
		users:     db.Collection(usersCollection),
		exercises: db.Collection(exercisesCollection),
	}
}

// EnsureIndexes creates the unique username index. This constraint is
// the backstop against the check-then-insert registration race.
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return types.User{}, ErrNotFound
	}

	var doc userDoc
	if err := r.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return doc.toUser(), nil
}

func (r *MongoUserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	var doc userDoc
	if err := r.users.FindOne(ctx, bson.M{"username": username}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return doc.toUser(), nil
}

func (r *MongoUserRepository) List(ctx context.Context) ([]types.User, error) {
	cursor, err := r.users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "username", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := make([]types.User, 0)
	for cursor.Next(ctx) {
		var doc userDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		users = append(users, doc.toUser())
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *MongoUserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	doc := userDoc{
		ID:          primitive.NewObjectID(),
		Username:    user.Username,
		ExerciseIDs: []primitive.ObjectID{},
	}
	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return types.User{}, ErrDuplicate
		}
		return types.User{}, err
	}
	return doc.toUser(), nil
}

func (r *MongoUserRepository) AppendExercise(ctx context.Context, userID, exerciseID string) error {
	userOID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return ErrNotFound
	}
	exerciseOID, err := primitive.ObjectIDFromHex(exerciseID)
	if err != nil {
		return ErrNotFound
	}

	result, err := r.users.UpdateOne(ctx,
		bson.M{"_id": userOID},
		bson.M{"$push": bson.M{"loggedExercises": exerciseOID}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// GetWithExercises fetches a user and resolves its exercise references
// according to the filter. The references preserve log order, so
// resolved exercises are reordered to match them after the query.
func (r *MongoUserRepository) GetWithExercises(ctx context.Context, id string, filter types.LogFilter) (types.User, []types.Exercise, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return types.User{}, nil, ErrNotFound
	}

	var doc userDoc
	if err := r.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.User{}, nil, ErrNotFound
		}
		return types.User{}, nil, err
	}

	refs := doc.ExerciseIDs
	if filter.From == nil && filter.Limit > 0 && filter.Limit < len(refs) {
		refs = refs[:filter.Limit]
	}
	if len(refs) == 0 {
		return doc.toUser(), []types.Exercise{}, nil
	}

	match := bson.M{"_id": bson.M{"$in": refs}}
	if filter.From != nil {
		dateRange := bson.M{"$gte": *filter.From}
		if filter.To != nil {
			dateRange["$lte"] = *filter.To
		}
		match["date"] = dateRange
	}

	cursor, err := r.exercises.Find(ctx, match)
	if err != nil {
		return types.User{}, nil, err
	}
	defer cursor.Close(ctx)

	byID := make(map[primitive.ObjectID]exerciseDoc, len(refs))
	for cursor.Next(ctx) {
		var ex exerciseDoc
		if err := cursor.Decode(&ex); err != nil {
			return types.User{}, nil, err
		}
		byID[ex.ID] = ex
	}
	if err := cursor.Err(); err != nil {
		return types.User{}, nil, err
	}

	exercises := make([]types.Exercise, 0, len(byID))
	for _, ref := range refs {
		if ex, ok := byID[ref]; ok {
			exercises = append(exercises, ex.toExercise())
		}
	}
	return doc.toUser(), exercises, nil
}

type exerciseDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      primitive.ObjectID `bson:"userid"`
	Description string             `bson:"description"`
	Duration    int                `bson:"duration"`
	Date        time.Time          `bson:"date"`
}

func (d exerciseDoc) toExercise() types.Exercise {
	return types.Exercise{
		ID:          d.ID.Hex(),
		UserID:      d.UserID.Hex(),
		Description: d.Description,
		Duration:    d.Duration,
		Date:        d.Date,
	}
}
