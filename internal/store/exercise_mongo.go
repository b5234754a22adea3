package store

import (
	"context"

	"github.com/fittrack/apiserver/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoExerciseRepository handles persistence for exercises on MongoDB.
type MongoExerciseRepository struct {
	exercises *mongo.Collection
}

func NewMongoExerciseRepository(db *mongo.Database) *MongoExerciseRepository {
	return &MongoExerciseRepository{exercises: db.Collection(exercisesCollection)}
}

func (r *MongoExerciseRepository) Create(ctx context.Context, exercise types.Exercise) (types.Exercise, error) {
	userOID, err := primitive.ObjectIDFromHex(exercise.UserID)
	if err != nil {
		return types.Exercise{}, ErrNotFound
	}

	doc := exerciseDoc{
		ID:          primitive.NewObjectID(),
		UserID:      userOID,
		Description: exercise.Description,
		Duration:    exercise.Duration,
		Date:        exercise.Date,
	}
	if _, err := r.exercises.InsertOne(ctx, doc); err != nil {
		return types.Exercise{}, err
	}
	return doc.toExercise(), nil
}
