package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fittrack/apiserver/internal/storage"
	"github.com/fittrack/apiserver/types"
)

const exportContentType = "application/json"

// ExportService writes full log snapshots to object storage.
type ExportService struct {
	exercises *ExerciseService
	storage   *storage.Storage
	now       func() time.Time
}

func NewExportService(exercises *ExerciseService, store *storage.Storage) *ExportService {
	return &ExportService{
		exercises: exercises,
		storage:   store,
		now:       time.Now,
	}
}

// Export composes the user's full unfiltered log, serializes it, and
// uploads it under logs/<userID>/<unix-nano>.json.
func (s *ExportService) Export(ctx context.Context, userID string) (types.ExportResult, error) {
	view, err := s.exercises.Logs(ctx, userID, nil, nil, 0)
	if err != nil {
		return types.ExportResult{}, err
	}

	payload, err := json.Marshal(view)
	if err != nil {
		return types.ExportResult{}, err
	}

	key := fmt.Sprintf("logs/%s/%d.json", userID, s.now().UnixNano())
	reader := bytes.NewReader(payload)
	if err := s.storage.Put(ctx, key, reader, int64(len(payload)), exportContentType); err != nil {
		return types.ExportResult{}, err
	}

	return types.ExportResult{
		Bucket: s.storage.Bucket(),
		Key:    key,
		Count:  view.Count,
	}, nil
}
