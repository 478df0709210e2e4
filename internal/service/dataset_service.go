package service

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// DatasetService is the dataset-identity provider. Each (tenant, dataset)
// carries a revision counter bumped whenever upstream cleaning mutates the
// data; the identity token folds the revision in, so a changed dataset
// always fingerprints differently.
type DatasetService struct {
	rdb *redis.Client
}

func NewDatasetService(rdb *redis.Client) *DatasetService {
	return &DatasetService{rdb: rdb}
}

// Identity returns the current identity token for a dataset.
func (s *DatasetService) Identity(ctx context.Context, tenantID int64, datasetKey string) (string, error) {
	if datasetKey == "" {
		return "", fmt.Errorf("dataset key is empty")
	}

	rev, err := s.rdb.Get(ctx, revisionKey(tenantID, datasetKey)).Int64()
	if err == redis.Nil {
		rev = 0
	} else if err != nil {
		return "", fmt.Errorf("failed to read dataset revision: %w", err)
	}

	return fmt.Sprintf("%s@r%d", datasetKey, rev), nil
}

// Touch bumps the revision after a data-cleaning pass and returns the new
// identity token.
func (s *DatasetService) Touch(ctx context.Context, tenantID int64, datasetKey string) (string, error) {
	if datasetKey == "" {
		return "", fmt.Errorf("dataset key is empty")
	}

	rev, err := s.rdb.Incr(ctx, revisionKey(tenantID, datasetKey)).Result()
	if err != nil {
		return "", fmt.Errorf("failed to bump dataset revision: %w", err)
	}

	return fmt.Sprintf("%s@r%d", datasetKey, rev), nil
}

func revisionKey(tenantID int64, datasetKey string) string {
	return fmt.Sprintf("dataset:rev:%d:%s", tenantID, datasetKey)
}
