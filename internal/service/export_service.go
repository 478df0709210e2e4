package service

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/skucast/tuning_go_server/internal/model"
	"github.com/skucast/tuning_go_server/internal/model/dto"
	"github.com/skucast/tuning_go_server/internal/pkg/oss"
	"github.com/skucast/tuning_go_server/internal/repository"
)

// ExportService flattens completed optimization results into tabular rows
// for download. OSS upload of snapshots is optional, mirroring how result
// artifacts are stored elsewhere in the stack.
type ExportService struct {
	resultRepo *repository.ResultRepository
	ossClient  *oss.Client
}

func NewExportService(resultRepo *repository.ResultRepository, ossClient *oss.Client) *ExportService {
	return &ExportService{
		resultRepo: resultRepo,
		ossClient:  ossClient,
	}
}

// Rows returns export rows filtered by dataset and SKU. With bestOnly, only
// the highest composite score per (sku, model, method) is kept.
func (s *ExportService) Rows(tenantID int64, datasetID, sku string, bestOnly bool) ([]dto.ExportRow, error) {
	results, err := s.resultRepo.List(tenantID, datasetID, sku)
	if err != nil {
		return nil, err
	}

	if bestOnly {
		results = bestPerCombination(results)
	}

	rows := make([]dto.ExportRow, 0, len(results))
	for _, r := range results {
		params, err := json.Marshal(r.Parameters)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal parameters: %w", err)
		}
		rows = append(rows, dto.ExportRow{
			SKU:            r.SKU,
			ModelID:        r.ModelID,
			Method:         r.Method,
			DatasetID:      r.DatasetID,
			Parameters:     string(params),
			MAPE:           r.Scores["mape"],
			RMSE:           r.Scores["rmse"],
			MAE:            r.Scores["mae"],
			Accuracy:       r.Scores["accuracy"],
			CompositeScore: r.CompositeScore,
			CreatedAt:      r.CreatedAt.Format(time.RFC3339),
		})
	}

	return rows, nil
}

// CSV renders rows as a CSV document with a header line.
func (s *ExportService) CSV(rows []dto.ExportRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"sku", "model_id", "method", "dataset_id", "parameters",
		"mape", "rmse", "mae", "accuracy", "composite_score", "created_at"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, r := range rows {
		record := []string{
			r.SKU,
			r.ModelID,
			r.Method,
			r.DatasetID,
			r.Parameters,
			formatScore(r.MAPE),
			formatScore(r.RMSE),
			formatScore(r.MAE),
			formatScore(r.Accuracy),
			formatScore(r.CompositeScore),
			r.CreatedAt,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Snapshot uploads a CSV export to object storage and returns its URL.
// Returns an empty URL when OSS is not configured.
func (s *ExportService) Snapshot(tenantID int64, data []byte) (string, error) {
	if s.ossClient == nil {
		return "", nil
	}
	return s.ossClient.UploadExportCSV(tenantID, data)
}

// bestPerCombination keeps the highest composite score per
// (sku, model, method). Input is ordered best-first, so the first entry per
// key wins.
func bestPerCombination(results []*model.OptimizationResult) []*model.OptimizationResult {
	seen := make(map[string]struct{})
	best := make([]*model.OptimizationResult, 0, len(results))

	for _, r := range results {
		key := r.SKU + "\x00" + r.ModelID + "\x00" + r.Method
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		best = append(best, r)
	}

	sort.SliceStable(best, func(i, j int) bool {
		if best[i].SKU != best[j].SKU {
			return best[i].SKU < best[j].SKU
		}
		if best[i].ModelID != best[j].ModelID {
			return best[i].ModelID < best[j].ModelID
		}
		return best[i].Method < best[j].Method
	})
	return best
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
