package dto

// ExportRow is one flat line of the results export.
type ExportRow struct {
	SKU            string  `json:"sku"`
	ModelID        string  `json:"model_id"`
	Method         string  `json:"method"`
	DatasetID      string  `json:"dataset_id"`
	Parameters     string  `json:"parameters"` // canonical JSON
	MAPE           float64 `json:"mape"`
	RMSE           float64 `json:"rmse"`
	MAE            float64 `json:"mae"`
	Accuracy       float64 `json:"accuracy"`
	CompositeScore float64 `json:"composite_score"`
	CreatedAt      string  `json:"created_at"`
}
