package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/classifier"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/placeholder"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/repositories"
)

// CreateDatasetRequest for POST /api/datasets
type CreateDatasetRequest struct {
	Name      string           `json:"name"`
	KeyColumn string           `json:"key_column"`
	KeyEntity string           `json:"key_entity,omitempty"`
	KeyField  string           `json:"key_field,omitempty"`
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
}

// DatasetListResponse for GET /api/datasets
type DatasetListResponse struct {
	Datasets []*models.Dataset `json:"datasets"`
	Total    int               `json:"total"`
}

// DatasetHandler registers flat lookup tables used by the dataset tiers.
type DatasetHandler struct {
	datasets repositories.DatasetRepository
	registry *classifier.Registry
	logger   *zap.Logger
}

// NewDatasetHandler creates a new dataset handler.
func NewDatasetHandler(datasets repositories.DatasetRepository, registry *classifier.Registry, logger *zap.Logger) *DatasetHandler {
	return &DatasetHandler{datasets: datasets, registry: registry, logger: logger}
}

// RegisterRoutes registers the dataset handler's routes on the given mux.
func (h *DatasetHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/datasets", h.Create)
	mux.HandleFunc("GET /api/datasets", h.List)
}

// Create handles POST /api/datasets
func (h *DatasetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateDatasetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", h.logger)
		return
	}

	ds := &models.Dataset{
		Name:      strings.TrimSpace(req.Name),
		KeyColumn: req.KeyColumn,
		KeyEntity: req.KeyEntity,
		KeyField:  req.KeyField,
		Columns:   req.Columns,
	}
	rows, err := h.validate(ds, req.Rows)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_dataset", err.Error(), h.logger)
		return
	}

	if err := h.datasets.Create(r.Context(), ds); err != nil {
		h.logger.Error("Failed to create dataset", zap.String("name", ds.Name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "create_dataset_failed", "Failed to create dataset", h.logger)
		return
	}
	if err := h.datasets.PutRows(r.Context(), ds.ID, rows); err != nil {
		h.logger.Error("Failed to store dataset rows", zap.String("dataset_id", ds.ID.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "create_dataset_failed", "Failed to store dataset rows", h.logger)
		return
	}

	h.logger.Info("Dataset registered",
		zap.String("dataset_id", ds.ID.String()),
		zap.String("name", ds.Name),
		zap.Int("rows", len(rows)))

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: ds}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/datasets
func (h *DatasetHandler) List(w http.ResponseWriter, r *http.Request) {
	datasets, err := h.datasets.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list datasets", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list_datasets_failed", "Failed to list datasets", h.logger)
		return
	}
	if datasets == nil {
		datasets = []*models.Dataset{}
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: DatasetListResponse{Datasets: datasets, Total: len(datasets)}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// validate checks the dataset definition and keys rows by their key column.
func (h *DatasetHandler) validate(ds *models.Dataset, rows []map[string]any) (map[string]map[string]any, error) {
	if ds.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if !ds.HasColumn(ds.KeyColumn) {
		return nil, fmt.Errorf("key_column %q is not one of the columns", ds.KeyColumn)
	}
	if (ds.KeyEntity == "") != (ds.KeyField == "") {
		return nil, fmt.Errorf("key_entity and key_field must be set together")
	}
	if ds.KeyEntity != "" && !h.registry.HasField(ds.KeyEntity, ds.KeyField) {
		return nil, fmt.Errorf("%s.%s is not a known entity field", ds.KeyEntity, ds.KeyField)
	}

	keyed := make(map[string]map[string]any, len(rows))
	for i, row := range rows {
		key := strings.TrimSpace(placeholder.ToText(row[ds.KeyColumn]))
		if key == "" {
			return nil, fmt.Errorf("row %d has no value in key column %q", i, ds.KeyColumn)
		}
		if _, dup := keyed[key]; dup {
			return nil, fmt.Errorf("row %d repeats key %q", i, key)
		}
		keyed[key] = row
	}
	return keyed, nil
}
