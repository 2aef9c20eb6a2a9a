package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/classifier"
)

func newDatasetMux(t *testing.T, datasets *mockDatasetRepository) *http.ServeMux {
	t.Helper()
	registry, err := classifier.NewRegistry(classifier.DefaultEntityTypes())
	require.NoError(t, err)
	mux := http.NewServeMux()
	NewDatasetHandler(datasets, registry, zap.NewNop()).RegisterRoutes(mux)
	return mux
}

func TestDatasetHandler_Create(t *testing.T) {
	datasets := newMockDatasetRepository()
	mux := newDatasetMux(t, datasets)

	body := `{
		"name": "vessel_particulars",
		"key_column": "imo",
		"key_entity": "vessel",
		"key_field": "imo_number",
		"columns": ["imo", "ice_class"],
		"rows": [{"imo": 9321483, "ice_class": "1A"}, {"imo": "9876543", "ice_class": "1C"}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/datasets", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, datasets.datasets, 1)
	rows := datasets.rows[datasets.datasets[0].ID]
	assert.Contains(t, rows, "9321483")
	assert.Contains(t, rows, "9876543")

	req = httptest.NewRequest(http.MethodGet, "/api/datasets", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)
}

func TestDatasetHandler_CreateValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"key_column":"k","columns":["k"]}`},
		{"key column not declared", `{"name":"d","key_column":"k","columns":["a"]}`},
		{"half a join", `{"name":"d","key_column":"k","columns":["k"],"key_entity":"vessel"}`},
		{"unknown join field", `{"name":"d","key_column":"k","columns":["k"],"key_entity":"vessel","key_field":"hull"}`},
		{"row without key", `{"name":"d","key_column":"k","columns":["k","v"],"rows":[{"v":1}]}`},
		{"duplicate key", `{"name":"d","key_column":"k","columns":["k"],"rows":[{"k":"a"},{"k":"a"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			datasets := newMockDatasetRepository()
			mux := newDatasetMux(t, datasets)

			req := httptest.NewRequest(http.MethodPost, "/api/datasets", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, datasets.datasets)
		})
	}
}
