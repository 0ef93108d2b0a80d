// Package dto defines the request and response shapes of the HTTP interface
// layer, including the batch envelope used by warehouse service functions.
package dto

import (
	"fmt"
)

// PredictRequest is the native single-request payload for POST /api/v1/predict.
// The XML payloads are opaque strings here; extraction gives malformed or
// empty documents default feature values rather than rejecting them.
type PredictRequest struct {
	PolicyNumber string `json:"policy_number" binding:"required"`
	MIBXML       string `json:"mib_xml"`
	RXXML        string `json:"rx_xml"`
}

// PredictResponse is the scoring outcome returned to the caller.
type PredictResponse struct {
	PolicyNumber string  `json:"policy_number"`
	RiskScore    float64 `json:"risk_score"`
	RiskLevel    string  `json:"risk_level"`
	ModelVersion string  `json:"model_version"`
	InferenceMS  float64 `json:"inference_ms"`
	FeatureCount int     `json:"feature_count"`
}

// ServiceFunctionRequest is the batch envelope a warehouse external function
// sends: {"data": [[row_index, policy_number, mib_xml, rx_xml], ...]}.
type ServiceFunctionRequest struct {
	Data [][]interface{} `json:"data" binding:"required"`
}

// ServiceFunctionResponse mirrors the envelope on the way out:
// {"data": [[row_index, result_object], ...]}.
type ServiceFunctionResponse struct {
	Data [][]interface{} `json:"data"`
}

// ServiceFunctionRow is one decoded row of a batch envelope.
type ServiceFunctionRow struct {
	Index        int
	PolicyNumber string
	MIBXML       string
	RXXML        string
}

// Rows decodes the envelope's untyped rows. A row must carry the row index
// followed by three string columns; anything else is a malformed envelope,
// not a malformed document.
func (r *ServiceFunctionRequest) Rows() ([]ServiceFunctionRow, error) {
	rows := make([]ServiceFunctionRow, 0, len(r.Data))
	for i, raw := range r.Data {
		if len(raw) < 4 {
			return nil, fmt.Errorf("row %d: expected 4 columns, got %d", i, len(raw))
		}
		idx, ok := raw[0].(float64)
		if !ok {
			return nil, fmt.Errorf("row %d: first column must be the row index", i)
		}
		policy, ok := raw[1].(string)
		if !ok {
			return nil, fmt.Errorf("row %d: policy number must be a string", i)
		}
		mib, _ := raw[2].(string)
		rx, _ := raw[3].(string)
		rows = append(rows, ServiceFunctionRow{
			Index:        int(idx),
			PolicyNumber: policy,
			MIBXML:       mib,
			RXXML:        rx,
		})
	}
	return rows, nil
}
