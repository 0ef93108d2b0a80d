// Package handlers contains the gin HTTP handlers for the riskd API.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/underwritex/riskd/internal/application/dto"
	"github.com/underwritex/riskd/internal/application/service"
	"github.com/underwritex/riskd/pkg/errors"
	"github.com/underwritex/riskd/pkg/logger"
)

// maxBodyBytes bounds request bodies on the dual-format endpoint; documents
// are short XML fragments, never megabytes.
const maxBodyBytes = 4 << 20

// PredictHandler serves the scoring endpoints: the native JSON API and the
// warehouse service-function envelope.
type PredictHandler struct {
	predictService *service.PredictAppService
	lookupService  *service.LookupAppService
	log            logger.Logger
}

// NewPredictHandler creates a PredictHandler.
func NewPredictHandler(
	predictService *service.PredictAppService,
	lookupService *service.LookupAppService,
	log logger.Logger,
) *PredictHandler {
	return &PredictHandler{
		predictService: predictService,
		lookupService:  lookupService,
		log:            log.WithComponent("predict_handler"),
	}
}

// Predict handles POST /api/v1/predict with the native single-request shape.
func (h *PredictHandler) Predict(c *gin.Context) {
	var req dto.PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest.WithError(err))
		return
	}

	resp, err := h.predictService.Predict(c.Request.Context(), req)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, resp)
}

// PredictEnvelope handles POST /predict. The warehouse platform sends the
// batch envelope {"data": [[row_index, policy_number, mib_xml, rx_xml], ...]}
// and receives {"data": [[row_index, result], ...]} with row order preserved;
// a body without a "data" key is treated as the native single-request shape.
func (h *PredictHandler) PredictEnvelope(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		dto.SendError(c, errors.ErrInvalidRequest.WithError(err))
		return
	}

	var probe struct {
		Data *json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest.WithError(err))
		return
	}

	if probe.Data == nil {
		var req dto.PredictRequest
		if err := json.Unmarshal(body, &req); err != nil {
			dto.SendError(c, errors.ErrInvalidRequest.WithError(err))
			return
		}
		resp, err := h.predictService.Predict(c.Request.Context(), req)
		if err != nil {
			dto.SendError(c, err)
			return
		}
		dto.SendSuccess(c, http.StatusOK, resp)
		return
	}

	var req dto.ServiceFunctionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest.WithError(err))
		return
	}

	rows, err := req.Rows()
	if err != nil {
		dto.SendError(c, errors.ErrInvalidRequest.WithError(err))
		return
	}

	resp, err := h.predictService.PredictBatch(c.Request.Context(), rows)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, resp)
}

// GetPrediction handles GET /api/v1/predictions/:policy_number.
func (h *PredictHandler) GetPrediction(c *gin.Context) {
	record, err := h.lookupService.GetPrediction(c.Request.Context(), c.Param("policy_number"))
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, record)
}
