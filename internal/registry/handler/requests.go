package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"passgate/internal/registry/models"
	dErrors "passgate/pkg/domain-errors"
)

type issueRequest struct {
	Metadata string `json:"metadata"`
}

type bulkIssueRequest struct {
	Metadata []string `json:"metadata"`
}

type transferRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type issueResponse struct {
	ID uint64 `json:"id"`
}

type bulkIssueResponse struct {
	IDs []uint64 `json:"ids"`
}

type passResponse struct {
	ID           uint64 `json:"id"`
	Metadata     string `json:"metadata"`
	Owner        string `json:"owner,omitempty"`
	Status       string `json:"status"`
	Revoked      bool   `json:"revoked"`
	Transferable bool   `json:"transferable"`
}

type ownerResponse struct {
	Owner   string `json:"owner,omitempty"`
	Present bool   `json:"present"`
}

type statusResponse struct {
	Exists       bool   `json:"exists"`
	Valid        bool   `json:"valid"`
	Revoked      bool   `json:"revoked"`
	Transferable bool   `json:"transferable"`
	Status       string `json:"status"`
}

type bulkRecordResponse struct {
	Record string `json:"record"`
}

type refundResponse struct {
	Holder        string `json:"holder,omitempty"`
	HolderPresent bool   `json:"holder_present"`
}

type registryResponse struct {
	Admin          string `json:"admin"`
	TotalIssued    uint64 `json:"total_issued"`
	LastIssuedID   uint64 `json:"last_issued_id"`
	NextID         uint64 `json:"next_id"`
	BulkLimit      int    `json:"bulk_limit"`
	MetadataMaxLen int    `json:"metadata_max_len"`
}

type adminCheckResponse struct {
	Identity string `json:"identity"`
	Admin    bool   `json:"admin"`
}

func decodeIssueRequest(r *http.Request) (issueRequest, error) {
	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return req, nil
}

func decodeBulkIssueRequest(r *http.Request) (bulkIssueRequest, error) {
	var req bulkIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return req, nil
}

func decodeTransferRequest(r *http.Request) (transferRequest, error) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	if req.From == "" || req.To == "" {
		return req, dErrors.New(dErrors.CodeBadRequest, "from and to are required")
	}
	return req, nil
}

// passIDParam parses the {id} path segment. IDs are positive decimal
// integers; anything else is a bad request, not a missing pass.
func passIDParam(r *http.Request) (models.PassID, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid pass id")
	}
	return models.PassID(id), nil
}
