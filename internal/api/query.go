package api

import (
	"encoding/json"
	"net/http"

	"github.com/text2sql/text2sql/internal/config"
)

const maxQueryBodyBytes = 1 << 20

type queryRequest struct {
	Question *string `json:"question"`
}

func handleQuery(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Service == nil {
		writeNotConfigured(cfg, w)
		return
	}

	var request queryRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQueryBodyBytes))
	if err := decoder.Decode(&request); err != nil {
		writeInvalidRequest(w, "invalid query request body: "+err.Error())
		return
	}
	if request.Question == nil {
		writeInvalidRequest(w, "question is required")
		return
	}

	answer, err := deps.Service.Ask(r.Context(), *request.Question)
	if err != nil {
		writeFailure(cfg, deps, w, r, err)
		return
	}
	if deps.Logger != nil {
		deps.Logger.InfoContext(r.Context(), "question answered",
			"provider", answer.Provider,
			"model", answer.Model,
			"rows", len(answer.Results.Rows),
		)
	}
	writeJSON(w, http.StatusOK, answer)
}

func handleSchema(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Service == nil {
		writeNotConfigured(cfg, w)
		return
	}
	desc, err := deps.Service.Schema(r.Context())
	if err != nil {
		writeFailure(cfg, deps, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, desc)
}
