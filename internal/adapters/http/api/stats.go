package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/statboard/internal/domain/model"
	"github.com/okian/statboard/internal/domain/query"
	"github.com/okian/statboard/pkg/errs"
	"github.com/okian/statboard/pkg/logger"
)

// statRequest mirrors the OpenAPI schema for POST /stats. Unknown fields
// are ignored.
type statRequest struct {
	User  string   `json:"user"`
	Game  string   `json:"game"`
	Stat  string   `json:"stat"`
	Value *float64 `json:"value"`
	Day   *uint64  `json:"day"`
}

func (r statRequest) input() model.StatInput {
	return model.StatInput{User: r.User, Game: r.Game, Stat: r.Stat, Value: r.Value, Day: r.Day}
}

// fieldTypes names the expected JSON type of each request field.
var fieldTypes = map[string]string{
	"user":  "string",
	"game":  "string",
	"stat":  "string",
	"value": "finite number",
	"day":   "non-negative integer",
}

// StatsHandler handles /stats requests.
type StatsHandler struct {
	deps    Dependencies
	parser  *query.Parser
	log     logger.Logger
	maxBody int64
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(deps Dependencies, parser *query.Parser, log logger.Logger, maxBody int64) *StatsHandler {
	if parser == nil {
		parser = query.NewParser()
	}
	if log == nil {
		log = logger.Discard()
	}
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}
	return &StatsHandler{deps: deps, parser: parser, log: log, maxBody: maxBody}
}

// HandleStats dispatches POST /stats and GET /stats.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handlePost(w, r)
	case http.MethodGet:
		h.handleGet(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "", "")
	}
}

func (h *StatsHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_stat"
	ctx := r.Context()

	req, err := decodeStatRequest(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		h.log.Debug(ctx, "rejected stat body", logger.Error(err))
		writeError(w, http.StatusBadRequest, errs.Reason(err), "")
		return
	}

	st, err := h.deps.RecordStat(ctx, req.input())
	if err != nil {
		if errors.Is(err, ErrBadRequest) {
			writeError(w, http.StatusBadRequest, errs.Reason(err), "")
			return
		}
		h.log.Error(ctx, "failed to add stat", logger.Error(errs.Wrap(op, err)))
		writeError(w, http.StatusBadRequest, reasonAddFailed, "")
		return
	}
	writeJSON(w, http.StatusOK, st.View())
}

func (h *StatsHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_stats"
	ctx := r.Context()

	q, err := h.parser.Parse(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, reasonQueryFailed, errs.Reason(err))
		return
	}

	stats, err := h.deps.QueryStats(ctx, q)
	if err != nil {
		h.log.Error(ctx, "failed to query stats",
			logger.String("variant", string(q.Variant())),
			logger.Error(errs.Wrap(op, err)))
		writeError(w, http.StatusBadRequest, reasonQueryFailed, queryDetail(err))
		return
	}
	writeJSON(w, http.StatusOK, model.Views(stats))
}

// queryDetail exposes the reason for client and data errors only. Storage
// failures stay in the logs.
func queryDetail(err error) string {
	switch errs.KindOf(err) {
	case errs.ErrValidation, errs.ErrParse, errs.ErrDecode:
		return errs.Reason(err)
	default:
		return ""
	}
}

func decodeStatRequest(body io.Reader) (statRequest, error) {
	const op = "api.decode_stat"
	var req statRequest
	dec := json.NewDecoder(body)
	err := dec.Decode(&req)
	if err == nil {
		// Only whitespace may follow the object.
		var tooBig *http.MaxBytesError
		switch err = dec.Decode(&json.RawMessage{}); {
		case errors.Is(err, io.EOF):
			return req, nil
		case errors.As(err, &tooBig):
			return req, errs.WrapKind(op, ErrBadRequest, ErrBodyTooLarge)
		default:
			return req, errs.WrapKind(op, ErrBadRequest, ErrBodyInvalid)
		}
	}

	var (
		typeErr *json.UnmarshalTypeError
		syntax  *json.SyntaxError
		tooBig  *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooBig):
		return req, errs.WrapKind(op, ErrBadRequest, ErrBodyTooLarge)
	case errors.As(err, &typeErr):
		if want, ok := fieldTypes[typeErr.Field]; ok {
			return req, errs.WrapKind(op, ErrBadRequest, fmt.Errorf("%s must be a %s", typeErr.Field, want))
		}
		return req, errs.WrapKind(op, ErrBadRequest, ErrBodyNotObject)
	case errors.As(err, &syntax), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return req, errs.WrapKind(op, ErrBadRequest, ErrBodyInvalid)
	default:
		return req, errs.WrapKind(op, ErrBadRequest, err)
	}
}
