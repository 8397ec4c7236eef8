package server

import (
	"errors"
	"net/http"

	"github.com/goto/salt/log"
	"github.com/goto/sitesearch/core/search"
)

type handler struct {
	search     SearchService
	health     HealthChecker
	registries RegistryRefresher
	logger     log.Logger
}

func (h *handler) Search(w http.ResponseWriter, r *http.Request) {
	rs, err := h.search.Search(r.Context(), r.URL.Query())
	if err != nil {
		var verr search.ValidationError
		switch {
		case errors.As(err, &verr):
			writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{Error: verr.Error()})
		case errors.Is(err, search.ErrEngineUnavailable):
			h.logger.Warn("search engine unavailable", "err", err)
			writeJSONError(w, http.StatusServiceUnavailable, err.Error())
		default:
			internalServerError(w, h.logger, "error running search: "+err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, rs)
}

func (h *handler) Healthcheck(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
		return
	}
	if err := h.health.Ping(r.Context()); err != nil {
		h.logger.Warn("healthcheck failed", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, StatusResponse{Status: "unavailable", Reason: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *handler) RefreshRegistries(w http.ResponseWriter, r *http.Request) {
	if h.registries == nil {
		writeJSONError(w, http.StatusNotFound, "registries are not configured")
		return
	}
	if err := h.registries.Refresh(r.Context()); err != nil {
		h.logger.Error("registry refresh failed", "err", err)
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeJSONError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeJSONError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
}
