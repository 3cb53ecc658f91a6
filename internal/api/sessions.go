package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hilayankonsky/movemix/internal/stats"
	"github.com/hilayankonsky/movemix/internal/workouts"
	"github.com/hilayankonsky/movemix/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type sessionsResponse struct {
	Sessions []stats.HistoryRow `json:"sessions"`
	Total    int                `json:"total"`
}

func (handler *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	rows, err := handler.engine.History(r.Context(), stats.HistoryFilter{
		Query: query.Get("q"),
		From:  query.Get("from"),
		To:    query.Get("to"),
	})
	if err != nil {
		if errors.Is(err, stats.ErrInvalidFilter) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Errorf("list sessions: %s", err)
		http.Error(w, "failed to get sessions", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, sessionsResponse{
		Sessions: rows,
		Total:    len(rows),
	}, http.StatusOK)
}

func (handler *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	session, found, err := handler.store.GetSession(r.Context(), id)
	if err != nil {
		log.Errorf("get session %s: %s", id, err)
		http.Error(w, "failed to get session", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	pkg.WriteJSON(w, session, http.StatusOK)
}

func (handler *Handler) HandleAddSession(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	var in workouts.SessionInput
	if err := json.Unmarshal(body, &in); err != nil {
		http.Error(w, "invalid session payload", http.StatusBadRequest)
		return
	}
	if err := ValidateSessionInput(in, handler.loc); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	session, err := handler.store.AddSession(r.Context(), in)
	if err != nil {
		log.Errorf("add session [%s %s]: %s", in.Type, in.Date, err)
		http.Error(w, "failed to add session", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterSessionMutations.WithLabelValues("add").Inc()
	handler.refreshStoredSessions(r.Context())

	log.Debugf("session added: %s [%s %s]", session.ID, session.Type, session.Date)
	pkg.WriteJSON(w, session, http.StatusCreated)
}

func (handler *Handler) HandleUpdateSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	body, ok := readBody(w, r)
	if !ok {
		return
	}

	var patch workouts.SessionPatch
	if err := json.Unmarshal(body, &patch); err != nil {
		http.Error(w, "invalid session patch", http.StatusBadRequest)
		return
	}
	if err := ValidateSessionPatch(patch, handler.loc); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	session, found, err := handler.store.UpdateSession(r.Context(), id, patch)
	if err != nil {
		log.Errorf("update session %s: %s", id, err)
		http.Error(w, "failed to update session", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	handler.metrics.CounterSessionMutations.WithLabelValues("update").Inc()

	log.Debugf("session updated: %s", id)
	pkg.WriteJSON(w, session, http.StatusOK)
}

// HandleRemoveSession succeeds for unknown ids too; removal is idempotent.
func (handler *Handler) HandleRemoveSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	if err := handler.store.RemoveSession(r.Context(), id); err != nil {
		log.Errorf("remove session %s: %s", id, err)
		http.Error(w, "failed to remove session", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterSessionMutations.WithLabelValues("remove").Inc()
	handler.refreshStoredSessions(r.Context())

	w.WriteHeader(http.StatusNoContent)
}
