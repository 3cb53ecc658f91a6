package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/hilayankonsky/movemix/internal/store"
	"github.com/hilayankonsky/movemix/internal/workouts"
	"github.com/hilayankonsky/movemix/pkg"

	log "github.com/sirupsen/logrus"
)

func (handler *Handler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := handler.store.Settings(r.Context())
	if err != nil {
		log.Errorf("get settings: %s", err)
		http.Error(w, "failed to get settings", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSON(w, settings, http.StatusOK)
}

func (handler *Handler) HandleSetSettings(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	var patch workouts.SettingsPatch
	if err := json.Unmarshal(body, &patch); err != nil {
		http.Error(w, "invalid settings payload", http.StatusBadRequest)
		return
	}
	if err := ValidateSettingsPatch(patch); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	settings, err := handler.store.SetSettings(r.Context(), patch)
	if err != nil {
		log.Errorf("set settings: %s", err)
		http.Error(w, "failed to save settings", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterSettingsUpdates.Inc()
	pkg.WriteJSON(w, settings, http.StatusOK)
}

func (handler *Handler) HandleResetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := handler.store.ResetSettingsToDefault(r.Context())
	if err != nil {
		log.Errorf("reset settings: %s", err)
		http.Error(w, "failed to reset settings", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterSettingsUpdates.Inc()
	pkg.WriteJSON(w, settings, http.StatusOK)
}

func (handler *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	doc, err := handler.store.ExportSnapshot(r.Context())
	if err != nil {
		log.Errorf("export snapshot: %s", err)
		http.Error(w, "failed to export", http.StatusInternalServerError)
		return
	}

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		log.Errorf("marshal snapshot: %s", err)
		http.Error(w, "failed to export", http.StatusInternalServerError)
		return
	}

	w.Header().Set(
		"Content-Disposition",
		fmt.Sprintf(`attachment; filename="movemix_backup_%s.json"`, handler.today()),
	)
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, body)
}

func (handler *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	doc, err := handler.store.ImportSnapshot(r.Context(), body)
	if err != nil {
		if errors.Is(err, store.ErrInvalidSnapshot) {
			http.Error(w, "invalid file", http.StatusBadRequest)
			return
		}
		log.Errorf("import snapshot: %s", err)
		http.Error(w, "failed to import", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterImports.Inc()
	handler.metrics.GaugeStoredSessions.Set(float64(len(doc.Sessions)))

	log.Infof("snapshot imported: %d sessions", len(doc.Sessions))
	pkg.WriteJSON(w, doc, http.StatusOK)
}

func (handler *Handler) HandleClearAll(w http.ResponseWriter, r *http.Request) {
	if err := handler.store.ClearAll(r.Context()); err != nil {
		log.Errorf("clear all: %s", err)
		http.Error(w, "failed to clear data", http.StatusInternalServerError)
		return
	}

	handler.metrics.GaugeStoredSessions.Set(0)
	log.Infoln("all data cleared")
	w.WriteHeader(http.StatusNoContent)
}
