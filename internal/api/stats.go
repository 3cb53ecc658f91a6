package api

import (
	"net/http"

	"github.com/hilayankonsky/movemix/internal/period"
	"github.com/hilayankonsky/movemix/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

func periodFromRequest(w http.ResponseWriter, r *http.Request) (period.Period, bool) {
	p, err := period.ParsePeriod(mux.Vars(r)["period"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return p, true
}

func (handler *Handler) HandleKPIs(w http.ResponseWriter, r *http.Request) {
	p, ok := periodFromRequest(w, r)
	if !ok {
		return
	}

	summary, err := handler.engine.KPIs(r.Context(), p)
	if err != nil {
		log.Errorf("kpis [%s]: %s", p, err)
		http.Error(w, "failed to compute kpis", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSON(w, summary, http.StatusOK)
}

func (handler *Handler) HandleTypeDistribution(w http.ResponseWriter, r *http.Request) {
	p, ok := periodFromRequest(w, r)
	if !ok {
		return
	}

	chart, err := handler.engine.TypeDistribution(r.Context(), p)
	if err != nil {
		log.Errorf("type distribution [%s]: %s", p, err)
		http.Error(w, "failed to compute type distribution", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSON(w, chart, http.StatusOK)
}

func (handler *Handler) HandleWeekly(w http.ResponseWriter, r *http.Request) {
	report, err := handler.engine.Weekly(r.Context())
	if err != nil {
		log.Errorf("weekly rollup: %s", err)
		http.Error(w, "failed to compute weekly rollup", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSON(w, report, http.StatusOK)
}

func (handler *Handler) HandleOnboarding(w http.ResponseWriter, r *http.Request) {
	show, err := handler.engine.Onboarding(r.Context())
	if err != nil {
		log.Errorf("onboarding: %s", err)
		http.Error(w, "failed to check onboarding", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSON(w, map[string]bool{"showWelcome": show}, http.StatusOK)
}
