package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/hilayankonsky/movemix/internal/period"
	"github.com/hilayankonsky/movemix/internal/stats"
	"github.com/hilayankonsky/movemix/internal/telemetry/metrics"
	"github.com/hilayankonsky/movemix/internal/workouts"

	log "github.com/sirupsen/logrus"
)

type documentStore interface {
	Read(ctx context.Context) (workouts.Document, error)
	AddSession(ctx context.Context, in workouts.SessionInput) (workouts.Session, error)
	UpdateSession(ctx context.Context, id string, patch workouts.SessionPatch) (workouts.Session, bool, error)
	RemoveSession(ctx context.Context, id string) error
	GetSession(ctx context.Context, id string) (workouts.Session, bool, error)
	Settings(ctx context.Context) (workouts.Settings, error)
	SetSettings(ctx context.Context, patch workouts.SettingsPatch) (workouts.Settings, error)
	ResetSettingsToDefault(ctx context.Context) (workouts.Settings, error)
	ExportSnapshot(ctx context.Context) (workouts.Document, error)
	ImportSnapshot(ctx context.Context, raw []byte) (workouts.Document, error)
	ClearAll(ctx context.Context) error
}

type dashboard interface {
	KPIs(ctx context.Context, p period.Period) (stats.Summary, error)
	TypeDistribution(ctx context.Context, p period.Period) (stats.ChartData, error)
	Weekly(ctx context.Context) (stats.WeeklyReport, error)
	History(ctx context.Context, filter stats.HistoryFilter) ([]stats.HistoryRow, error)
	Onboarding(ctx context.Context) (bool, error)
}

// Handler serves the local HTTP API over one store and its dashboard engine.
type Handler struct {
	store   documentStore
	engine  dashboard
	metrics *metrics.Manager
	now     period.Clock
	loc     *time.Location
}

func NewHandler(
	store documentStore,
	engine dashboard,
	metricsManager *metrics.Manager,
	now period.Clock,
	loc *time.Location,
) *Handler {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &Handler{
		store:   store,
		engine:  engine,
		metrics: metricsManager,
		now:     now,
		loc:     loc,
	}
}

func (handler *Handler) today() string {
	return period.Today(handler.now().In(handler.loc))
}

// refreshStoredSessions keeps the stored sessions gauge in line after a mutation.
func (handler *Handler) refreshStoredSessions(ctx context.Context) {
	doc, err := handler.store.Read(ctx)
	if err != nil {
		log.Warnf("refresh stored sessions gauge: %s", err)
		return
	}
	handler.metrics.GaugeStoredSessions.Set(float64(len(doc.Sessions)))
}

// readBody answers the request itself when the body cannot be read. Bodies cut off by
// the size limit get a 413, the same as ones whose declared length was already too big.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err == nil {
		return body, true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		log.Warnf("%s %s: body over %d bytes", r.Method, r.URL.Path, tooLarge.Limit)
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return nil, false
	}
	http.Error(w, "failed to read request body", http.StatusBadRequest)
	return nil, false
}
