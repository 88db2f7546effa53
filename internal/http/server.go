package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
	"fintrack/internal/store"
)

const (
	readyTimeout   = 3 * time.Second
	maxNetWorthLen = 120
)

// Deps are the services the API reads and writes through.
type Deps struct {
	Records     *services.RecordService
	Projections *services.ProjectionService
	Goals       *services.GoalService
	Savings     *services.SavingsService
	Clock       core.Clock

	// Runs reads back recorded projection runs. Nil when the backend keeps
	// no history.
	Runs services.RunRecorder

	// DefaultOwner answers requests without an X-Owner-ID header.
	DefaultOwner       string
	NetWorthMonths     int
	RateLimitPerMinute int
	Logger             *applog.Logger
}

type Server struct {
	http.Server
	deps     Deps
	logger   *applog.StructuredLogger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Clock == nil {
		deps.Clock = core.SystemClock{}
	}
	if deps.NetWorthMonths < 1 {
		deps.NetWorthMonths = 12
	}
	if deps.Logger == nil {
		deps.Logger = applog.FromContext(context.Background())
	}
	httpLogger := deps.Logger.WithComponent(applog.ComponentHTTP)

	detector := security.NewDetector()
	s := &Server{
		deps:     deps,
		logger:   applog.NewStructuredLogger(httpLogger),
		detector: detector,
		tracer:   trace.NewMiddleware(detector.ExtractClientIP, httpLogger),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: deps.RateLimitPerMinute,
		}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/months/{month}/balance", s.handleBalance)
	mux.HandleFunc("GET /api/months/{month}/budget", s.handleBudget)
	mux.HandleFunc("GET /api/months/{month}/savings", s.handleSavings)
	mux.HandleFunc("GET /api/months/{month}/projection-run", s.handleProjectionRun)
	mux.HandleFunc("GET /api/networth", s.handleNetWorth)
	mux.HandleFunc("GET /api/goals/scenario", s.handleGoals)

	write := s.limiter.Middleware(detector.ExtractClientIP, s.rateLimited)
	mux.HandleFunc("GET /api/records/{entity}", s.handleListRecords)
	mux.HandleFunc("GET /api/records/{entity}/{id}", s.handleGetRecord)
	mux.Handle("POST /api/records/{entity}", write(http.HandlerFunc(s.handleCreateRecord)))
	mux.Handle("PUT /api/records/{entity}/{id}", write(http.HandlerFunc(s.handleUpdateRecord)))
	mux.Handle("DELETE /api/records/{entity}/{id}", write(http.HandlerFunc(s.handleDeleteRecord)))
	mux.Handle("POST /api/goal-items/{id}/purchase", write(http.HandlerFunc(s.handlePurchase)))
	mux.Handle("POST /api/savings/{id}/complete", write(s.handleComplete(true)))
	mux.Handle("DELETE /api/savings/{id}/complete", write(s.handleComplete(false)))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var h http.Handler = mux
	h = headers.Middleware(h)
	h = applog.RequestIDMiddleware(trace.RequestIDFromRequest)(h)
	h = applog.Middleware(httpLogger)(h)
	h = s.tracer.Middleware(h)
	h = detector.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown stops the limiter cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if err := s.deps.Records.Store().Ping(ctx); err != nil {
		s.logger.LogError(r.Context(), "Readiness check failed", err, applog.ComponentStorage, applog.OpRead, nil)
		ErrorResponse(http.StatusServiceUnavailable, "store unavailable", trace.GetRequestID(r.Context())).Write(w)
		return
	}
	NewJSONResponse().JSON(map[string]string{"status": "ready"}).Write(w)
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded", trace.GetRequestID(r.Context())).Write(w)
}

// fail writes err with the status it maps to. Server errors are logged;
// client errors are echoed back.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, op,
			applog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", ""))
		msg = "internal error"
	}
	ErrorResponse(status, msg, trace.GetRequestID(r.Context())).Write(w)
}

// ownerAndMonth resolves the common inputs of the projection routes.
func (s *Server) ownerAndMonth(r *http.Request, raw string) (string, core.Month, error) {
	owner, err := ownerFrom(r, s.deps.DefaultOwner)
	if err != nil {
		return "", "", err
	}
	month, err := monthValue(raw, core.CurrentMonth(s.deps.Clock))
	if err != nil {
		return "", "", err
	}
	return owner, month, nil
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	owner, month, err := s.ownerAndMonth(r, r.PathValue("month"))
	if err != nil {
		s.fail(w, r, applog.OpProject, err)
		return
	}
	snap, err := s.deps.Projections.Balance(r.Context(), owner, month)
	if err != nil {
		s.fail(w, r, applog.OpProject, err)
		return
	}
	NewJSONResponse().JSON(snap).Write(w)
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	owner, month, err := s.ownerAndMonth(r, r.PathValue("month"))
	if err != nil {
		s.fail(w, r, applog.OpProject, err)
		return
	}
	status, err := s.deps.Projections.Budget(r.Context(), owner, month)
	if err != nil {
		s.fail(w, r, applog.OpProject, err)
		return
	}
	NewJSONResponse().JSON(status).Write(w)
}

func (s *Server) handleSavings(w http.ResponseWriter, r *http.Request) {
	owner, month, err := s.ownerAndMonth(r, r.PathValue("month"))
	if err != nil {
		s.fail(w, r, applog.OpProject, err)
		return
	}
	view, err := s.deps.Projections.Savings(r.Context(), owner, month)
	if err != nil {
		s.fail(w, r, applog.OpProject, err)
		return
	}
	NewJSONResponse().JSON(view).Write(w)
}

func (s *Server) handleProjectionRun(w http.ResponseWriter, r *http.Request) {
	owner, month, err := s.ownerAndMonth(r, r.PathValue("month"))
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	if s.deps.Runs == nil {
		s.fail(w, r, applog.OpRead, fmt.Errorf("projection runs are not recorded: %w", store.ErrNotFound))
		return
	}
	run, err := s.deps.Runs.LastProjectionRun(r.Context(), owner, month)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().JSON(run).Write(w)
}

func (s *Server) handleNetWorth(w http.ResponseWriter, r *http.Request) {
	owner, from, err := s.ownerAndMonth(r, r.URL.Query().Get("from"))
	if err != nil {
		s.fail(w, r, applog.OpProject, err)
		return
	}
	months, err := intQuery(r, "months", s.deps.NetWorthMonths, 1, maxNetWorthLen)
	if err != nil {
		s.fail(w, r, applog.OpProject, err)
		return
	}
	points, err := s.deps.Projections.NetWorth(r.Context(), owner, from, months)
	if err != nil {
		s.fail(w, r, applog.OpProject, err)
		return
	}
	NewJSONResponse().JSON(points).Write(w)
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	owner, month, err := s.ownerAndMonth(r, r.URL.Query().Get("month"))
	if err != nil {
		s.fail(w, r, applog.OpProject, err)
		return
	}
	timeline, err := s.deps.Projections.Goals(r.Context(), owner, month)
	if err != nil {
		s.fail(w, r, applog.OpProject, err)
		return
	}
	NewJSONResponse().JSON(timeline).Write(w)
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFrom(r, s.deps.DefaultOwner)
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	entity, err := entityParam(r)
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	var month core.Month
	if raw := r.URL.Query().Get("month"); raw != "" {
		if month, err = core.ParseMonth(raw); err != nil {
			s.fail(w, r, applog.OpList, err)
			return
		}
	}
	records, err := s.deps.Records.List(r.Context(), owner, entity, month)
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	if records == nil {
		records = []core.Record{}
	}
	NewJSONResponse().JSON(records).Write(w)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	owner, entity, id, err := s.recordKey(r)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	rec, err := s.deps.Records.Get(r.Context(), owner, entity, id)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().JSON(rec).Write(w)
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFrom(r, s.deps.DefaultOwner)
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	entity, err := entityParam(r)
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	rec, err := decodeRecord(w, r, entity)
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	// Ids are assigned by the store.
	rec.Base().ID = ""
	created, err := s.deps.Records.Create(r.Context(), owner, rec)
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	s.logger.LogRecordWritten(r.Context(), applog.OpCreate, owner, string(entity), created.Base().ID, string(created.RecordMonth()))
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", fmt.Sprintf("/api/records/%s/%s", entity, created.Base().ID)).
		JSON(created).
		Write(w)
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	owner, entity, id, err := s.recordKey(r)
	if err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	rec, err := decodeRecord(w, r, entity)
	if err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	rec.Base().ID = id
	updated, err := s.deps.Records.Update(r.Context(), owner, rec)
	if err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	s.logger.LogRecordWritten(r.Context(), applog.OpUpdate, owner, string(entity), id, string(updated.RecordMonth()))
	NewJSONResponse().JSON(updated).Write(w)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	owner, entity, id, err := s.recordKey(r)
	if err != nil {
		s.fail(w, r, applog.OpDelete, err)
		return
	}
	if err := s.deps.Records.Delete(r.Context(), owner, entity, id); err != nil {
		s.fail(w, r, applog.OpDelete, err)
		return
	}
	s.logger.LogRecordWritten(r.Context(), applog.OpDelete, owner, string(entity), id, "")
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// PurchaseResult is the body of a successful purchase.
type PurchaseResult struct {
	Item    *core.GoalItem `json:"item"`
	Expense *core.Expense  `json:"expense"`
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFrom(r, s.deps.DefaultOwner)
	if err != nil {
		s.fail(w, r, applog.OpPurchase, err)
		return
	}
	id, err := requireID(r)
	if err != nil {
		s.fail(w, r, applog.OpPurchase, err)
		return
	}
	item, expense, err := s.deps.Goals.Purchase(r.Context(), owner, id, s.deps.Clock.Now())
	if err != nil {
		s.fail(w, r, applog.OpPurchase, err)
		return
	}
	s.logger.LogRecordWritten(r.Context(), applog.OpPurchase, owner, string(core.EntityGoalItem), id, string(expense.Month))
	NewJSONResponse().JSON(PurchaseResult{Item: item, Expense: expense}).Write(w)
}

func (s *Server) handleComplete(completed bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := ownerFrom(r, s.deps.DefaultOwner)
		if err != nil {
			s.fail(w, r, applog.OpComplete, err)
			return
		}
		id, err := requireID(r)
		if err != nil {
			s.fail(w, r, applog.OpComplete, err)
			return
		}
		tx, err := s.deps.Savings.SetCompleted(r.Context(), owner, id, completed)
		if err != nil {
			s.fail(w, r, applog.OpComplete, err)
			return
		}
		s.logger.LogRecordWritten(r.Context(), applog.OpComplete, owner, string(core.EntitySavings), id, string(tx.Month))
		NewJSONResponse().JSON(tx).Write(w)
	}
}

func (s *Server) recordKey(r *http.Request) (string, core.Entity, string, error) {
	owner, err := ownerFrom(r, s.deps.DefaultOwner)
	if err != nil {
		return "", "", "", err
	}
	entity, err := entityParam(r)
	if err != nil {
		return "", "", "", err
	}
	id, err := requireID(r)
	if err != nil {
		return "", "", "", err
	}
	return owner, entity, id, nil
}
