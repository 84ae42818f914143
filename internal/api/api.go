// Package api serves sale snapshots, vault locks and indexed events over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/locker"
	"token-launchpad/internal/observability"
	"token-launchpad/internal/storage"
)

// Options configures the router.
type Options struct {
	Events    storage.EventStore
	Snapshots storage.SaleSnapshotStore
	Vault     *locker.Vault
	Metrics   *observability.Metrics
	Logger    *slog.Logger

	// AllowedOrigins for CORS. Defaults to any origin.
	AllowedOrigins []string
}

// Validate checks required collaborators and fills defaults.
func (o *Options) Validate() error {
	var errs []error
	if o.Events == nil {
		errs = append(errs, errors.New("event store is required"))
	}
	if o.Snapshots == nil {
		errs = append(errs, errors.New("snapshot store is required"))
	}
	if o.Vault == nil {
		errs = append(errs, errors.New("vault is required"))
	}
	if o.Metrics == nil {
		errs = append(errs, errors.New("metrics are required"))
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if len(o.AllowedOrigins) == 0 {
		o.AllowedOrigins = []string{"*"}
	}
	return errors.Join(errs...)
}

type handler struct {
	opts Options
	log  *slog.Logger
}

// NewRouter builds the HTTP API.
func NewRouter(opts Options) (http.Handler, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	h := &handler{opts: opts, log: opts.Logger.With("component", "api")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(h.countRequests)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())

	r.Route("/sales", func(r chi.Router) {
		r.Get("/", h.listSales)
		r.Get("/{address}", h.getSale)
		r.Get("/{address}/events", h.saleEvents)
	})
	r.Route("/locks", func(r chi.Router) {
		r.Get("/", h.listLocks)
		r.Get("/{id}", h.getLock)
	})
	r.Get("/events", h.listEvents)
	return r, nil
}

func (h *handler) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		h.opts.Metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
	})
}

func (h *handler) listSales(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.opts.Snapshots.List(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	out := make([]saleJSON, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, toSaleJSON(s))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) getSale(w http.ResponseWriter, r *http.Request) {
	snap, err := h.opts.Snapshots.Get(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleJSON(snap))
}

func (h *handler) saleEvents(w http.ResponseWriter, r *http.Request) {
	addr := chi.URLParam(r, "address")
	if _, err := h.opts.Snapshots.Get(r.Context(), addr); err != nil {
		h.fail(w, err)
		return
	}
	events, err := h.opts.Events.GetByContract(r.Context(), addr)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventsJSON(events))
}

func (h *handler) getLock(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lock id")
		return
	}
	entry, ok := h.opts.Vault.Entry(id)
	if !ok {
		writeError(w, http.StatusNotFound, "lock not found")
		return
	}
	writeJSON(w, http.StatusOK, toLockJSON(entry))
}

// listLocks serves /locks?owner=X or /locks?token=Y.
func (h *handler) listLocks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var entries []domain.LockEntry
	switch {
	case q.Get("owner") != "":
		owner, err := solana.PublicKeyFromBase58(q.Get("owner"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid owner")
			return
		}
		entries = h.opts.Vault.LocksOf(owner)
	case q.Get("token") != "":
		token, err := solana.PublicKeyFromBase58(q.Get("token"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid token")
			return
		}
		entries = h.opts.Vault.LocksForToken(token)
	default:
		writeError(w, http.StatusBadRequest, "owner or token is required")
		return
	}
	out := make([]lockJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, toLockJSON(e))
	}
	writeJSON(w, http.StatusOK, out)
}

// listEvents serves /events?kind=K or /events?from=T1&to=T2.
func (h *handler) listEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		events []*domain.Event
		err    error
	)
	switch {
	case q.Get("kind") != "":
		events, err = h.opts.Events.GetByKind(r.Context(), domain.EventKind(q.Get("kind")))
	case q.Get("from") != "" || q.Get("to") != "":
		from, ferr := strconv.ParseInt(q.Get("from"), 10, 64)
		to, terr := strconv.ParseInt(q.Get("to"), 10, 64)
		if ferr != nil || terr != nil || from > to {
			writeError(w, http.StatusBadRequest, "from and to must be unix seconds with from <= to")
			return
		}
		events, err = h.opts.Events.GetByTimeRange(r.Context(), from, to)
	default:
		writeError(w, http.StatusBadRequest, "kind or from/to is required")
		return
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventsJSON(events))
}

func (h *handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
