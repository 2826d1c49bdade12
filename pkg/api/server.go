package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/openbookd/bookd/pkg/book"
)

// Server is the HTTP boundary in front of one partition's order book
// service. It owns the status-code mapping of the four core failure kinds:
//
//	invalid order  -> 400 (fix the input)
//	not primary    -> 410 (re-resolve the service location)
//	capacity       -> 429 (back off or go elsewhere)
//	transient      -> 503 (retry against the same handle)
type Server struct {
	svc     *book.Service
	router  *mux.Router
	hub     *Hub
	log     *zap.SugaredLogger
	metrics *Metrics
}

// NewServer creates a new API server
func NewServer(svc *book.Service, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	reg := prometheus.NewRegistry()
	s := &Server{
		svc:     svc,
		router:  mux.NewRouter(),
		hub:     NewHub(log),
		log:     log,
		metrics: NewMetrics(reg),
	}

	s.setupRoutes(reg)
	return s
}

func (s *Server) setupRoutes(reg *prometheus.Registry) {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/orders", s.handleGetBook).Methods("GET")
	api.HandleFunc("/orders", s.handleClear).Methods("DELETE")
	api.HandleFunc("/orders/bids", s.handleGetBids).Methods("GET")
	api.HandleFunc("/orders/asks", s.handleGetAsks).Methods("GET")
	api.HandleFunc("/orders/bid", s.handleAddBid).Methods("POST")
	api.HandleFunc("/orders/ask", s.handleAddAsk).Methods("POST")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	s.router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
}

// Handler returns the routable handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start starts the API server
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
	})
	handler := c.Handler(s.router)

	s.log.Infow("api_server_starting", "addr", addr, "pair", s.svc.Pair())
	return http.ListenAndServe(addr, handler)
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Book(r.Context())
	if err != nil {
		s.metrics.requests.WithLabelValues("get_book", "error").Inc()
		s.respondCoreError(w, err)
		return
	}

	s.metrics.requests.WithLabelValues("get_book", "ok").Inc()
	respondJSON(w, OrderBookViewModel{
		CurrencyPair: view.Pair,
		Bids:         toOrderModels(view.Bids),
		Asks:         toOrderModels(view.Asks),
		BidsCount:    view.BidCount,
		AsksCount:    view.AskCount,
	})
}

func (s *Server) handleGetBids(w http.ResponseWriter, r *http.Request) {
	bids, err := s.svc.Bids(r.Context())
	if err != nil {
		s.metrics.requests.WithLabelValues("get_bids", "error").Inc()
		s.respondCoreError(w, err)
		return
	}
	s.metrics.requests.WithLabelValues("get_bids", "ok").Inc()
	respondJSON(w, toOrderModels(bids))
}

func (s *Server) handleGetAsks(w http.ResponseWriter, r *http.Request) {
	asks, err := s.svc.Asks(r.Context())
	if err != nil {
		s.metrics.requests.WithLabelValues("get_asks", "error").Inc()
		s.respondCoreError(w, err)
		return
	}
	s.metrics.requests.WithLabelValues("get_asks", "ok").Inc()
	respondJSON(w, toOrderModels(asks))
}

func (s *Server) handleAddBid(w http.ResponseWriter, r *http.Request) {
	s.handleAdd(w, r, book.Bid)
}

func (s *Server) handleAddAsk(w http.ResponseWriter, r *http.Request) {
	s.handleAdd(w, r, book.Ask)
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request, side book.Side) {
	op := "add_" + side.String()

	var model OrderRequestModel
	if err := json.NewDecoder(r.Body).Decode(&model); err != nil {
		s.metrics.requests.WithLabelValues(op, "bad_request").Inc()
		respondError(w, http.StatusBadRequest, "null or invalid order", err.Error())
		return
	}

	// Requests routed to the wrong partition carry a foreign pair; the
	// boundary pins them to this partition's pair.
	if model.Pair != s.svc.Pair() {
		model.Pair = s.svc.Pair()
	}

	req := book.OrderRequest{Pair: model.Pair, Price: model.Price, Quantity: model.Quantity}

	start := time.Now()
	var (
		ord book.Order
		err error
	)
	if side == book.Bid {
		ord, err = s.svc.AddBid(r.Context(), req)
	} else {
		ord, err = s.svc.AddAsk(r.Context(), req)
	}
	s.metrics.addLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		s.metrics.requests.WithLabelValues(op, "error").Inc()
		s.respondCoreError(w, err)
		return
	}

	s.metrics.requests.WithLabelValues(op, "ok").Inc()
	s.afterMutation(r)
	respondJSON(w, AddOrderResponse{OrderID: ord.ID.String()})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Clear(r.Context()); err != nil {
		s.metrics.requests.WithLabelValues("clear", "error").Inc()
		s.respondCoreError(w, err)
		return
	}
	s.metrics.requests.WithLabelValues("clear", "ok").Inc()
	s.afterMutation(r)
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok", "pair": s.svc.Pair()})
}

// afterMutation refreshes the resting-order gauge and pushes the new book
// to WebSocket subscribers.
func (s *Server) afterMutation(r *http.Request) {
	if count, err := s.svc.Count(r.Context()); err == nil {
		s.metrics.restingOrders.Set(float64(count))
	}
	s.broadcastBook(r)
}

func (s *Server) broadcastBook(r *http.Request) {
	view, err := s.svc.Book(r.Context())
	if err != nil {
		s.log.Warnw("book_broadcast_skipped", "err", err)
		return
	}
	s.hub.BroadcastToChannel("book:"+view.Pair, BookUpdate{
		Type:      "book",
		Pair:      view.Pair,
		Bids:      toOrderModels(view.Bids),
		Asks:      toOrderModels(view.Asks),
		Timestamp: time.Now().UnixMilli(),
	})
}

// respondCoreError maps a core failure kind to its transport response.
func (s *Server) respondCoreError(w http.ResponseWriter, err error) {
	switch {
	case book.IsInvalidOrder(err):
		respondError(w, http.StatusBadRequest, err.Error(), "")
	case book.IsRoleError(err):
		respondError(w, http.StatusGone,
			"the primary replica has moved", "please re-resolve the service")
	case book.IsCapacityExceeded(err):
		respondError(w, http.StatusTooManyRequests, err.Error(), "")
	case book.IsTransient(err):
		respondError(w, http.StatusServiceUnavailable,
			"the service was unable to process the request", "please try again")
	default:
		s.log.Errorw("unclassified_error", "err", err)
		respondError(w, http.StatusInternalServerError, "internal error", "")
	}
}

// ==============================
// Helper Functions
// ==============================

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}
