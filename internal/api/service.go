package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"sibyl/internal/database"
	"sibyl/internal/oracle"
)

// Service exposes the oracle pipeline over HTTP. The db is optional; when
// absent the history route reports the store as unconfigured.
type Service struct {
	server *http.Server
	engine *oracle.Engine
	db     *database.DB
}

// SignalResponse carries one computed signal. Scaled integers are encoded
// as strings so JSON number precision never touches them.
type SignalResponse struct {
	Pair        string `json:"pair"`
	Block       uint64 `json:"block"`
	SpotPrice   string `json:"spot_price"`
	Price24h    string `json:"price_24h,omitempty"`
	FairPrice   string `json:"fair_price,omitempty"`
	Confidence  uint64 `json:"confidence"`
	MaxSafeSize string `json:"max_safe_size,omitempty"`
	Flags       uint64 `json:"flags"`
	// Reveal is the hex-encoded payload this node would submit for
	// aggregation.
	Reveal string `json:"reveal"`
}

// HistoryResponse lists recently persisted signals.
type HistoryResponse struct {
	Signals []HistoryEntry `json:"signals"`
}

// HistoryEntry is one persisted signal row.
type HistoryEntry struct {
	Pair        string    `json:"pair"`
	Block       int64     `json:"block"`
	FairPrice   string    `json:"fair_price"`
	Confidence  int64     `json:"confidence"`
	MaxSafeSize string    `json:"max_safe_size"`
	Flags       int64     `json:"flags"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewService wires the HTTP routes.
func NewService(engine *oracle.Engine, db *database.DB, port int) *Service {
	s := &Service{
		engine: engine,
		db:     db,
	}

	r := mux.NewRouter()
	r.HandleFunc("/v1/signal/{pair}", s.handleGetSignal).Methods("GET")
	r.HandleFunc("/v1/signals", s.handleListSignals).Methods("GET")

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// Handler returns the route handler, for tests.
func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Service) handleGetSignal(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	pair := vars["pair"]

	signal, err := s.engine.Execute(r.Context(), []byte(pair))
	if err != nil {
		if errors.Is(err, oracle.ErrInvalidInput) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, fmt.Sprintf("Failed to compute signal: %v", err), http.StatusInternalServerError)
		return
	}

	reveal, err := oracle.EncodeSignal(signal)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to encode signal: %v", err), http.StatusInternalServerError)
		return
	}

	if s.db != nil {
		// History is best-effort; a store failure never fails the request.
		if err := s.db.SaveSignal(r.Context(), signal); err != nil {
			log.Printf("Failed to persist signal for %s: %v", signal.Pair, err)
		}
	}

	response := SignalResponse{
		Pair:      signal.Pair,
		Block:     signal.Block,
		SpotPrice: signal.SpotPrice.String(),
		Reveal:    "0x" + hex.EncodeToString(reveal),
	}
	if !signal.PriceOnly {
		response.Price24h = signal.Price24h.String()
		response.FairPrice = signal.FairPrice.String()
		response.Confidence = signal.Scores.Confidence
		response.MaxSafeSize = signal.MaxSafeSize.String()
		response.Flags = signal.Scores.Flags
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (s *Service) handleListSignals(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		http.Error(w, "Signal history store is not configured", http.StatusNotFound)
		return
	}

	rows, err := s.db.RecentSignals(r.Context(), 100)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to get signals: %v", err), http.StatusInternalServerError)
		return
	}

	response := HistoryResponse{Signals: make([]HistoryEntry, len(rows))}
	for i, row := range rows {
		response.Signals[i] = HistoryEntry{
			Pair:        row.Pair,
			Block:       row.Block,
			FairPrice:   row.FairPrice,
			Confidence:  row.Confidence,
			MaxSafeSize: row.MaxSafeSize,
			Flags:       row.Flags,
			CreatedAt:   row.CreatedAt,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
