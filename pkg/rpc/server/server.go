package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/rollkit/bridge/pkg/config"
	"github.com/rollkit/bridge/pkg/log"
	"github.com/rollkit/bridge/pkg/service"
	"github.com/rollkit/bridge/types"
)

// MaxTxnsPerRequest bounds the number of transactions accepted in one submission.
const MaxTxnsPerRequest = 1000

// Server exposes the node over a small JSON HTTP API.
type Server struct {
	*service.BaseService

	config  config.RPCConfig
	backend Backend
	handler http.Handler
}

// NewServer creates new instance of Server with given configuration.
func NewServer(backend Backend, conf config.RPCConfig, logger log.Logger) *Server {
	s := &Server{
		config:  conf,
		backend: backend,
	}
	s.BaseService = service.NewBaseService(logger, "RPC", s)
	s.handler = cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(s.router())
	return s
}

// Handler returns the HTTP handler with CORS applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is done. An empty address disables the server.
func (s *Server) Run(ctx context.Context) error {
	if s.config.Address == "" {
		s.Logger.Info("listen address not specified - RPC will not be exposed")
		<-ctx.Done()
		return ctx.Err()
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(s.config.Address, strconv.Itoa(int(s.config.Port))))
	if err != nil {
		return err
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is done.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 2 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("serving HTTP", "listen address", listener.Addr())
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.Logger.Error("error while shutting down RPC server", "error", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health/live", s.live).Methods(http.MethodGet)
	r.HandleFunc("/txns", s.submitTxns).Methods(http.MethodPost)
	r.HandleFunc("/watermarks", s.watermarks).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{address}", s.account).Methods(http.MethodGet)
	r.HandleFunc("/blocks/{id:[0-9a-fA-F]{64}}", s.blockByID).Methods(http.MethodGet)
	r.HandleFunc("/blocks/number/{number:[0-9]+}", s.blockByNumber).Methods(http.MethodGet)
	r.HandleFunc("/net_info", s.netInfo).Methods(http.MethodGet)
	return r
}

func (s *Server) live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (s *Server) submitTxns(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<20)).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if len(req.Txns) == 0 {
		s.errorResponse(w, http.StatusBadRequest, "no transactions")
		return
	}
	if len(req.Txns) > MaxTxnsPerRequest {
		s.errorResponse(w, http.StatusBadRequest, fmt.Sprintf("at most %d transactions can be submitted at a time", MaxTxnsPerRequest))
		return
	}

	txns := make([]*types.VerifiedTxn, len(req.Txns))
	hashes := make([]types.Hash, len(req.Txns))
	for i, t := range req.Txns {
		txns[i] = types.NewVerifiedTxn(t.Sender, t.SequenceNumber, t.ChainID, t.GasLimit, t.Payload)
		hashes[i] = txns[i].Hash
	}
	if err := s.backend.SubmitTxns(r.Context(), txns); err != nil {
		s.Logger.Error("failed to submit transactions", "error", err)
		s.errorResponse(w, http.StatusServiceUnavailable, "failed to submit transactions")
		return
	}
	s.jsonResponse(w, http.StatusAccepted, SubmitResponse{Accepted: len(txns), Hashes: hashes})
}

func (s *Server) watermarks(w http.ResponseWriter, r *http.Request) {
	wm, err := s.backend.Watermarks(r.Context())
	if err != nil {
		s.Logger.Error("failed to read watermarks", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to read watermarks")
		return
	}
	s.jsonResponse(w, http.StatusOK, wm)
}

func (s *Server) account(w http.ResponseWriter, r *http.Request) {
	var addr types.Address
	if err := addr.UnmarshalText([]byte(mux.Vars(r)["address"])); err != nil {
		s.errorResponse(w, http.StatusBadRequest, fmt.Sprintf("invalid address: %v", err))
		return
	}
	s.jsonResponse(w, http.StatusOK, s.backend.Account(addr))
}

func (s *Server) blockByID(w http.ResponseWriter, r *http.Request) {
	var id types.Hash
	if err := id.UnmarshalText([]byte(mux.Vars(r)["id"])); err != nil {
		s.errorResponse(w, http.StatusBadRequest, fmt.Sprintf("invalid block id: %v", err))
		return
	}
	info, err := s.backend.BlockByID(r.Context(), id)
	s.blockResponse(w, info, err, id.String())
}

func (s *Server) blockByNumber(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.ParseUint(mux.Vars(r)["number"], 10, 64)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, fmt.Sprintf("invalid block number: %v", err))
		return
	}
	info, err := s.backend.BlockByNumber(r.Context(), number)
	s.blockResponse(w, info, err, strconv.FormatUint(number, 10))
}

func (s *Server) blockResponse(w http.ResponseWriter, info *BlockInfo, err error, ref string) {
	switch {
	case errors.Is(err, ErrNotFound):
		s.errorResponse(w, http.StatusNotFound, fmt.Sprintf("block %s not found", ref))
	case err != nil:
		s.Logger.Error("failed to look up block", "block", ref, "error", err)
		s.errorResponse(w, http.StatusInternalServerError, fmt.Sprintf("failed to look up block %s", ref))
	default:
		s.jsonResponse(w, http.StatusOK, info)
	}
}

func (s *Server) netInfo(w http.ResponseWriter, _ *http.Request) {
	info, err := s.backend.NetworkInfo()
	if err != nil {
		s.errorResponse(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, info)
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *Server) errorResponse(w http.ResponseWriter, code int, msg string) {
	s.jsonResponse(w, code, errorBody{Code: code, Message: msg})
}

func (s *Server) jsonResponse(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.Logger.Error("failed to encode response", "error", err)
	}
}
