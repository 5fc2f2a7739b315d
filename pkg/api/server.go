// Package api implements the inbound Builder-API HTTP server that
// terminates validator requests and adapts them to the relay multiplexer
// core.
package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	apiv1 "github.com/attestantio/go-eth2-client/api/v1"
	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/urfave/negroni"

	relaymux "github.com/ethpandaops/relaymux/pkg/mux"
)

// Core is the narrow view of the relay multiplexer the HTTP layer drives.
type Core interface {
	RegisterValidators(ctx context.Context, registrations []*apiv1.SignedValidatorRegistration) error
	FetchBestBid(ctx context.Context, req relaymux.AuctionRequest) (relaymux.BuilderBid, error)
	OpenBid(ctx context.Context, block relaymux.BlindedBlock) (relaymux.AuctionContents, error)
}

// Server is the Builder-API HTTP server proposers speak to.
type Server struct {
	core   Core
	log    logrus.FieldLogger
	router *mux.Router
	server *http.Server
}

// NewServer constructs a Server bound to core, ready to Start.
func NewServer(core Core, log logrus.FieldLogger) *Server {
	s := &Server{
		core:   core,
		log:    log.WithField("component", "builder-api"),
		router: mux.NewRouter(),
	}

	s.registerRoutes()

	return s
}

// Handler returns the HTTP handler, exposed for tests.
func (s *Server) Handler() http.Handler {
	n := negroni.New()
	n.Use(negroni.NewRecovery())
	n.UseHandler(s.router)

	return n
}

func (s *Server) registerRoutes() {
	builderAPI := s.router.PathPrefix("/eth/v1/builder").Subrouter()
	builderAPI.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	builderAPI.HandleFunc("/validators", s.handleRegisterValidators).Methods(http.MethodPost)
	builderAPI.HandleFunc("/header/{slot}/{parent_hash}/{pubkey}", s.handleFetchBestBid).Methods(http.MethodGet)
	builderAPI.HandleFunc("/blinded_blocks", s.handleOpenBid).Methods(http.MethodPost)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleRegisterValidators(w http.ResponseWriter, r *http.Request) {
	log := s.log.WithField("path", "/eth/v1/builder/validators")

	var regs []*apiv1.SignedValidatorRegistration
	if err := json.NewDecoder(r.Body).Decode(&regs); err != nil {
		log.WithError(err).Warn("invalid JSON body")
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())

		return
	}

	if err := s.core.RegisterValidators(r.Context(), regs); err != nil {
		log.WithError(err).Warn("registration failed against every relay")
		writeError(w, http.StatusBadRequest, err.Error())

		return
	}

	log.WithField("count", len(regs)).Info("validator registrations accepted")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleFetchBestBid(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	log := s.log.WithFields(logrus.Fields{
		"path": "/eth/v1/builder/header",
		"slot": vars["slot"],
	})

	slotU64, err := strconv.ParseUint(vars["slot"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid slot: must be a number")
		return
	}

	parentHash, err := decodeHash32(vars["parent_hash"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid parent_hash: "+err.Error())
		return
	}

	pubkey, err := decodePubkey(vars["pubkey"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pubkey: "+err.Error())
		return
	}

	req := relaymux.AuctionRequest{
		Slot:           phase0.Slot(slotU64),
		ParentHash:     parentHash,
		ProposerPubkey: pubkey,
	}

	bid, err := s.core.FetchBestBid(r.Context(), req)
	if err != nil {
		if errors.Is(err, relaymux.ErrNoBids) {
			log.Info("no bids available for slot")
			w.WriteHeader(http.StatusNoContent)

			return
		}

		log.WithError(err).Warn("fetch best bid failed")
		writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	body, err := bid.MarshalJSON()
	if err != nil {
		log.WithError(err).Error("failed to encode winning bid")
		writeError(w, http.StatusInternalServerError, "failed to encode bid")

		return
	}

	log.WithFields(logrus.Fields{
		"block_hash": bid.BlockHash().String(),
		"value":      bid.Value().String(),
	}).Info("delivered best bid")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleOpenBid(w http.ResponseWriter, r *http.Request) {
	log := s.log.WithField("path", "/eth/v1/builder/blinded_blocks")

	consensusVersion := r.Header.Get("Eth-Consensus-Version")
	if consensusVersion == "" {
		writeError(w, http.StatusBadRequest, "missing Eth-Consensus-Version header")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	block, err := decodeBlindedBlock(consensusVersion, body)
	if err != nil {
		log.WithError(err).Warn("failed to decode blinded block")
		writeError(w, http.StatusBadRequest, err.Error())

		return
	}

	log = log.WithFields(logrus.Fields{
		"slot":       block.Slot(),
		"block_hash": block.BlockHash().String(),
	})

	contents, err := s.core.OpenBid(r.Context(), block)
	if err != nil {
		var missingPayload *relaymux.ErrMissingPayload

		switch {
		case errors.Is(err, relaymux.ErrMissingOpenBid):
			log.WithError(err).Warn("no outstanding auction for block")
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &missingPayload):
			log.WithError(err).Error("no relay returned the committed payload")
			writeError(w, http.StatusInternalServerError, err.Error())
		default:
			log.WithError(err).Error("open bid failed")
			writeError(w, http.StatusInternalServerError, err.Error())
		}

		return
	}

	respBody, err := contents.MarshalJSON()
	if err != nil {
		log.WithError(err).Error("failed to encode payload")
		writeError(w, http.StatusInternalServerError, "failed to encode payload")

		return
	}

	log.Info("delivered unblinded payload")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(respBody)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"code": code, "message": message})
}

func decodeHash32(hexStr string) (phase0.Hash32, error) {
	var hash phase0.Hash32

	decoded, err := hex.DecodeString(strings.TrimPrefix(hexStr, "0x"))
	if err != nil || len(decoded) != len(hash) {
		return hash, fmt.Errorf("must be %d bytes hex", len(hash))
	}

	copy(hash[:], decoded)

	return hash, nil
}

func decodePubkey(hexStr string) (phase0.BLSPubKey, error) {
	var pubkey phase0.BLSPubKey

	decoded, err := hex.DecodeString(strings.TrimPrefix(hexStr, "0x"))
	if err != nil || len(decoded) != len(pubkey) {
		return pubkey, fmt.Errorf("must be %d bytes hex", len(pubkey))
	}

	copy(pubkey[:], decoded)

	return pubkey, nil
}

// Start begins serving on addr. It blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.log.WithField("addr", addr).Info("starting builder API server")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	return s.server.Shutdown(ctx)
}
