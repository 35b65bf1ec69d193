package httpapi

import (
	"bytes"
	"context"
	"errors"
	"log"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/BrandonDHaskell/cardseq/internal/cardseq/export"
	"github.com/BrandonDHaskell/cardseq/internal/cardseq/service"
	"github.com/BrandonDHaskell/cardseq/internal/cardseq/source"
	"github.com/BrandonDHaskell/cardseq/internal/cardseq/store"
	"github.com/BrandonDHaskell/cardseq/internal/cardseq/types"
	"github.com/BrandonDHaskell/cardseq/internal/cardseq/validator"
	"github.com/BrandonDHaskell/cardseq/internal/ingest"
)

type Dependencies struct {
	Logger  *log.Logger
	Addr    string
	Session *service.Session

	// ListPorts enumerates serial devices. Defaults to ingest.ListPorts.
	ListPorts func() ([]string, error)
}

type Server struct {
	httpServer *http.Server
	logger     *log.Logger
	mux        *http.ServeMux
	session    *service.Session
	listPorts  func() ([]string, error)
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:    d.Logger,
		mux:       mux,
		session:   d.Session,
		listPorts: d.ListPorts,
	}
	if s.listPorts == nil {
		s.listPorts = ingest.ListPorts
	}

	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("POST /v1/sequence", s.handleLoadSequence)
	mux.HandleFunc("DELETE /v1/sequence", s.handleClearSequence)
	mux.HandleFunc("GET /v1/sequences/{id}/cards", s.handleSequenceCards)
	mux.HandleFunc("POST /v1/cursor", s.handleCursor)
	mux.HandleFunc("POST /v1/scan", s.handleScan)
	mux.HandleFunc("POST /v1/listen", s.handleStartListening)
	mux.HandleFunc("DELETE /v1/listen", s.handleStopListening)
	mux.HandleFunc("GET /v1/ports", s.handlePorts)
	mux.HandleFunc("GET /v1/log", s.handleLog)
	mux.HandleFunc("DELETE /v1/log", s.handleClearLog)
	mux.HandleFunc("GET /v1/sessions/{id}/log", s.handleSessionLog)

	handler := loggingMiddleware(d.Logger, mux)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ── Status and sequence ─────────────────────────────────────────────────────

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleLoadSequence(w http.ResponseWriter, r *http.Request) {
	var req types.LoadSequenceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.session.LoadFile(r.Context(), req.Path); err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyPath):
			writeError(w, http.StatusBadRequest, "invalid_path", err.Error())
		case errors.Is(err, source.ErrSequenceLoad):
			writeError(w, http.StatusUnprocessableEntity, "sequence_load_error", err.Error())
		default:
			s.logger.Printf("load sequence error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleClearSequence(w http.ResponseWriter, r *http.Request) {
	s.session.ClearSequence()
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleSequenceCards(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	cards, err := s.session.SequenceCards(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrSequenceNotFound) {
			writeError(w, http.StatusNotFound, "sequence_not_found", err.Error())
			return
		}
		s.logger.Printf("sequence cards error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	writeJSON(w, http.StatusOK, types.CardsResponse{SequenceID: id, Cards: cards})
}

func (s *Server) handleCursor(w http.ResponseWriter, r *http.Request) {
	var req types.CursorRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var err error
	switch {
	case req.Index != nil:
		err = s.session.SetStartCard(*req.Index)
	case req.Identifier != "":
		_, err = s.session.SetStartCardByIdentifier(req.Identifier)
	default:
		writeError(w, http.StatusBadRequest, "bad_request", "index or identifier is required")
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, validator.ErrOutOfRange):
			writeError(w, http.StatusUnprocessableEntity, "out_of_range", err.Error())
		case errors.Is(err, validator.ErrUnknownIdentifier):
			writeError(w, http.StatusUnprocessableEntity, "unknown_identifier", err.Error())
		default:
			s.logger.Printf("cursor error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

// ── Scans ───────────────────────────────────────────────────────────────────

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req types.ScanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.session.Scan(req.Code))
}

func (s *Server) handleStartListening(w http.ResponseWriter, r *http.Request) {
	var req types.ListenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.session.StartListening(req.Port, req.BaudRate); err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyPort):
			writeError(w, http.StatusBadRequest, "invalid_port", err.Error())
		case errors.Is(err, ingest.ErrAlreadyRunning):
			writeError(w, http.StatusConflict, "already_listening", err.Error())
		case errors.Is(err, ingest.ErrPortOpen):
			writeError(w, http.StatusBadGateway, "port_open_error", err.Error())
		default:
			s.logger.Printf("listen error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleStopListening(w http.ResponseWriter, r *http.Request) {
	s.session.StopListening()
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handlePorts(w http.ResponseWriter, r *http.Request) {
	ports, err := s.listPorts()
	if err != nil {
		s.logger.Printf("list ports error: %v", err)
		writeError(w, http.StatusInternalServerError, "list_ports_error", err.Error())
		return
	}
	if ports == nil {
		ports = []string{}
	}
	writeJSON(w, http.StatusOK, types.PortsResponse{Ports: ports})
}

// ── Audit log ───────────────────────────────────────────────────────────────

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	s.writeLog(w, r, s.session.ID(), s.session.Entries())
}

func (s *Server) handleSessionLog(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	entries, err := s.session.PersistedLog(r.Context(), id)
	if err != nil {
		s.logger.Printf("session log error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	s.writeLog(w, r, id, entries)
}

func (s *Server) handleClearLog(w http.ResponseWriter, r *http.Request) {
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))

	if err := s.session.ClearLog(r.Context(), confirmed); err != nil {
		if errors.Is(err, service.ErrConfirmationRequired) {
			writeError(w, http.StatusBadRequest, "confirmation_required", "pass confirm=true to clear the log")
			return
		}
		s.logger.Printf("clear log error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

// writeLog renders entries as CSV (?format=csv), protobuf (Accept header) or
// JSON.
func (s *Server) writeLog(w http.ResponseWriter, r *http.Request, sessionID string, entries []types.LogEntry) {
	if entries == nil {
		entries = []types.LogEntry{}
	}

	switch {
	case r.URL.Query().Get("format") == "csv":
		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, entries); err != nil {
			s.logger.Printf("csv export error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
			"filename": "cardseq-" + sessionID + ".csv",
		}))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())

	case wantsProtobuf(r):
		lv, err := export.ToProto(entries)
		if err != nil {
			s.logger.Printf("proto export error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
			return
		}
		writeProto(w, http.StatusOK, lv)

	default:
		writeJSON(w, http.StatusOK, types.LogResponse{SessionID: sessionID, Entries: entries})
	}
}
