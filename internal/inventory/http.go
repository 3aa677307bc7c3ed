package inventory

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"MiniInventory/pkg/kit"
)

const (
	allowCollection = "GET, POST"
	allowResource   = "GET, PUT, DELETE"

	msgNotFound    = "Item no encontrado"
	msgBadJSON     = "JSON inválido"
	msgServerError = "error del servidor"
	msgTimeout     = "tiempo de espera agotado"
	msgNotReady    = "no disponible"

	readyTimeout = 1 * time.Second
)

type Server struct {
	Store  Store
	Log    *zap.Logger
	Events EventPublisher
	// NewID defaults to a random UUID.
	NewID func() string

	metrics *storeMetrics
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.ready)

	r.HandleFunc("/api/items", s.collection)
	r.HandleFunc("/api/items/{id}", s.resource)

	return r
}

func (s *Server) collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.list(w, r)
	case http.MethodPost:
		s.create(w, r)
	default:
		kit.WriteMethodNotAllowed(w, r, allowCollection)
	}
}

func (s *Server) resource(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.get(w, r)
	case http.MethodPut:
		s.update(w, r)
	case http.MethodDelete:
		s.delete(w, r)
	default:
		kit.WriteMethodNotAllowed(w, r, allowResource)
	}
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := s.Store.Ping(ctx); err != nil {
		s.logger().Warn("readyz failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusServiceUnavailable, msgNotReady, nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	items, err := s.Store.List(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err, "list items failed", "")
		return
	}
	kit.WriteJSON(w, http.StatusOK, items)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	in, err := s.readInput(w, r)
	if err != nil {
		s.writeInputError(w, r, err)
		return
	}

	it := in.toItem(s.newID())
	if err := s.Store.Create(r.Context(), it); err != nil {
		s.writeStoreError(w, r, err, "create item failed", it.ID)
		return
	}

	s.committed(r.Context(), newEvent(EventItemCreated, it.ID, &it))
	kit.WriteJSON(w, http.StatusCreated, it)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	it, found, err := s.Store.Get(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err, "get item failed", id)
		return
	}
	if !found {
		writeNotFound(w, r, id)
		return
	}
	kit.WriteJSON(w, http.StatusOK, it)
}

// update replaces every editable field; an id in the body is ignored.
func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	in, err := s.readInput(w, r)
	if err != nil {
		s.writeInputError(w, r, err)
		return
	}

	it := in.toItem(id)
	found, err := s.Store.Update(r.Context(), it)
	if err != nil {
		s.writeStoreError(w, r, err, "update item failed", id)
		return
	}
	if !found {
		writeNotFound(w, r, id)
		return
	}

	s.committed(r.Context(), newEvent(EventItemUpdated, id, &it))
	kit.WriteJSON(w, http.StatusOK, it)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	found, err := s.Store.Delete(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err, "delete item failed", id)
		return
	}
	if !found {
		writeNotFound(w, r, id)
		return
	}

	s.committed(r.Context(), newEvent(EventItemDeleted, id, nil))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) readInput(w http.ResponseWriter, r *http.Request) (itemInput, error) {
	req, err := decodeItemRequest(w, r)
	if err != nil {
		return itemInput{}, err
	}
	return parseItemRequest(req)
}

// committed records a successful mutation. A failed publish never fails the request.
func (s *Server) committed(ctx context.Context, e Event) {
	s.metrics.observe(e.Type)

	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, e); err != nil {
		s.logger().Warn("publish item event failed",
			zap.Error(err),
			zap.String("type", string(e.Type)),
			zap.String("id", e.ItemID),
		)
	}
}

func (s *Server) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Server) writeInputError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		var details any
		if verr.Field != "" {
			details = map[string]any{"field": verr.Field}
		}
		kit.WriteError(w, r, http.StatusBadRequest, verr.Message, details)
	case errors.Is(err, errBadJSON):
		kit.WriteError(w, r, http.StatusBadRequest, msgBadJSON, nil)
	default:
		kit.WriteError(w, r, http.StatusBadRequest, msgInvalidPayload, nil)
	}
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error, what, id string) {
	switch {
	case errors.Is(err, ErrDuplicateID):
		kit.WriteError(w, r, http.StatusConflict, "el id ya existe", map[string]any{"id": id})
	case isTimeoutErr(err):
		kit.WriteError(w, r, http.StatusGatewayTimeout, msgTimeout, nil)
	default:
		s.logger().Error(what, zap.Error(err), zap.String("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, msgServerError, nil)
	}
}

func writeNotFound(w http.ResponseWriter, r *http.Request, id string) {
	kit.WriteError(w, r, http.StatusNotFound, msgNotFound, map[string]any{"id": id})
}

func isTimeoutErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
