package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/bigbes/tg-identity-store/internal/metrics"
	"github.com/bigbes/tg-identity-store/internal/store"
)

type peerResponse struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	PeerType   int    `json:"peer_type"`
	PeerID     int64  `json:"peer_id"`
	AccessHash *int64 `json:"access_hash,omitempty"`
}

type upsertPeerRequest struct {
	Username   string `json:"username"`
	PeerType   int    `json:"peer_type"`
	PeerID     int64  `json:"peer_id"`
	AccessHash *int64 `json:"access_hash"`
}

type sessionResponse struct {
	ID          int64  `json:"id"`
	PhoneNumber string `json:"phone_number"`
	Session     []byte `json:"session"` // base64 in JSON
}

type upsertSessionRequest struct {
	PhoneNumber string `json:"phone_number"`
	Session     []byte `json:"session"`
}

type chatResponse struct {
	ID     int64 `json:"id"`
	ChatID int64 `json:"chat_id"`
}

type upsertChatRequest struct {
	ChatID int64 `json:"chat_id"`
}

// handlePeers serves GET (list, or single by ?id=) and POST (upsert)
// on /api/peers.
func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if idParam := r.URL.Query().Get("id"); idParam != "" {
			id, err := strconv.ParseInt(idParam, 10, 64)
			if err != nil {
				writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "invalid id"})
				return
			}
			p, err := s.store.GetPeerByID(r.Context(), id)
			if err != nil {
				writeStoreError(w, r, err)
				return
			}
			writeJSON(w, r, http.StatusOK, toPeerResponse(p))
			return
		}

		peers, err := s.store.ListPeers(r.Context())
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		out := make([]peerResponse, 0, len(peers))
		for _, p := range peers {
			out = append(out, toPeerResponse(p))
		}
		writeJSON(w, r, http.StatusOK, out)

	case http.MethodPost:
		var req upsertPeerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if req.Username == "" {
			writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "username is required"})
			return
		}
		p, err := s.store.UpsertPeer(r.Context(), req.Username, req.PeerType, req.PeerID, req.AccessHash)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, toPeerResponse(p))

	default:
		writeJSON(w, r, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (s *Server) handleGetPeer(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimPrefix(r.URL.Path, "/api/peers/")
	if username == "" {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "username is required"})
		return
	}
	p, err := s.store.GetPeerByUsername(r.Context(), username)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toPeerResponse(p))
}

func (s *Server) handleDeletePeer(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimPrefix(r.URL.Path, "/api/peers/")
	if username == "" {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "username is required"})
		return
	}
	if err := s.store.DeletePeer(r.Context(), username); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleSessions serves GET (list) and POST (upsert) on /api/sessions.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sessions, err := s.store.ListSessions(r.Context())
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		out := make([]sessionResponse, 0, len(sessions))
		for _, sess := range sessions {
			out = append(out, sessionResponse{ID: sess.ID, PhoneNumber: sess.PhoneNumber, Session: sess.Blob})
		}
		writeJSON(w, r, http.StatusOK, out)

	case http.MethodPost:
		var req upsertSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if req.PhoneNumber == "" {
			writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "phone_number is required"})
			return
		}
		if len(req.Session) == 0 {
			writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "session is required"})
			return
		}
		sess, err := s.store.UpsertSession(r.Context(), req.PhoneNumber, req.Session)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, sessionResponse{ID: sess.ID, PhoneNumber: sess.PhoneNumber, Session: sess.Blob})

	default:
		writeJSON(w, r, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	phone := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	if phone == "" {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "phone number is required"})
		return
	}
	sess, err := s.store.GetSession(r.Context(), phone)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, sessionResponse{ID: sess.ID, PhoneNumber: sess.PhoneNumber, Session: sess.Blob})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	phone := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	if phone == "" {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "phone number is required"})
		return
	}
	if err := s.store.DeleteSession(r.Context(), phone); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleChats serves GET (list) and POST (track) on /api/chats.
func (s *Server) handleChats(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		chats, err := s.store.ListChats(r.Context())
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		out := make([]chatResponse, 0, len(chats))
		for _, c := range chats {
			out = append(out, chatResponse{ID: c.ID, ChatID: c.ChatID})
		}
		writeJSON(w, r, http.StatusOK, out)

	case http.MethodPost:
		var req upsertChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		c, err := s.store.UpsertChat(r.Context(), req.ChatID)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, chatResponse{ID: c.ID, ChatID: c.ChatID})

	default:
		writeJSON(w, r, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDFromPath(w, r)
	if !ok {
		return
	}
	c, err := s.store.GetChat(r.Context(), chatID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, chatResponse{ID: c.ID, ChatID: c.ChatID})
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDFromPath(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteChat(r.Context(), chatID); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(); err != nil {
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func chatIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimPrefix(r.URL.Path, "/api/chats/")
	chatID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "invalid chat id"})
		return 0, false
	}
	return chatID, true
}

func toPeerResponse(p store.Peer) peerResponse {
	return peerResponse{
		ID:         p.ID,
		Username:   p.Username,
		PeerType:   p.PeerType,
		PeerID:     p.PeerID,
		AccessHash: p.AccessHash,
	}
}

// writeStoreError maps the store's error taxonomy onto HTTP status codes.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, r, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, store.ErrDuplicateKey):
		writeJSON(w, r, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, store.ErrConstraintViolation):
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, store.ErrStorageUnavailable):
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	metrics.HTTPRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
