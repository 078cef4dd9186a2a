package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"codeberg.org/boneclub/gammon"
	"codeberg.org/boneclub/gammon/pkg/store"
	"github.com/gorilla/mux"
)

// TokenHeader carries the seat token of REST requests.
const TokenHeader = "X-Seat-Token"

const leaderboardSize = 100

// CreateRequest is the body of a session creation request.
type CreateRequest struct {
	Name   string
	Points int
}

// JoinRequest is the body of a join request. Registered players provide their
// password, guests leave it empty.
type JoinRequest struct {
	Name     string
	Password string `json:",omitempty"`
	Color    gammon.Color
}

// JoinResponse is returned to a player who joined a session. The token must be sent
// with every action of the player.
type JoinResponse struct {
	Color   gammon.Color
	Token   string
	Session *store.Session
}

// ActionRequest submits an action based on the session version the client has seen.
type ActionRequest struct {
	Version int64
	Action  gammon.Action
}

// ErrorResponse describes a failed request.
type ErrorResponse struct {
	Error string
}

// ListenWeb serves the REST API and WebSocket connections on address.
func (s *server) ListenWeb(address string) {
	log.Printf("Listening for HTTP and WebSocket connections on %s...", address)

	err := http.ListenAndServe(address, s.Handler())
	log.Fatalf("failed to listen on %s: %s", address, err)
}

func (s *server) addCORSHeader(f func(http.ResponseWriter, *http.Request)) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		f(w, r)
	}
}

// Handler returns the HTTP handler of the server.
func (s *server) Handler() http.Handler {
	m := mux.NewRouter()
	handle := func(path string, f func(http.ResponseWriter, *http.Request)) *mux.Route {
		return m.HandleFunc(path, s.addCORSHeader(f))
	}

	handle("/api/games", s.handleListSessions).Methods(http.MethodGet)
	handle("/api/games", s.handleCreateSession).Methods(http.MethodPost)
	handle("/api/games/{id}", s.handleGetSession).Methods(http.MethodGet)
	handle("/api/games/{id}", s.handleDeleteSession).Methods(http.MethodDelete)
	handle("/api/games/{id}/join", s.handleJoinSession).Methods(http.MethodPost)
	handle("/api/games/{id}/leave", s.handleLeaveSession).Methods(http.MethodPost)
	handle("/api/games/{id}/actions", s.handleSubmitAction).Methods(http.MethodPost)
	handle("/api/games/{id}/replay", s.handleReplay).Methods(http.MethodGet)
	handle("/leaderboard.json", s.handleLeaderboard)
	handle("/stats.json", s.handleStats)
	handle("/", s.handleWebSocket)
	return m
}

func (s *server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	const bufferSize = 8
	commands := make(chan []byte, bufferSize)
	events := make(chan []byte, bufferSize)

	wsClient := newWebSocketClient(r, w, s.hashIP(r.RemoteAddr), commands, events, s.verbose)
	if wsClient == nil {
		return
	}

	c := s.newClient(commands, wsClient)
	s.handleClient(c)
}

func errorStatus(err error) int {
	var rejected *RejectedError
	var invalid requestError
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrWrongSeat), errors.Is(err, ErrSeatTaken), errors.Is(err, ErrSessionFull), errors.Is(err, store.ErrInvalidLogin):
		return http.StatusForbidden
	case errors.As(err, &rejected), errors.As(err, &invalid), errors.Is(err, gammon.ErrGameOver):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	buf, err := json.Marshal(v)
	if err != nil {
		log.Printf("failed to marshal %+v: %s", v, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf)
}

func writeError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("request failed: %s", err)
	}
	writeJSON(w, status, &ErrorResponse{Error: err.Error()})
}

func decodeRequest(w http.ResponseWriter, r *http.Request, v interface{}) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(v)
	if err != nil {
		return badRequest("invalid request: %s", err)
	}
	return nil
}

func (s *server) cachedListings() []byte {
	s.listingsCacheLock.Lock()
	defer s.listingsCacheLock.Unlock()

	if !s.listingsCacheTime.IsZero() && time.Since(s.listingsCacheTime) < 5*time.Second {
		return s.listingsCache
	}

	sessions, err := s.store.Active(context.Background())
	if err != nil {
		log.Printf("failed to list sessions: %s", err)
		return []byte("[]")
	}

	var games []gammon.GameListing
	for _, sess := range sessions {
		if sess.Game.Completed() {
			continue
		}
		games = append(games, listing(sess))
	}

	s.listingsCacheTime = time.Now()
	if len(games) == 0 {
		s.listingsCache = []byte("[]")
		return s.listingsCache
	}
	s.listingsCache, err = json.Marshal(games)
	if err != nil {
		log.Fatalf("failed to marshal %+v: %s", games, err)
	}
	return s.listingsCache
}

func (s *server) invalidateListings() {
	s.listingsCacheLock.Lock()
	defer s.listingsCacheLock.Unlock()

	s.listingsCacheTime = time.Time{}
}

func (s *server) cachedLeaderboard() []byte {
	s.leaderboardCacheLock.Lock()
	defer s.leaderboardCacheLock.Unlock()

	if !s.leaderboardCacheTime.IsZero() && time.Since(s.leaderboardCacheTime) < 5*time.Minute {
		return s.leaderboardCache
	}

	accounts, err := s.accounts.Leaderboard(context.Background(), leaderboardSize)
	if err != nil {
		log.Printf("failed to get leaderboard: %s", err)
		return []byte("[]")
	}
	s.leaderboardCacheTime = time.Now()
	if len(accounts) == 0 {
		s.leaderboardCache = []byte("[]")
		return s.leaderboardCache
	}
	s.leaderboardCache, err = json.Marshal(accounts)
	if err != nil {
		log.Fatalf("failed to marshal %+v: %s", accounts, err)
	}
	return s.leaderboardCache
}

func (s *server) cachedStats() []byte {
	s.statsCacheLock.Lock()
	defer s.statsCacheLock.Unlock()

	if !s.statsCacheTime.IsZero() && time.Since(s.statsCacheTime) < 5*time.Minute {
		return s.statsCache
	}

	stats, err := s.accounts.DailyStats(context.Background(), s.tz)
	if err != nil {
		log.Printf("failed to fetch server statistics: %s", err)
		return []byte("[]")
	}
	s.statsCacheTime = time.Now()
	if len(stats) == 0 {
		s.statsCache = []byte("[]")
		return s.statsCache
	}
	s.statsCache, err = json.Marshal(stats)
	if err != nil {
		log.Fatalf("failed to marshal %+v: %s", stats, err)
	}
	return s.statsCache
}

func (s *server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(s.cachedListings())
}

func (s *server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	req := &CreateRequest{}
	err := decodeRequest(w, r, req)
	if err != nil {
		writeError(w, err)
		return
	}

	sess, err := s.createSession(r.Context(), req.Name, req.Points)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view(sess))
}

func (s *server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view(sess))
}

func (s *server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	err := s.deleteSession(r.Context(), mux.Vars(r)["id"], r.Header.Get(TokenHeader))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleJoinSession(w http.ResponseWriter, r *http.Request) {
	req := &JoinRequest{}
	err := decodeRequest(w, r, req)
	if err != nil {
		writeError(w, err)
		return
	}

	name, account, err := s.identify(r, req.Name, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	sess, c, token, err := s.joinSession(r.Context(), mux.Vars(r)["id"], name, account, req.Color)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &JoinResponse{
		Color:   c,
		Token:   token,
		Session: view(sess),
	})
}

// identify returns the name and account of a player. Guests are prefixed.
func (s *server) identify(r *http.Request, name string, password string) (string, int, error) {
	if password != "" {
		a, err := s.accounts.Login(r.Context(), name, password)
		if err != nil {
			return "", 0, err
		}
		return a.Name, a.ID, nil
	}
	if err := store.ValidateName(strings.TrimPrefix(strings.ToLower(name), "guest_")); err != nil {
		return "", 0, requestError{err}
	}
	return guestName(name), 0, nil
}

func (s *server) handleLeaveSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.leaveSession(r.Context(), mux.Vars(r)["id"], r.Header.Get(TokenHeader))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view(sess))
}

func (s *server) handleSubmitAction(w http.ResponseWriter, r *http.Request) {
	req := &ActionRequest{}
	err := decodeRequest(w, r, req)
	if err != nil {
		writeError(w, err)
		return
	}

	sess, err := s.act(r.Context(), mux.Vars(r)["id"], r.Header.Get(TokenHeader), req.Version, req.Action)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view(sess))
}

func (s *server) handleReplay(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("Content-Disposition", `attachment; filename="`+strconv.FormatInt(sess.Created.Unix(), 10)+`_`+id+`.match"`)
	for _, line := range sess.Game.Log {
		w.Write([]byte(line + "\n"))
	}
}

func (s *server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(s.cachedLeaderboard())
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(s.cachedStats())
}
