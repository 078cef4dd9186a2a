package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"codeberg.org/boneclub/gammon"
	"codeberg.org/boneclub/gammon/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func request(t *testing.T, method string, url string, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set(TokenHeader, token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestWebSessionLifecycle(t *testing.T) {
	s := newTestServer(t, 5, 3)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp := request(t, http.MethodPost, srv.URL+"/api/games", "", &CreateRequest{Name: "Test", Points: 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = request(t, http.MethodGet, srv.URL+"/api/games/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = request(t, http.MethodPost, srv.URL+"/api/games", "", &CreateRequest{Name: "Test", Points: 3})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := &store.Session{}
	decodeResponse(t, resp, created)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, 3, created.Game.Points)
	gameURL := srv.URL + "/api/games/" + created.ID

	resp = request(t, http.MethodPost, gameURL+"/join", "", &JoinRequest{Name: "alice"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	white := &JoinResponse{}
	decodeResponse(t, resp, white)
	assert.Equal(t, gammon.White, white.Color)
	assert.NotEmpty(t, white.Token)
	assert.Equal(t, "Guest_alice", white.Session.Seats[gammon.White].Name)
	assert.Empty(t, white.Session.Seats[gammon.White].TokenHash)

	resp = request(t, http.MethodPost, gameURL+"/join", "", &JoinRequest{Name: "alice"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = request(t, http.MethodPost, gameURL+"/join", "", &JoinRequest{Name: "bob"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	black := &JoinResponse{}
	decodeResponse(t, resp, black)
	assert.Equal(t, gammon.Black, black.Color)

	resp = request(t, http.MethodGet, srv.URL+"/api/games", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listings []gammon.GameListing
	decodeResponse(t, resp, &listings)
	require.Len(t, listings, 1)
	assert.Equal(t, created.ID, listings[0].ID)
	assert.Equal(t, 2, listings[0].Players)

	resp = request(t, http.MethodPost, gameURL+"/actions", "", &ActionRequest{Action: gammon.Action{Type: gammon.ActionOpening}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = request(t, http.MethodPost, gameURL+"/actions", white.Token, &ActionRequest{Version: black.Session.Version, Action: gammon.Action{Type: gammon.ActionOpening}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sess := &store.Session{}
	decodeResponse(t, resp, sess)
	assert.Equal(t, black.Session.Version+1, sess.Version)
	assert.Equal(t, int8(5), sess.Game.Opening[gammon.White])

	// Given Black has only seen the session before White rolled
	// When Black submits an action
	// Then the request conflicts
	resp = request(t, http.MethodPost, gameURL+"/actions", black.Token, &ActionRequest{Version: black.Session.Version, Action: gammon.Action{Type: gammon.ActionOpening}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = request(t, http.MethodPost, gameURL+"/actions", black.Token, &ActionRequest{Version: sess.Version, Action: gammon.Action{Type: gammon.ActionRoll}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	failure := &ErrorResponse{}
	decodeResponse(t, resp, failure)
	assert.Contains(t, failure.Error, "roll rejected")

	resp = request(t, http.MethodPost, gameURL+"/actions", black.Token, &ActionRequest{Version: sess.Version, Action: gammon.Action{Type: gammon.ActionOpening}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = request(t, http.MethodGet, gameURL+"/replay", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	replay, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "o 5-3 1\n", string(replay))

	resp = request(t, http.MethodDelete, gameURL, "", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = request(t, http.MethodDelete, gameURL, white.Token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = request(t, http.MethodGet, gameURL, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebLeave(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	id, white, _ := seatTwo(t, s, 1)

	resp := request(t, http.MethodPost, srv.URL+"/api/games/"+id+"/leave", white, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sess := &store.Session{}
	decodeResponse(t, resp, sess)
	assert.Empty(t, sess.Seats[gammon.White].Name)
	assert.Equal(t, "Guest_bob", sess.Seats[gammon.Black].Name)
}

func TestWebInvalidRequest(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/games", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestWebLeaderboard(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp := request(t, http.MethodGet, srv.URL+"/leaderboard.json", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))
}

func TestWebStats(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp := request(t, http.MethodGet, srv.URL+"/stats.json", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))
}
