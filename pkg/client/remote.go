// Package client keeps a local view of a session in sync with a game server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"codeberg.org/boneclub/gammon"
	"codeberg.org/boneclub/gammon/pkg/store"
)

// tokenHeader carries the seat token of requests.
const tokenHeader = "X-Seat-Token"

// Remote is the authoritative copy of a session.
type Remote interface {
	// Session returns the current session record.
	Session(ctx context.Context, id string) (*store.Session, error)

	// Submit applies an action for the seat holding token. The action is refused with
	// store.ErrConflict when the session is no longer at version.
	Submit(ctx context.Context, id string, token string, version int64, a gammon.Action) (*store.Session, error)
}

// StatusError is an unexpected response from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server responded with status %d", e.Code)
	}
	return fmt.Sprintf("server responded with status %d: %s", e.Code, e.Message)
}

type createRequest struct {
	Name   string
	Points int
}

type joinRequest struct {
	Name     string
	Password string `json:",omitempty"`
	Color    gammon.Color
}

type joinResponse struct {
	Color   gammon.Color
	Token   string
	Session *store.Session
}

type actionRequest struct {
	Version int64
	Action  gammon.Action
}

type errorResponse struct {
	Error string
}

// Seat is a seat held in a session.
type Seat struct {
	Color gammon.Color
	Token string
}

// HTTPRemote is a Remote served by the REST API of a game server.
type HTTPRemote struct {
	Address string
	Client  *http.Client
}

var _ Remote = &HTTPRemote{}

// NewHTTPRemote returns a Remote for the server at address, for example
// "https://boneclub.example".
func NewHTTPRemote(address string) *HTTPRemote {
	return &HTTPRemote{
		Address: strings.TrimSuffix(address, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *HTTPRemote) do(ctx context.Context, method string, path string, token string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.Address+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(tokenHeader, token)
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return store.ErrNotFound
	case http.StatusConflict:
		return store.ErrConflict
	default:
		e := &errorResponse{}
		json.NewDecoder(resp.Body).Decode(e)
		return &StatusError{Code: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	err = json.NewDecoder(resp.Body).Decode(out)
	if err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// List returns the open sessions.
func (r *HTTPRemote) List(ctx context.Context) ([]gammon.GameListing, error) {
	var listings []gammon.GameListing
	err := r.do(ctx, http.MethodGet, "/api/games", "", nil, &listings)
	if err != nil {
		return nil, err
	}
	return listings, nil
}

// Create creates a session played to points.
func (r *HTTPRemote) Create(ctx context.Context, name string, points int) (*store.Session, error) {
	sess := &store.Session{}
	err := r.do(ctx, http.MethodPost, "/api/games", "", &createRequest{Name: name, Points: points}, sess)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Join takes a seat in a session. Guests leave password empty. When c is NoColor the
// server assigns the first free seat.
func (r *HTTPRemote) Join(ctx context.Context, id string, name string, password string, c gammon.Color) (*Seat, *store.Session, error) {
	resp := &joinResponse{}
	err := r.do(ctx, http.MethodPost, "/api/games/"+id+"/join", "", &joinRequest{Name: name, Password: password, Color: c}, resp)
	if err != nil {
		return nil, nil, err
	}
	return &Seat{Color: resp.Color, Token: resp.Token}, resp.Session, nil
}

// Leave gives up a seat. Leaving after play has begun resigns the game.
func (r *HTTPRemote) Leave(ctx context.Context, id string, token string) (*store.Session, error) {
	sess := &store.Session{}
	err := r.do(ctx, http.MethodPost, "/api/games/"+id+"/leave", token, nil, sess)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Delete removes a session.
func (r *HTTPRemote) Delete(ctx context.Context, id string, token string) error {
	return r.do(ctx, http.MethodDelete, "/api/games/"+id, token, nil, nil)
}

func (r *HTTPRemote) Session(ctx context.Context, id string) (*store.Session, error) {
	sess := &store.Session{}
	err := r.do(ctx, http.MethodGet, "/api/games/"+id, "", nil, sess)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (r *HTTPRemote) Submit(ctx context.Context, id string, token string, version int64, a gammon.Action) (*store.Session, error) {
	sess := &store.Session{}
	err := r.do(ctx, http.MethodPost, "/api/games/"+id+"/actions", token, &actionRequest{Version: version, Action: a}, sess)
	if err != nil {
		return nil, err
	}
	return sess, nil
}
