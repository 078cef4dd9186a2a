package gammon

import (
	"encoding/json"
	"fmt"
)

// events are always received FROM the server

type Event struct {
	Type   string
	Player string
}

const (
	EventTypeWelcome    = "welcome"
	EventTypeHelp       = "help"
	EventTypePing       = "ping"
	EventTypeNotice     = "notice"
	EventTypeList       = "list"
	EventTypeJoined     = "joined"
	EventTypeFailedJoin = "failedjoin"
	EventTypeLeft       = "left"
	EventTypeBoard      = "board"
	EventTypeRolled     = "rolled"
	EventTypeMoved      = "moved"
	EventTypeDoubled    = "doubled"
	EventTypeFailed     = "failed"
	EventTypeWin        = "win"
)

type EventWelcome struct {
	Event
	PlayerName string
	Clients    int
	Games      int
}

type EventHelp struct {
	Event
	Topic   string
	Message string
}

type EventPing struct {
	Event
	Message string
}

type EventNotice struct {
	Event
	Message string
}

// GameListing summarizes a session for the session list.
type GameListing struct {
	ID      string
	Name    string
	Points  int
	Players int
	Phase   Phase
}

type EventList struct {
	Event
	Games []GameListing
}

type EventJoined struct {
	Event
	GameID string
	Color  Color
	Token  string `json:",omitempty"` // Seat token. Only sent to the joining player.
}

type EventFailedJoin struct {
	Event
	Reason string
}

type EventLeft struct {
	Event
}

type EventBoard struct {
	Event
	GameState
}

type EventRolled struct {
	Event
	Roll1 int8
	Roll2 int8
}

type EventMoved struct {
	Event
	Moves []Move
}

type EventDoubled struct {
	Event
	Value int
}

// EventFailed is sent when an action is rejected.
type EventFailed struct {
	Event
	Action ActionType
	Reason string
}

type EventWin struct {
	Event
	WinType WinType
	Points  int
}

// DecodeEvent decodes a JSON formatted event.
func DecodeEvent(message []byte) (interface{}, error) {
	e := &Event{}
	err := json.Unmarshal(message, e)
	if err != nil {
		return nil, err
	}

	var ev interface{}
	switch e.Type {
	case EventTypeWelcome:
		ev = &EventWelcome{}
	case EventTypeHelp:
		ev = &EventHelp{}
	case EventTypePing:
		ev = &EventPing{}
	case EventTypeNotice:
		ev = &EventNotice{}
	case EventTypeList:
		ev = &EventList{}
	case EventTypeJoined:
		ev = &EventJoined{}
	case EventTypeFailedJoin:
		ev = &EventFailedJoin{}
	case EventTypeLeft:
		ev = &EventLeft{}
	case EventTypeBoard:
		ev = &EventBoard{}
	case EventTypeRolled:
		ev = &EventRolled{}
	case EventTypeMoved:
		ev = &EventMoved{}
	case EventTypeDoubled:
		ev = &EventDoubled{}
	case EventTypeFailed:
		ev = &EventFailed{}
	case EventTypeWin:
		ev = &EventWin{}
	default:
		return nil, fmt.Errorf("failed to decode event: unknown event type: %s", e.Type)
	}
	err = json.Unmarshal(message, ev)
	if err != nil {
		return nil, err
	}
	return ev, nil
}
