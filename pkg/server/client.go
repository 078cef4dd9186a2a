package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/boneclub/gammon"
	"codeberg.org/tslocum/gotext"
)

type serverClient struct {
	id        int
	json      bool
	name      []byte
	language  string
	accountID int // Zero for guests. -1 before login.
	connected int64
	active    int64
	lastPing  int64
	commands  chan []byte

	// Seat held in a session. Read by other goroutines when notifying a session.
	sessionID string
	color     gammon.Color
	token     string
	seatLock  sync.RWMutex

	terminating atomic.Bool
	gammon.Client
}

func (c *serverClient) sendEvent(e interface{}) {
	// JSON formatted messages.
	if c.json {
		switch ev := e.(type) {
		case *gammon.EventWelcome:
			ev.Type = gammon.EventTypeWelcome
		case *gammon.EventHelp:
			ev.Type = gammon.EventTypeHelp
		case *gammon.EventPing:
			ev.Type = gammon.EventTypePing
		case *gammon.EventNotice:
			ev.Type = gammon.EventTypeNotice
		case *gammon.EventList:
			ev.Type = gammon.EventTypeList
		case *gammon.EventJoined:
			ev.Type = gammon.EventTypeJoined
		case *gammon.EventFailedJoin:
			ev.Type = gammon.EventTypeFailedJoin
		case *gammon.EventLeft:
			ev.Type = gammon.EventTypeLeft
		case *gammon.EventBoard:
			ev.Type = gammon.EventTypeBoard
		case *gammon.EventRolled:
			ev.Type = gammon.EventTypeRolled
		case *gammon.EventMoved:
			ev.Type = gammon.EventTypeMoved
		case *gammon.EventDoubled:
			ev.Type = gammon.EventTypeDoubled
		case *gammon.EventFailed:
			ev.Type = gammon.EventTypeFailed
		case *gammon.EventWin:
			ev.Type = gammon.EventTypeWin
		default:
			log.Panicf("unknown event type %+v", ev)
		}

		buf, err := json.Marshal(e)
		if err != nil {
			panic(err)
		}
		c.Write(buf)
		return
	}

	// Human-readable messages.
	switch ev := e.(type) {
	case *gammon.EventWelcome:
		c.Write([]byte(fmt.Sprintf("welcome %s there are %d clients playing %d matches.", ev.PlayerName, ev.Clients, ev.Games)))
	case *gammon.EventHelp:
		c.Write([]byte("helpstart Help text:"))
		c.Write([]byte(fmt.Sprintf("help %s", ev.Message)))
		c.Write([]byte("helpend End of help text."))
	case *gammon.EventPing:
		c.Write([]byte(fmt.Sprintf("ping %s", ev.Message)))
	case *gammon.EventNotice:
		c.Write([]byte(fmt.Sprintf("notice %s", ev.Message)))
	case *gammon.EventList:
		c.Write([]byte("liststart Matches list:"))
		for _, g := range ev.Games {
			c.Write([]byte(fmt.Sprintf("game %s %d %d %s %s", g.ID, g.Points, g.Players, g.Phase, g.Name)))
		}
		c.Write([]byte("listend End of matches list."))
	case *gammon.EventJoined:
		if ev.Token != "" {
			c.Write([]byte(fmt.Sprintf("joined %s %s %s %s", ev.GameID, ev.Color, ev.Player, ev.Token)))
		} else {
			c.Write([]byte(fmt.Sprintf("joined %s %s %s", ev.GameID, ev.Color, ev.Player)))
		}
	case *gammon.EventFailedJoin:
		c.Write([]byte(fmt.Sprintf("failedjoin %s", ev.Reason)))
	case *gammon.EventLeft:
		c.Write([]byte(fmt.Sprintf("left %s", ev.Player)))
	case *gammon.EventRolled:
		c.Write([]byte(fmt.Sprintf("rolled %s %d %d", ev.Player, ev.Roll1, ev.Roll2)))
	case *gammon.EventMoved:
		c.Write([]byte(fmt.Sprintf("moved %s %s", ev.Player, gammon.FormatAndFlipMoves(ev.Moves, c.viewer()))))
	case *gammon.EventDoubled:
		c.Write([]byte(fmt.Sprintf("doubled %s %d", ev.Player, ev.Value)))
	case *gammon.EventFailed:
		c.Write([]byte(fmt.Sprintf("failed%s %s", ev.Action, ev.Reason)))
	case *gammon.EventWin:
		if ev.Points != 0 {
			c.Write([]byte(fmt.Sprintf("win %s wins %d points!", ev.Player, ev.Points)))
		} else {
			c.Write([]byte(fmt.Sprintf("win %s wins!", ev.Player)))
		}
	case *gammon.EventBoard:
		for _, line := range bytes.Split(ev.BoardState(ev.Color, ev.Players), []byte("\n")) {
			if len(line) == 0 {
				continue
			}
			c.sendNotice(string(line))
		}
	default:
		log.Printf("warning: skipped sending unknown event to non-json client: %+v", ev)
	}
}

func (c *serverClient) sendNotice(message string) {
	c.sendEvent(&gammon.EventNotice{
		Message: message,
	})
}

// sendNoticef sends a notice translated into the client's language.
func (c *serverClient) sendNoticef(format string, vars ...interface{}) {
	c.sendNotice(gotext.GetD(c.language, format, vars...))
}

func (c *serverClient) label() string {
	if len(c.name) > 0 {
		return string(c.name)
	}
	return strconv.Itoa(c.id)
}

// seat returns the session viewed by the client and the seat it holds there. A
// spectator has no color or token.
func (c *serverClient) seat() (id string, color gammon.Color, token string) {
	c.seatLock.RLock()
	defer c.seatLock.RUnlock()
	return c.sessionID, c.color, c.token
}

func (c *serverClient) session() string {
	id, _, _ := c.seat()
	return id
}

func (c *serverClient) viewer() gammon.Color {
	_, color, _ := c.seat()
	return color
}

// seated reports whether the client holds a seat in a session.
func (c *serverClient) seated() bool {
	id, _, token := c.seat()
	return id != "" && token != ""
}

func (c *serverClient) setSeat(id string, color gammon.Color, token string) {
	c.seatLock.Lock()
	defer c.seatLock.Unlock()
	c.sessionID, c.color, c.token = id, color, token
}

func (c *serverClient) leaveSeat() {
	c.setSeat("", gammon.NoColor, "")
}

func (c *serverClient) Terminate(reason string) {
	if c.Terminated() || !c.terminating.CompareAndSwap(false, true) {
		return
	}

	var extra string
	if reason != "" {
		extra = ": " + reason
	}
	c.sendNotice("Connection terminated" + extra)

	go func() {
		time.Sleep(time.Second)
		c.Client.Terminate(reason)
	}()
}

func logClientRead(msg []byte) {
	msgLower := bytes.ToLower(msg)
	if bytes.HasPrefix(msgLower, []byte("login ")) || bytes.HasPrefix(msgLower, []byte("lj ")) || bytes.HasPrefix(msgLower, []byte("loginjson ")) {
		split := bytes.Split(msg, []byte(" "))
		var username []byte
		var secret []byte
		if len(split) > 1 {
			username = split[1]
			if len(split) > 2 {
				secret = []byte("*******")
			}
		}
		log.Printf("<- %s %s %s", split[0], username, secret)
	} else if bytes.HasPrefix(msgLower, []byte("register ")) {
		split := bytes.Split(msg, []byte(" "))
		if len(split) > 3 {
			split = append(split[:3], []byte("*******"))
		}
		log.Printf("<- %s", bytes.Join(split, []byte(" ")))
	} else if !bytes.HasPrefix(msgLower, []byte("list")) && !bytes.HasPrefix(msgLower, []byte("ls")) && !bytes.HasPrefix(msgLower, []byte("pong")) {
		log.Printf("<- %s", msg)
	}
}
