package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"codeberg.org/boneclub/gammon"
	"codeberg.org/boneclub/gammon/pkg/store"
	"codeberg.org/tslocum/gotext"
)

func (s *server) handleCommands() {
	var cmd serverCommand
	for cmd = range s.commands {
		if cmd.client == nil {
			log.Panicf("nil client with command %s", cmd.command)
		} else if cmd.client.terminating.Load() || cmd.client.Terminated() {
			continue
		}

		cmd.command = bytes.TrimSpace(cmd.command)

		firstSpace := bytes.IndexByte(cmd.command, ' ')
		var keyword string
		var startParameters int
		if firstSpace == -1 {
			keyword = string(cmd.command)
			startParameters = len(cmd.command)
		} else {
			keyword = string(cmd.command[:firstSpace])
			startParameters = firstSpace + 1
		}
		if keyword == "" {
			continue
		}
		keyword = strings.ToLower(keyword)
		params := bytes.Fields(cmd.command[startParameters:])

		// Require users to send login command first.
		if cmd.client.accountID == -1 {
			switch keyword {
			case gammon.CommandLogin, gammon.CommandLoginJSON, "lj":
				s.handleLogin(cmd.client, keyword, params)
			case gammon.CommandRegister:
				s.handleRegister(cmd.client, params)
			default:
				cmd.client.Terminate(gotext.GetD(cmd.client.language, "You must login before using other commands."))
			}
			continue
		}

		ctx := context.Background()
		switch keyword {
		case gammon.CommandHelp, "h":
			if len(params) > 0 {
				command := string(bytes.ToLower(bytes.Join(params, []byte(" "))))
				commandHelp := gammon.HelpText[command]
				if commandHelp != "" {
					cmd.client.sendNotice("/" + command + " " + commandHelp)
				} else {
					cmd.client.sendNotice(fmt.Sprintf("Unknown command: %s", command))
				}
				continue
			}

			cmd.client.sendNotice("Available commands:")
			for _, command := range s.sortedCommands {
				cmd.client.sendNotice("/" + command + " " + gammon.HelpText[command])
			}
		case gammon.CommandJSON:
			sendUsage := func() {
				cmd.client.sendNotice("To enable JSON formatted messages, send 'json on'. To disable JSON formatted messages, send 'json off'.")
			}
			if len(params) != 1 {
				sendUsage()
				continue
			}
			switch strings.ToLower(string(params[0])) {
			case "on":
				cmd.client.json = true
				cmd.client.sendNotice("JSON formatted messages enabled.")
			case "off":
				cmd.client.json = false
				cmd.client.sendNotice("JSON formatted messages disabled.")
			default:
				sendUsage()
			}
		case gammon.CommandList, "ls":
			ev := &gammon.EventList{}
			sessions, err := s.store.Active(ctx)
			if err != nil {
				log.Printf("failed to list sessions: %s", err)
			}
			for _, sess := range sessions {
				if sess.Game.Completed() {
					continue
				}
				ev.Games = append(ev.Games, listing(sess))
			}
			cmd.client.sendEvent(ev)
		case gammon.CommandCreate, "c":
			if cmd.client.session() != "" {
				cmd.client.sendNotice(gotext.GetD(cmd.client.language, "Failed to create match: Please leave the match you are in before creating another."))
				continue
			}

			points := 1
			if len(params) > 0 {
				var err error
				points, err = strconv.Atoi(string(params[0]))
				if err != nil || points < 1 {
					cmd.client.sendNotice(gotext.GetD(cmd.client.language, "Failed to create match: Invalid point value."))
					continue
				}
				params = params[1:]
			}
			name := string(bytes.Join(params, []byte(" ")))
			if name == "" {
				name = gotext.GetD(cmd.client.language, "%s's match", cmd.client.name)
			}

			sess, err := s.createSession(ctx, name, points)
			if err != nil {
				cmd.client.sendNotice(fmt.Sprintf(gotext.GetD(cmd.client.language, "Failed to create match: %s"), err))
				continue
			}
			cmd.client.sendNotice(fmt.Sprintf(gotext.GetD(cmd.client.language, "Created match: %s"), sess.Name))
			s.seatClient(ctx, cmd.client, sess.ID, gammon.NoColor)
		case gammon.CommandJoin, "j":
			if cmd.client.session() != "" {
				cmd.client.sendEvent(&gammon.EventFailedJoin{
					Reason: gotext.GetD(cmd.client.language, "Please leave the match you are in before joining another."),
				})
				continue
			} else if len(params) == 0 {
				cmd.client.sendEvent(&gammon.EventFailedJoin{
					Reason: gotext.GetD(cmd.client.language, "Please specify a match ID."),
				})
				continue
			}

			id := string(params[0])
			c := gammon.NoColor
			if len(params) > 1 {
				c = gammon.ParseColor(strings.ToLower(string(params[1])))
				if c == gammon.NoColor {
					s.reclaimSeat(ctx, cmd.client, id, string(params[1]))
					continue
				}
			}
			s.seatClient(ctx, cmd.client, id, c)
		case gammon.CommandLeave, "l":
			id, _, token := cmd.client.seat()
			if id == "" {
				cmd.client.sendNotice(gotext.GetD(cmd.client.language, "Failed to leave match: You are not in a match."))
				continue
			}
			if token != "" {
				_, err := s.leaveSession(ctx, id, token)
				if err != nil && !errors.Is(err, store.ErrNotFound) {
					cmd.client.sendNotice(fmt.Sprintf(gotext.GetD(cmd.client.language, "Failed to leave match: %s"), err))
					continue
				}
			}
			cmd.client.leaveSeat()

			ev := &gammon.EventLeft{}
			ev.Player = string(cmd.client.name)
			cmd.client.sendEvent(ev)
			for _, c := range s.sessionClients(id) {
				c.sendEvent(ev)
			}
		case gammon.CommandBoard, "b":
			id := cmd.client.session()
			if id == "" {
				cmd.client.sendNotice(gotext.GetD(cmd.client.language, "You are not currently in a match."))
				continue
			}
			sess, err := s.store.Get(ctx, id)
			if err != nil {
				cmd.client.sendNotice(fmt.Sprintf(gotext.GetD(cmd.client.language, "Failed to load match: %s"), err))
				continue
			}
			s.sendBoard(ctx, cmd.client, sess)
		case gammon.CommandHint:
			s.sendHints(ctx, cmd.client)
		case gammon.CommandPong:
			// Do nothing.
		case gammon.CommandDisconnect:
			if cmd.client.seated() {
				log.Printf("%s disconnected while seated in session %s", cmd.client.name, cmd.client.session())
			}
			cmd.client.Terminate("Client disconnected")
		default:
			action, ok := gammon.CommandAction(keyword)
			if !ok {
				cmd.client.sendNotice(fmt.Sprintf(gotext.GetD(cmd.client.language, "Unknown command: %s"), keyword))
				continue
			}
			s.handleAction(ctx, cmd.client, action, params)
		}
	}
}

// handleLogin identifies a client as a registered player or a guest.
func (s *server) handleLogin(c *serverClient, keyword string, params [][]byte) {
	if keyword == gammon.CommandLoginJSON || keyword == "lj" {
		c.json = true
		if len(params) > 0 {
			slashIndex := bytes.IndexRune(params[0], '/')
			if slashIndex != -1 {
				c.language = "boneclub-" + string(s.matchLanguage(params[0][slashIndex+1:]))
			}
			params = params[1:]
		}
	}

	var username string
	var password string
	if len(params) > 0 {
		username = string(params[0])
		if len(params) > 1 {
			password = string(bytes.Join(params[1:], []byte("_")))
		}
	}

	account := 0
	if password != "" {
		a, err := s.accounts.Login(context.Background(), username, password)
		if err != nil {
			if errors.Is(err, store.ErrInvalidLogin) {
				c.Terminate(gotext.GetD(c.language, "No account was found with the provided username and password. To log in as a guest, do not enter a password."))
			} else {
				c.Terminate(fmt.Sprintf(gotext.GetD(c.language, "Failed to log in: %s"), err))
			}
			return
		}
		username = a.Name
		account = a.ID
	}

	s.clientsLock.Lock()
	if account == 0 {
		if username == "" {
			username = string(s.randomUsername())
		} else if err := store.ValidateName(strings.TrimPrefix(strings.ToLower(username), "guest_")); err != nil {
			s.clientsLock.Unlock()
			c.Terminate(fmt.Sprintf(gotext.GetD(c.language, "Invalid username: %s"), err))
			return
		} else {
			username = guestName(username)
		}
	}
	if s.clientByUsername([]byte(username)) != nil {
		s.clientsLock.Unlock()
		c.Terminate(gotext.GetD(c.language, "That username is already in use."))
		return
	}
	c.name = []byte(username)
	c.accountID = account
	clients := len(s.clients)
	s.clientsLock.Unlock()

	var games int
	sessions, err := s.store.Active(context.Background())
	if err != nil {
		log.Printf("failed to list sessions: %s", err)
	}
	for _, sess := range sessions {
		if !sess.Game.Completed() {
			games++
		}
	}

	c.sendEvent(&gammon.EventWelcome{
		PlayerName: string(c.name),
		Clients:    clients,
		Games:      games,
	})

	log.Printf("Client %d logged in as %s", c.id, c.name)

	s.sendMOTD(c)
}

// handleRegister creates an account and logs the client in to it.
func (s *server) handleRegister(c *serverClient, params [][]byte) {
	if len(params) < 3 {
		c.Terminate(gotext.GetD(c.language, "Please enter an email, username and password."))
		return
	}
	email := string(bytes.ToLower(params[0]))
	username := string(params[1])
	password := string(bytes.Join(params[2:], []byte("_")))

	_, err := s.accounts.Register(context.Background(), username, email, password)
	if err != nil {
		c.Terminate(fmt.Sprintf(gotext.GetD(c.language, "Failed to register: %s"), err))
		return
	}
	log.Printf("Registered account %s", username)

	s.handleLogin(c, gammon.CommandLogin, [][]byte{[]byte(username), []byte(password)})
}

// seatClient seats a client in a session. A client which finds the session full
// spectates it instead.
func (s *server) seatClient(ctx context.Context, c *serverClient, id string, color gammon.Color) {
	sess, color, token, err := s.joinSession(ctx, id, string(c.name), c.accountID, color)
	if errors.Is(err, ErrSessionFull) {
		sess, err = s.store.Get(ctx, id)
		if err == nil {
			c.setSeat(sess.ID, gammon.NoColor, "")
			c.sendNotice(gotext.GetD(c.language, "You are spectating this match."))
			s.sendBoard(ctx, c, sess)
			return
		}
	}
	if err != nil {
		c.sendEvent(&gammon.EventFailedJoin{
			Reason: fmt.Sprintf(gotext.GetD(c.language, "Failed to join match: %s"), err),
		})
		return
	}

	s.announceSeat(ctx, c, sess, color, token)
}

// reclaimSeat seats a client in the seat held by token, such as after reconnecting.
func (s *server) reclaimSeat(ctx context.Context, c *serverClient, id string, token string) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		c.sendEvent(&gammon.EventFailedJoin{
			Reason: fmt.Sprintf(gotext.GetD(c.language, "Failed to join match: %s"), err),
		})
		return
	}
	color := seatColor(sess, token)
	if color == gammon.NoColor {
		c.sendEvent(&gammon.EventFailedJoin{
			Reason: fmt.Sprintf(gotext.GetD(c.language, "Failed to join match: %s"), ErrInvalidToken),
		})
		return
	}
	s.announceSeat(ctx, c, sess, color, token)
}

func (s *server) announceSeat(ctx context.Context, c *serverClient, sess *store.Session, color gammon.Color, token string) {
	others := s.sessionClients(sess.ID)

	c.setSeat(sess.ID, color, token)

	ev := &gammon.EventJoined{
		GameID: sess.ID,
		Color:  color,
		Token:  token,
	}
	ev.Player = string(c.name)
	c.sendEvent(ev)
	s.sendBoard(ctx, c, sess)

	for _, other := range others {
		ev := &gammon.EventJoined{
			GameID: sess.ID,
			Color:  color,
		}
		ev.Player = string(c.name)
		other.sendEvent(ev)
		s.sendBoard(ctx, other, sess)
	}
}

func (s *server) sendBoard(ctx context.Context, c *serverClient, sess *store.Session) {
	c.sendEvent(&gammon.EventBoard{
		GameState: *gammon.NewGameState(sess.Game, c.viewer(), s.players(ctx, sess)),
	})
}

// handleAction submits a game action on behalf of a seated client. Moves are read in
// the client's perspective.
func (s *server) handleAction(ctx context.Context, c *serverClient, action gammon.ActionType, params [][]byte) {
	failed := func(reason string) {
		c.sendEvent(&gammon.EventFailed{
			Action: action,
			Reason: reason,
		})
	}
	id, color, token := c.seat()
	if token == "" {
		if id != "" {
			failed(gotext.GetD(c.language, "Command ignored: You are spectating this match."))
		} else {
			failed(gotext.GetD(c.language, "You are not currently in a match."))
		}
		return
	}

	a := gammon.Action{
		Type:  action,
		Color: color,
	}
	switch action {
	case gammon.ActionMove:
		if len(params) == 0 {
			failed(gotext.GetD(c.language, "Specify one or more moves in the form FROM/TO. For example: 8/4 6/4"))
			return
		}
		moves, err := gammon.ParseMoves(string(bytes.Join(params, []byte(" "))), gammon.White)
		if err != nil {
			failed(err.Error())
			return
		}
		a.Moves = gammon.FlipMoves(moves, color)
	case gammon.ActionEndTurn:
		// Confirming a pending double accepts it.
		sess, err := s.store.Get(ctx, id)
		if err == nil && sess.Game.Cube.Offered && sess.Game.Turn != color {
			a.Type = gammon.ActionAccept
			action = a.Type
		}
	}

	_, err := s.act(ctx, id, token, 0, a)
	if err != nil {
		var rejected *RejectedError
		if errors.As(err, &rejected) {
			failed(rejected.Err.Error())
			return
		}
		failed(err.Error())
	}
}

// sendHints lists the plays available to a client on turn, in its perspective.
func (s *server) sendHints(ctx context.Context, c *serverClient) {
	const maxHints = 5

	id, color, _ := c.seat()
	if id == "" {
		c.sendNotice(gotext.GetD(c.language, "You are not currently in a match."))
		return
	}
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		c.sendNotice(fmt.Sprintf(gotext.GetD(c.language, "Failed to load match: %s"), err))
		return
	} else if !color.Valid() || sess.Game.Turn != color {
		c.sendNotice(fmt.Sprintf(gotext.GetD(c.language, "Failed to list hints: %s"), gammon.ErrNotYourTurn))
		return
	}

	hints := sess.Game.Hints()
	if len(hints) == 0 {
		c.sendNotice(gotext.GetD(c.language, "No moves are available."))
		return
	}
	for i, hint := range hints {
		if i == maxHints {
			break
		}
		c.sendNotice(fmt.Sprintf(gotext.GetD(c.language, "Hint: %s"), gammon.FormatAndFlipMoves(hint, color)))
	}
}
