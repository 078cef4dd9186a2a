package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"

	"codeberg.org/boneclub/gammon"
	"codeberg.org/boneclub/gammon/pkg/settle"
	"codeberg.org/boneclub/gammon/pkg/store"
	"github.com/matcornic/hermes/v2"
)

const mailFrom = "noreply@boneclub.example"

// notifyAction informs the clients viewing a session of an applied action.
func (s *server) notifyAction(sess *store.Session, a gammon.Action) {
	clients := s.sessionClients(sess.ID)
	if len(clients) == 0 {
		return
	}
	players := s.players(context.Background(), sess)
	name := sess.Seats[a.Color].Name
	g := sess.Game

	for _, c := range clients {
		switch a.Type {
		case gammon.ActionOpening:
			c.sendNoticef("%s rolled %d for the opening.", name, g.Opening[a.Color])
		case gammon.ActionRoll:
			ev := &gammon.EventRolled{
				Roll1: g.Roll1,
				Roll2: g.Roll2,
			}
			ev.Player = name
			c.sendEvent(ev)
		case gammon.ActionMove:
			ev := &gammon.EventMoved{
				Moves: a.Moves,
			}
			ev.Player = name
			c.sendEvent(ev)
		case gammon.ActionDouble:
			ev := &gammon.EventDoubled{
				Value: g.Cube.Value,
			}
			ev.Player = name
			c.sendEvent(ev)
		case gammon.ActionAccept:
			c.sendNoticef("%s accepted the double.", name)
		case gammon.ActionDecline:
			c.sendNoticef("%s declined the double.", name)
		case gammon.ActionResign:
			c.sendNoticef("%s resigned.", name)
		}

		ev := &gammon.EventBoard{
			GameState: *gammon.NewGameState(g, c.viewer(), players),
		}
		c.sendEvent(ev)
	}
}

// notifyResult informs the clients viewing a session of its payout.
func (s *server) notifyResult(sess *store.Session, p *settle.Payout) {
	for _, c := range s.sessionClients(sess.ID) {
		ev := &gammon.EventWin{
			WinType: p.WinType,
			Points:  p.Points,
		}
		ev.Player = p.Entries[p.Winner].Name
		c.sendEvent(ev)

		color := c.viewer()
		if !color.Valid() {
			continue
		}
		entry := p.Entries[color]
		if entry.Account == 0 {
			continue
		}
		if entry.BonesDelta >= 0 {
			c.sendNoticef("You won %d Bones. You now have %d Bones.", entry.BonesDelta, entry.Bones)
		} else {
			c.sendNoticef("You lost %d Bones. You now have %d Bones.", -entry.BonesDelta, entry.Bones)
		}
		if entry.RatingDelta != 0 {
			c.sendNoticef("Your rating is now %d.", entry.Rating/100)
		}
	}
}

// mailResult sends the payout to the registered players of a game.
func (s *server) mailResult(p *settle.Payout) {
	if !s.mail {
		return
	}
	for _, c := range []gammon.Color{gammon.White, gammon.Black} {
		entry := p.Entries[c]
		if entry.Account == 0 {
			continue
		}
		a, err := s.accounts.Account(context.Background(), entry.Account)
		if err != nil {
			log.Printf("failed to load account %d: %s", entry.Account, err)
			continue
		} else if a.Email == "" {
			continue
		}

		plain, html, err := s.resultEmail(p, c)
		if err != nil {
			log.Printf("failed to render result e-mail: %s", err)
			continue
		}
		if !sendEmail(s.mailServer, a.Email, "Your Bone Club game result", plain, html) {
			log.Printf("failed to send result e-mail to account %d", a.ID)
		}
	}
}

// resultEmail renders the result of a game as seen by the player of color c.
func (s *server) resultEmail(p *settle.Payout, c gammon.Color) (string, string, error) {
	emailConfig := hermes.Hermes{
		Product: hermes.Product{
			Name:      "Bone Club",
			Link:      s.link,
			Copyright: " ",
		},
	}

	entry, opponent := p.Entries[c], p.Entries[c.Opponent()]
	outcome := "You lost"
	if c == p.Winner {
		outcome = "You won"
	}
	resultEmail := hermes.Email{
		Body: hermes.Body{
			Greeting: "Hello",
			Name:     entry.Name,
			Intros: []string{
				fmt.Sprintf("%s your game against %s.", outcome, opponent.Name),
			},
			Dictionary: []hermes.Entry{
				{Key: "Result", Value: p.WinType.String()},
				{Key: "Points", Value: fmt.Sprintf("%d (cube %d)", p.Points, p.Cube)},
				{Key: "Bones", Value: fmt.Sprintf("%+d (%d)", entry.BonesDelta, entry.Bones)},
				{Key: "Rating", Value: fmt.Sprintf("%+d (%d)", entry.RatingDelta/100, entry.Rating/100)},
			},
			Actions: []hermes.Action{
				{
					Instructions: "See the leaderboard:",
					Button: hermes.Button{
						Color: "#DC4D2F",
						Text:  "Leaderboard",
						Link:  strings.TrimSuffix(s.link, "/") + "/leaderboard.json",
					},
				},
			},
			Signature: "Ciao",
		},
	}
	emailPlain, err := emailConfig.GeneratePlainText(resultEmail)
	if err != nil {
		return "", "", err
	}
	emailHTML, err := emailConfig.GenerateHTML(resultEmail)
	if err != nil {
		return "", "", err
	}
	return emailPlain, emailHTML, nil
}

func sendEmail(mailServer string, emailAddress string, emailSubject string, emailPlain string, emailHTML string) bool {
	mixedContent := &bytes.Buffer{}
	mixedWriter := multipart.NewWriter(mixedContent)
	var newBoundary = "RELATED-" + mixedWriter.Boundary()
	mixedWriter.SetBoundary(first70("MIXED-" + mixedWriter.Boundary()))
	relatedWriter, newBoundary := nestedMultipart(mixedWriter, "multipart/related", newBoundary)
	altWriter, _ := nestedMultipart(relatedWriter, "multipart/alternative", "ALTERNATIVE-"+newBoundary)

	var childContent io.Writer
	childContent, _ = altWriter.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain"}})
	childContent.Write([]byte(emailPlain))
	childContent, _ = altWriter.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html"}})
	childContent.Write([]byte(emailHTML))

	altWriter.Close()
	relatedWriter.Close()
	mixedWriter.Close()

	header := "From: Bone Club <" + mailFrom + ">\nTo: <" + emailAddress + ">\nSubject: " + emailSubject + "\nMIME-Version: 1.0\nContent-Type: multipart/mixed; boundary="
	if mailServer == "" {
		fmt.Print(header)
		fmt.Print(mixedWriter.Boundary(), "\n\n")
		fmt.Println(mixedContent.String())
		return true
	}

	c, err := smtp.Dial(mailServer)
	if err != nil {
		return false
	}
	defer c.Close()

	if c.Mail(mailFrom) != nil || c.Rcpt(emailAddress) != nil {
		return false
	}

	wc, err := c.Data()
	if err != nil {
		return false
	}
	defer wc.Close()

	fmt.Fprint(wc, header)
	fmt.Fprint(wc, mixedWriter.Boundary(), "\n\n")
	fmt.Fprintln(wc, mixedContent.String())
	return true
}

func nestedMultipart(enclosingWriter *multipart.Writer, contentType, boundary string) (nestedWriter *multipart.Writer, newBoundary string) {
	var contentBuffer io.Writer
	var err error

	boundary = first70(boundary)
	contentWithBoundary := contentType + "; boundary=\"" + boundary + "\""
	contentBuffer, err = enclosingWriter.CreatePart(textproto.MIMEHeader{"Content-Type": {contentWithBoundary}})
	if err != nil {
		log.Fatal(err)
	}

	nestedWriter = multipart.NewWriter(contentBuffer)
	newBoundary = nestedWriter.Boundary()
	nestedWriter.SetBoundary(boundary)
	return
}

func first70(str string) string {
	if len(str) > 70 {
		return str[0:69]
	}
	return str
}
