package server

//go:generate xgotext -no-locations -default boneclub -in . -out locales

import (
	"context"
	"embed"
	"fmt"
	"log"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"codeberg.org/boneclub/gammon"
	"codeberg.org/boneclub/gammon/pkg/settle"
	"codeberg.org/boneclub/gammon/pkg/store"
	"codeberg.org/tslocum/gotext"
	"golang.org/x/crypto/sha3"
	"golang.org/x/text/language"
)

const clientTimeout = 40 * time.Second

const defaultSettleInterval = time.Minute

//go:embed locales
var assetFS embed.FS

var englishIdentifier = []byte("en")

func init() {
	gotext.SetDomain("boneclub-en")
}

// Options configures a server.
type Options struct {
	TZ            string        // Time zone used when calculating statistics.
	MailServer    string        // SMTP server used to send result e-mails.
	IPAddressSalt string        // Salt used when hashing client addresses.
	Link          string        // Public address of the server, included in e-mails.
	BonesPerPoint int           // Bones exchanged per point won.
	MOTD          string        // Message of the day.
	Verbose       bool          // Log all client messages.
	Mail          bool          // Send result e-mails to registered players.
	Roller        gammon.Roller // Source of dice values. Cryptographically random when nil.

	SettleInterval time.Duration // Interval between settlement retries.
}

type serverCommand struct {
	client  *serverClient
	command []byte
}

type server struct {
	clients      []*serverClient
	listeners    []net.Listener
	newClientIDs chan int
	commands     chan serverCommand
	welcome      []byte

	clientsLock sync.Mutex

	store    store.Store
	accounts store.Accounts
	settler  *settle.Settler
	roller   gammon.Roller

	listingsCache     []byte
	listingsCacheTime time.Time
	listingsCacheLock sync.Mutex

	leaderboardCache     []byte
	leaderboardCacheTime time.Time
	leaderboardCacheLock sync.Mutex

	statsCache     []byte
	statsCacheTime time.Time
	statsCacheLock sync.Mutex

	motd string

	sortedCommands []string

	mailServer string
	mail       bool
	link       string
	ipSalt     string

	tz            *time.Location
	languageTags  []language.Tag
	languageNames [][]byte

	settleInterval time.Duration
	verbose        bool
}

// NewServer returns a server storing sessions in st. Settlement, leaderboards and
// statistics use accounts.
func NewServer(op *Options, st store.Store, accounts store.Accounts) *server {
	if op == nil {
		op = &Options{}
	}
	if accounts == nil {
		accounts = store.NewMemory()
	}
	const bufferSize = 10
	s := &server{
		newClientIDs:   make(chan int),
		commands:       make(chan serverCommand, bufferSize),
		welcome:        []byte("hello Welcome to Bone Club! Please log in by sending the 'login' command. You may specify a username, otherwise you will be assigned a random username. Have fun!"),
		store:          st,
		accounts:       accounts,
		settler:        settle.NewSettler(accounts, op.BonesPerPoint),
		roller:         op.Roller,
		motd:           op.MOTD,
		mailServer:     op.MailServer,
		mail:           op.Mail,
		link:           op.Link,
		ipSalt:         op.IPAddressSalt,
		settleInterval: op.SettleInterval,
		verbose:        op.Verbose,
	}
	if s.link == "" {
		s.link = "https://boneclub.example"
	}
	if s.settleInterval <= 0 {
		s.settleInterval = defaultSettleInterval
	}
	s.loadLocales()

	for command := range gammon.HelpText {
		s.sortedCommands = append(s.sortedCommands, command)
	}
	sort.Slice(s.sortedCommands, func(i, j int) bool { return s.sortedCommands[i] < s.sortedCommands[j] })

	if op.TZ != "" {
		var err error
		s.tz, err = time.LoadLocation(op.TZ)
		if err != nil {
			log.Fatalf("failed to parse timezone %s: %s", op.TZ, err)
		}
	} else {
		s.tz = time.UTC
	}

	go s.handleNewClientIDs()
	go s.handleCommands()
	go s.handleGames()
	return s
}

func (s *server) loadLocales() {
	entries, err := assetFS.ReadDir("locales")
	if err != nil {
		log.Fatalf("failed to list files in locales directory: %s", err)
	}

	var availableTags = []language.Tag{
		language.MustParse("en_US"),
	}
	var availableNames = [][]byte{
		[]byte("en"),
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		availableTags = append(availableTags, language.MustParse(entry.Name()))
		availableNames = append(availableNames, []byte(entry.Name()))

		b, err := assetFS.ReadFile(fmt.Sprintf("locales/%s/%s.po", entry.Name(), entry.Name()))
		if err != nil {
			log.Fatalf("failed to read locale %s: %s", entry.Name(), err)
		}

		po := gotext.NewPo()
		po.Parse(b)
		gotext.GetStorage().AddTranslator(fmt.Sprintf("boneclub-%s", entry.Name()), po)
	}
	s.languageTags = availableTags
	s.languageNames = availableNames
}

func (s *server) matchLanguage(identifier []byte) []byte {
	if len(identifier) == 0 {
		return englishIdentifier
	}

	tag, err := language.Parse(string(identifier))
	if err != nil {
		return englishIdentifier
	}
	var preferred = []language.Tag{tag}

	useLanguage, index, _ := language.NewMatcher(s.languageTags).Match(preferred...)
	useLanguageCode := useLanguage.String()
	if index < 0 || useLanguageCode == "" || strings.HasPrefix(useLanguageCode, "en") {
		return englishIdentifier
	}
	return s.languageNames[index]
}

// ListenLocal returns a channel which receives a new in-process connection to the
// server each time one is read.
func (s *server) ListenLocal() chan net.Conn {
	conns := make(chan net.Conn)
	go s.handleLocal(conns)
	return conns
}

func (s *server) handleLocal(conns chan net.Conn) {
	for {
		local, remote := net.Pipe()

		conns <- local
		go s.handleConnection(remote, "local")
	}
}

// Listen accepts line protocol connections on a TCP address.
func (s *server) Listen(network string, address string) {
	log.Printf("Listening for %s connections on %s...", strings.ToUpper(network), address)
	listener, err := net.Listen(network, address)
	if err != nil {
		log.Fatalf("failed to listen on %s: %s", address, err)
	}
	go s.handleListener(listener)
	s.listeners = append(s.listeners, listener)
}

func (s *server) handleListener(listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Fatalf("failed to accept connection: %s", err)
		}
		go s.handleConnection(conn, s.hashIP(conn.RemoteAddr().String()))
	}
}

func (s *server) clientByUsername(username []byte) *serverClient {
	lower := strings.ToLower(string(username))
	for _, c := range s.clients {
		if strings.ToLower(string(c.name)) == lower {
			return c
		}
	}
	return nil
}

func (s *server) addClient(c *serverClient) {
	s.clientsLock.Lock()
	defer s.clientsLock.Unlock()

	s.clients = append(s.clients, c)
}

func (s *server) removeClient(c *serverClient) {
	c.Terminate("")

	close(c.commands)

	s.clientsLock.Lock()
	defer s.clientsLock.Unlock()

	for i, sc := range s.clients {
		if sc == c {
			s.clients = append(s.clients[:i], s.clients[i+1:]...)
			return
		}
	}
}

// sessionClients returns the connected clients viewing a session.
func (s *server) sessionClients(id string) []*serverClient {
	s.clientsLock.Lock()
	defer s.clientsLock.Unlock()

	var clients []*serverClient
	for _, c := range s.clients {
		if c.session() == id && !c.terminating.Load() && !c.Terminated() {
			clients = append(clients, c)
		}
	}
	return clients
}

// handleGames periodically settles completed sessions whose settlement failed.
func (s *server) handleGames() {
	t := time.NewTicker(s.settleInterval)
	for range t.C {
		s.settlePending(context.Background())
	}
}

func (s *server) settlePending(ctx context.Context) {
	sessions, err := s.store.Active(ctx)
	if err != nil {
		log.Printf("failed to list active sessions: %s", err)
		return
	}
	for _, sess := range sessions {
		if sess.NeedsSettlement() {
			s.finalize(ctx, sess)
		}
	}
}

func (s *server) handleClient(c *serverClient) {
	s.addClient(c)

	log.Printf("Client %s connected from %s", c.label(), c.Address())

	go s.handlePingClient(c)
	go s.handleClientCommands(c)

	c.HandleReadWrite()

	// Remove client.
	s.removeClient(c)

	log.Printf("Client %s disconnected", c.label())
}

func (s *server) newClient(commands chan []byte, client gammon.Client) *serverClient {
	now := time.Now().Unix()
	return &serverClient{
		id:        <-s.newClientIDs,
		language:  "boneclub-en",
		accountID: -1,
		connected: now,
		active:    now,
		commands:  commands,
		Client:    client,
	}
}

func (s *server) handleConnection(conn net.Conn, address string) {
	const bufferSize = 8
	commands := make(chan []byte, bufferSize)
	events := make(chan []byte, bufferSize)

	c := s.newClient(commands, newSocketClient(conn, address, commands, events, s.verbose))
	s.sendWelcome(c)
	s.handleClient(c)
}

func (s *server) handlePingClient(c *serverClient) {
	t := time.NewTicker(30 * time.Second)
	for {
		<-t.C

		if c.Terminated() {
			t.Stop()
			return
		}

		if len(c.name) == 0 {
			c.Terminate("User did not send login command within 30 seconds.")
			t.Stop()
			return
		}

		c.lastPing = time.Now().Unix()
		c.sendEvent(&gammon.EventPing{
			Message: fmt.Sprintf("%d", c.lastPing),
		})
	}
}

func (s *server) handleClientCommands(c *serverClient) {
	var command []byte
	for command = range c.commands {
		s.commands <- serverCommand{
			client:  c,
			command: command,
		}
	}
}

func (s *server) handleNewClientIDs() {
	clientID := 1
	for {
		s.newClientIDs <- clientID
		clientID++
	}
}

// randomUsername returns a random guest username, and assumes clients are already locked.
func (s *server) randomUsername() []byte {
	for {
		name := []byte(fmt.Sprintf("Guest_%d", 100+gammon.RandInt(900)))

		if s.clientByUsername(name) == nil {
			return name
		}
	}
}

func (s *server) sendWelcome(c *serverClient) {
	if c.json {
		return
	}
	c.Write(s.welcome)
}

func (s *server) sendMOTD(c *serverClient) {
	if s.motd == "" {
		return
	}
	c.sendNotice(s.motd)
}

// hashIP returns an anonymized form of a client address.
func (s *server) hashIP(address string) string {
	leftBracket, rightBracket := strings.IndexByte(address, '['), strings.IndexByte(address, ']')
	if leftBracket != -1 && rightBracket != -1 && rightBracket > leftBracket {
		address = address[leftBracket+1 : rightBracket]
	} else if strings.IndexByte(address, '.') != -1 {
		colon := strings.IndexByte(address, ':')
		if colon != -1 {
			address = address[:colon]
		}
	}

	buf := []byte(address + s.ipSalt)
	h := make([]byte, 16)
	sha3.ShakeSum256(h, buf)
	return fmt.Sprintf("%x", h)
}
