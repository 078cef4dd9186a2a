package gammon

// commands are always sent TO the server

const (
	CommandHelp       = "help"       // Print help information.
	CommandJSON       = "json"       // Enable or disable JSON formatted messages.
	CommandLogin      = "login"      // Log in as a guest or with a password.
	CommandLoginJSON  = "loginjson"  // Log in and enable JSON formatted messages.
	CommandRegister   = "register"   // Register an account.
	CommandList       = "list"       // List open sessions.
	CommandCreate     = "create"     // Create a session.
	CommandJoin       = "join"       // Join a session.
	CommandLeave      = "leave"      // Leave a session.
	CommandBoard      = "board"      // Print the current board.
	CommandHint       = "hint"       // List the plays available with the dice rolled.
	CommandOpening    = "opening"    // Roll the opening die.
	CommandStart      = "start"      // Begin play after the opening roll.
	CommandRoll       = "roll"       // Roll the dice.
	CommandMove       = "move"       // Move checkers.
	CommandUndo       = "undo"       // Undo the moves played this turn.
	CommandOk         = "ok"         // Confirm checker movement and pass the turn.
	CommandDouble     = "double"     // Offer a double.
	CommandAccept     = "accept"     // Accept a double.
	CommandDecline    = "decline"    // Decline a double.
	CommandResign     = "resign"     // Resign the game.
	CommandPong       = "pong"       // Response to server ping.
	CommandDisconnect = "disconnect" // Disconnect from the server.
)

// HelpText describes the parameters of each command.
var HelpText = map[string]string{
	CommandHelp:       "[command] - Request help for all commands, or optionally a specific command.",
	CommandJSON:       "<on/off> - Turn JSON formatted messages on or off.",
	CommandLogin:      "[name] [password] - Log in. Guests do not provide a password.",
	CommandLoginJSON:  "<client>/<language> [name] [password] - Log in and enable JSON formatted messages.",
	CommandRegister:   "<email> <name> <password> - Register an account.",
	CommandList:       "- List open sessions.",
	CommandCreate:     "[points] [name] - Create a session.",
	CommandJoin:       "<id> [color/token] - Join a session, or reclaim a seat with its token.",
	CommandLeave:      "- Leave the session.",
	CommandBoard:      "- Print the current board.",
	CommandHint:       "- List the plays available with the dice rolled.",
	CommandOpening:    "- Roll the opening die.",
	CommandStart:      "- Begin play after the opening roll.",
	CommandRoll:       "- Roll the dice.",
	CommandMove:       "<from-to> [from-to]... - Move checkers.",
	CommandUndo:       "- Undo the moves played this turn.",
	CommandOk:         "- Confirm checker movement and pass the dice to the next player.",
	CommandDouble:     "- Offer a double.",
	CommandAccept:     "- Accept a double.",
	CommandDecline:    "- Decline a double and forfeit the game.",
	CommandResign:     "- Resign the game.",
	CommandPong:       "<message> - Sent in response to server ping event to prevent the connection from timing out.",
	CommandDisconnect: "- Disconnect from the server.",
}

// CommandAction returns the game action a command keyword performs, if any.
func CommandAction(keyword string) (ActionType, bool) {
	switch keyword {
	case CommandOpening:
		return ActionOpening, true
	case CommandStart:
		return ActionStart, true
	case CommandRoll, "r":
		return ActionRoll, true
	case CommandMove, "m", "mv":
		return ActionMove, true
	case CommandUndo:
		return ActionUndo, true
	case CommandOk, "k":
		return ActionEndTurn, true
	case CommandDouble, "d":
		return ActionDouble, true
	case CommandAccept:
		return ActionAccept, true
	case CommandDecline:
		return ActionDecline, true
	case CommandResign:
		return ActionResign, true
	default:
		return "", false
	}
}
