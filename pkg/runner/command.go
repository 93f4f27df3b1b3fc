package runner

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// CommandKind identifies a line typed at the prompt.
type CommandKind string

const (
	CmdSet    CommandKind = "set"
	CmdNext   CommandKind = "next"
	CmdBack   CommandKind = "back"
	CmdJump   CommandKind = "jump"
	CmdSearch CommandKind = "search"
	CmdPick   CommandKind = "pick"
	CmdSubmit CommandKind = "submit"
	CmdView   CommandKind = "view"
	CmdHelp   CommandKind = "help"
	CmdQuit   CommandKind = "quit"
)

// Command is a parsed prompt line.
type Command struct {
	Kind  CommandKind
	Field string
	Value string
	// Index is the step index for :jump and the 1-based result number for :pick.
	Index int
}

// ErrEmptyCommand is returned for blank lines.
var ErrEmptyCommand = errors.New("empty command")

// Help lists the commands understood by ParseCommand.
const Help = `field=value        set a field (empty value clears it)
:search field [q]  search the entities of a picker field
:pick field N      select the N-th result of the last search
:next              validate the step and advance
:back              previous step
:jump N            go to step N (0-based)
:submit            submit from the last step
:view              show the current step again
:help              this text
:quit              abandon the wizard`

// ParseCommand parses one prompt line.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, ErrEmptyCommand
	}

	if !strings.HasPrefix(line, ":") {
		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return Command{}, fmt.Errorf("expected field=value or a :command, got %q", line)
		}
		return Command{Kind: CmdSet, Field: key, Value: strings.TrimSpace(value)}, nil
	}

	parts := strings.Fields(line[1:])
	if len(parts) == 0 {
		return Command{}, ErrEmptyCommand
	}
	name, args := strings.ToLower(parts[0]), parts[1:]

	switch name {
	case "next", "n":
		return Command{Kind: CmdNext}, nil
	case "back", "b":
		return Command{Kind: CmdBack}, nil
	case "submit":
		return Command{Kind: CmdSubmit}, nil
	case "view", "v":
		return Command{Kind: CmdView}, nil
	case "help", "h", "?":
		return Command{Kind: CmdHelp}, nil
	case "quit", "q", "exit":
		return Command{Kind: CmdQuit}, nil
	case "jump", "j":
		if len(args) != 1 {
			return Command{}, errors.New("usage: :jump N")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return Command{}, fmt.Errorf("invalid step index %q", args[0])
		}
		return Command{Kind: CmdJump, Index: n}, nil
	case "search", "s":
		if len(args) == 0 {
			return Command{}, errors.New("usage: :search field [query]")
		}
		return Command{Kind: CmdSearch, Field: args[0], Value: strings.Join(args[1:], " ")}, nil
	case "pick", "p":
		if len(args) != 2 {
			return Command{}, errors.New("usage: :pick field N")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			return Command{}, fmt.Errorf("invalid result number %q", args[1])
		}
		return Command{Kind: CmdPick, Field: args[0], Index: n}, nil
	}
	return Command{}, fmt.Errorf("unknown command :%s (try :help)", name)
}
