package client

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chatwire/chatwire/pkg/protocol"
)

// CommandKind identifies an interactive command.
type CommandKind uint8

const (
	CommandUnicast CommandKind = iota
	CommandBroadcast
	CommandMulticast
	CommandList
)

// String returns the command letter.
func (k CommandKind) String() string {
	switch k {
	case CommandUnicast:
		return "%M"
	case CommandBroadcast:
		return "%B"
	case CommandMulticast:
		return "%C"
	case CommandList:
		return "%L"
	default:
		return "%?"
	}
}

// Command is one parsed line of the interactive command language.
type Command struct {
	Kind  CommandKind
	Dests []string
	Text  string
}

// ParseCommand parses one input line:
//
//	%M <handle> <text>
//	%B <text>
//	%C <n> <h1> ... <hn> <text>
//	%L
//
// The letter is case-insensitive and the text may be empty. Handles
// are single space-delimited tokens; the text is everything after the
// last expected token with interior spacing preserved.
func ParseCommand(line string) (*Command, error) {
	line = strings.TrimRight(line, "\r\n")
	trimmed := strings.TrimLeft(line, " \t")
	if len(trimmed) < 2 || trimmed[0] != '%' {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, line)
	}
	letter := trimmed[1]
	rest := trimmed[2:]

	switch letter {
	case 'M', 'm':
		dest, text := nextToken(rest)
		if dest == "" {
			return nil, fmt.Errorf("%w: %%M needs a destination handle", ErrCommandFormat)
		}
		return &Command{Kind: CommandUnicast, Dests: []string{dest}, Text: text}, nil
	case 'B', 'b':
		return &Command{Kind: CommandBroadcast, Text: strings.TrimPrefix(rest, " ")}, nil
	case 'C', 'c':
		countTok, rest := nextToken(rest)
		n, err := strconv.Atoi(countTok)
		if err != nil {
			return nil, fmt.Errorf("%w: %%C needs a destination count", ErrCommandFormat)
		}
		if n < protocol.MinMulticastDests || n > protocol.MaxMulticastDests {
			return nil, fmt.Errorf("%w: %d", protocol.ErrDestCount, n)
		}
		dests := make([]string, 0, n)
		for i := 0; i < n; i++ {
			var dest string
			dest, rest = nextToken(rest)
			if dest == "" {
				return nil, fmt.Errorf("%w: %%C %d names %d handles, got %d",
					ErrCommandFormat, n, n, i)
			}
			dests = append(dests, dest)
		}
		return &Command{Kind: CommandMulticast, Dests: dests, Text: rest}, nil
	case 'L', 'l':
		if strings.TrimSpace(rest) != "" {
			return nil, fmt.Errorf("%w: %%L takes no arguments", ErrCommandFormat)
		}
		return &Command{Kind: CommandList}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, trimmed[:2])
	}
}

// nextToken splits off the next space-delimited token. The remainder
// keeps its interior spacing but not the separating spaces, so a final
// message argument comes out exactly as typed.
func nextToken(s string) (token, rest string) {
	s = strings.TrimLeft(s, " ")
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i], strings.TrimLeft(s[i:], " ")
	}
	return s, ""
}
