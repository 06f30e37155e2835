package main

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/chatwire/chatwire/internal/logging"
	"github.com/chatwire/chatwire/pkg/client"
	"github.com/chatwire/chatwire/pkg/protocol"
)

func connectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect <handle> <server-host> <server-port> [client-id]",
		Short: "Join a relay as an interactive client",
		Long: `Join a relay and chat from the terminal.

Commands are typed one per line at the prompt:

  %M <handle> <text>            send to one client
  %B <text>                     send to everyone else
  %C <n> <h1> ... <hn> <text>   send to n clients (2..9)
  %L                            list registered handles

Incoming messages print as "<sender>: <text>". End input (Ctrl-D)
to leave.

Examples:
  chatwire connect alice localhost 4040
  chatwire connect bob chat.example.com 4040 7`,
		Args: cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnect(args)
		},
	}

	return cmd
}

func runConnect(args []string) error {
	handle, host, port := args[0], args[1], args[2]
	if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("invalid port %q", port)
	}
	clientID := 0
	hasClientID := false
	if len(args) == 4 {
		id, err := strconv.Atoi(args[3])
		if err != nil {
			return fmt.Errorf("invalid client id %q", args[3])
		}
		clientID = id
		hasClientID = true
	}

	// Chat owns stdout, so diagnostics go to stderr and stay quiet
	// unless CHATWIRE_LOG_LEVEL asks for more.
	logger := logging.New(os.Stderr, "chatwire", logging.ProfileRuntime)
	if os.Getenv(logging.EnvLogLevel) == "" {
		logger = logger.Level(zerolog.WarnLevel)
	}

	cfg := client.DefaultConfig().
		WithAddr(net.JoinHostPort(host, port)).
		WithHandle(handle).
		WithLogger(logger)
	if hasClientID {
		cfg.ClientID = strconv.Itoa(clientID)
	}

	c, err := client.Dial(cfg)
	if err != nil {
		switch {
		case errors.Is(err, client.ErrRegistrationRejected):
			fmt.Fprintf(os.Stderr, "Handle already in use: %s\n", handle)
			os.Exit(1)
		case errors.Is(err, protocol.ErrHandleTooLong):
			fmt.Fprintf(os.Stderr, "Invalid handle, handle longer than 100 characters: %s\n", handle)
			os.Exit(1)
		case errors.Is(err, protocol.ErrHandleEmpty):
			return err
		case errors.Is(err, os.ErrDeadlineExceeded):
			fmt.Fprintln(os.Stderr, "No response from server during registration.")
			os.Exit(2)
		default:
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(2)
		}
	}
	defer c.Close()

	fmt.Printf("Connected to Server %s on Port %s as Client %s", host, port, handle)
	if hasClientID {
		fmt.Printf(" (ID %d)", clientID)
	}
	fmt.Println()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	// One loop multiplexes typed commands and relay events so the
	// prompt comes back after every print.
	fmt.Print("Enter command: ")
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			runLine(c, line)
			fmt.Print("Enter command: ")
		case ev, ok := <-c.Events():
			if !ok {
				return nil
			}
			printEvent(ev)
			fmt.Print("Enter command: ")
		}
	}
}

// runLine parses and sends one typed command, reporting rejected input
// on stdout next to the prompt.
func runLine(c *client.Client, line string) {
	cmd, err := client.ParseCommand(line)
	if err == nil {
		err = c.Send(cmd)
	}
	switch {
	case err == nil:
	case errors.Is(err, client.ErrUnknownCommand):
		fmt.Println("Invalid command")
	case errors.Is(err, protocol.ErrDestCount):
		fmt.Println("Invalid number of handles for multicast")
	case errors.Is(err, client.ErrClosed):
		// The Disconnected event reports the teardown.
	case errors.Is(err, client.ErrCommandFormat),
		errors.Is(err, protocol.ErrHandleEmpty),
		errors.Is(err, protocol.ErrHandleTooLong),
		errors.Is(err, protocol.ErrInvalidText):
		fmt.Println("Invalid command format")
	default:
		// Write failures close the session and surface as a
		// Disconnected event.
	}
}

// printEvent renders one relay event. Disconnected ends the process:
// 0 for a clean server close, 2 for a transport failure.
func printEvent(ev client.Event) {
	switch ev := ev.(type) {
	case *client.Message:
		fmt.Printf("\n%s: %s\n", ev.Sender, ev.Text)
	case *client.DestinationUnknown:
		fmt.Printf("\nClient with handle %s does not exist.\n", ev.Handle)
	case *client.Roster:
		fmt.Printf("\nNumber of clients: %d\n", ev.Announced)
		for _, handle := range ev.Handles {
			fmt.Println(handle)
		}
	case *client.Disconnected:
		if ev.Err == nil {
			fmt.Print("\nServer Terminated\n")
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "\nConnection lost: %s\n", ev.Err)
		os.Exit(2)
	}
}
