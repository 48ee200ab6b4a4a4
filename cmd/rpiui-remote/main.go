// Command rpiui-remote is an interactive remote control for a board running
// rpiui-demo. It connects to the board's TCP listener and sends one byte per
// button press.
//
// Usage:
//
//	rpiui-remote [flags]
//
// Flags:
//
//	-addr string     Board address (host:port); overrides discovery
//	-timeout duration  Discovery timeout (default 5s)
//
// Without -addr the board is discovered over mDNS.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/enbility/zeroconf/v3"

	"github.com/rpiui-project/rpiui-go/pkg/discovery"
)

func main() {
	var (
		addr    string
		timeout time.Duration
	)
	flag.StringVar(&addr, "addr", "", "Board address (host:port); overrides discovery")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "Discovery timeout")
	flag.Parse()

	if addr == "" {
		found, err := discoverBoard(timeout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "discovery failed: %v\n", err)
			fmt.Fprintln(os.Stderr, "use -addr to connect directly")
			os.Exit(1)
		}
		addr = found
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to %s: %v\n", addr, err)
		os.Exit(1)
	}
	defer conn.Close()
	fmt.Printf("Connected to %s\n", addr)

	if err := runPrompt(conn); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// discoverBoard browses for the remote-control service and returns the
// first instance's address.
func discoverBoard(timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 4)
	removed := make(chan *zeroconf.ServiceEntry, 4)
	go func() {
		_ = zeroconf.Browse(ctx, discovery.ServiceType, discovery.Domain, entries, removed)
	}()

	fmt.Printf("Looking for %s instances...\n", discovery.ServiceType)
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return "", fmt.Errorf("no board found")
			}
			if entry == nil {
				continue
			}
			if len(entry.AddrIPv4) > 0 {
				return net.JoinHostPort(entry.AddrIPv4[0].String(), strconv.Itoa(entry.Port)), nil
			}
		case <-removed:
			// Not tracking instances; drained so the browser never blocks.
		case <-ctx.Done():
			return "", fmt.Errorf("no board found within %s", timeout)
		}
	}
}

const helpText = `Commands:
  1-6          press the numbered button
  cycle, c     advance the display (button 1)
  temp, t      show temperatures (button 2)
  price, p     fetch the BTC/EUR price (button 3)
  reset        reset the board (button 6)
  help, ?      show this help
  exit, quit   disconnect and exit
`

// runPrompt reads commands and sends the corresponding button bytes.
func runPrompt(conn net.Conn) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "rpiui> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	fmt.Print(helpText)

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			return nil
		}

		input := strings.ToLower(strings.TrimSpace(line))
		if input == "" {
			continue
		}

		var button byte
		switch input {
		case "help", "?":
			fmt.Print(helpText)
			continue
		case "exit", "quit":
			return nil
		case "cycle", "c":
			button = 1
		case "temp", "t":
			button = 2
		case "price", "p":
			button = 3
		case "reset":
			button = 6
		default:
			n, err := strconv.Atoi(input)
			if err != nil || n < 1 || n > 6 {
				fmt.Fprintf(rl.Stdout(), "unknown command: %s\n", input)
				continue
			}
			button = byte(n)
		}

		if _, err := conn.Write([]byte{button}); err != nil {
			return fmt.Errorf("connection lost: %w", err)
		}
		fmt.Fprintf(rl.Stdout(), "sent button %d\n", button)
	}
}
