package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. App satisfies it;
// tests provide a stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Get(ctx context.Context, path string) error
	DropAccess(ctx context.Context) error
	DropRefresh(ctx context.Context) error
}

// runREPL reads commands line by line from reader and dispatches them to a
// until EOF, "exit" or "quit".
//
//	Not logged in:
//	  - help, login, status, exit | quit
//
//	Logged in:
//	  - help, status, whoami, get <path>, drop-access, drop-refresh,
//	    logout, exit | quit
//
// Handler errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("tk %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: status, whoami, get <path>, drop-access, drop-refresh, logout, exit")
			} else {
				printlnFn("Available commands: login, status, exit")
			}

		case "login":
			cmdErr = a.Login(ctx)

		case "logout":
			cmdErr = a.Logout(ctx)

		case "status":
			cmdErr = a.Status(ctx)

		case "whoami":
			cmdErr = a.WhoAmI(ctx)

		case "get":
			if len(args) == 0 {
				printlnFn("Usage: get <path>")
				continue
			}
			cmdErr = a.Get(ctx, args[0])

		case "drop-access":
			cmdErr = a.DropAccess(ctx)

		case "drop-refresh":
			cmdErr = a.DropRefresh(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
	}
}
