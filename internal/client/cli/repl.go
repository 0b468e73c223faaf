package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Upload(ctx context.Context, path string) error
	List(ctx context.Context) error
	Share(ctx context.Context, fileID string) error
}

// runREPL reads commands line by line until EOF, "exit" or "quit".
//
//	help              show available commands
//	login             enter an access token
//	upload [path]     encrypt and store a file on the server
//	list | l          list uploaded files
//	share [file-id]   get a share link
//	logout            forget the access token
//	exit | quit       leave
//
// Command errors are reported by the handlers themselves.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("sl %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, arg := parts[0], ""
		if len(parts) > 1 {
			arg = strings.Join(parts[1:], " ")
		}

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: upload, (l)ist, share, logout, exit")
			} else {
				printlnFn("Available commands: login, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "upload", "l", "list", "share":
			if !a.isLoggedIn() {
				printlnFn("Please login first.")
				continue
			}
			switch cmd {
			case "upload":
				_ = a.Upload(ctx, arg)
			case "share":
				_ = a.Share(ctx, arg)
			default:
				_ = a.List(ctx)
			}

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
