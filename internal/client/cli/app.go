// Package cli is an interactive owner console: it uploads files, lists them
// and hands out share links through the server's gRPC API.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/securelink/internal/client/client"
	"github.com/dmitrijs2005/securelink/internal/client/config"
)

// OwnerAPI is the remote surface the console drives.
type OwnerAPI interface {
	Upload(ctx context.Context, filename string, data []byte) (*client.FileInfo, error)
	List(ctx context.Context) ([]client.FileInfo, error)
	Share(ctx context.Context, fileID string) (*client.Link, error)
	SetAccessToken(token string)
	HasAccessToken() bool
	Close() error
}

type App struct {
	api     OwnerAPI
	timeout time.Duration
	reader  *bufio.Reader
	out     io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	api, err := client.NewOwnerClient(c.ServerEndpointAddr)
	if err != nil {
		return nil, err
	}
	api.SetAccessToken(c.AccessToken)

	return &App{api: api, timeout: c.Timeout, reader: bufio.NewReader(os.Stdin), out: os.Stdout}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.api.Close()

	fmt.Fprintln(a.out, "Welcome to securelink (type 'help' for commands)")
	runREPL(ctx, a, a.status, bufio.NewScanner(a.reader))
}

func (a *App) isLoggedIn() bool {
	return a.api.HasAccessToken()
}

func (a *App) status() string {
	if a.isLoggedIn() {
		return "(owner)"
	}
	return ""
}

func (a *App) call(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

// report prints a one-line explanation of err.
func (a *App) report(err error) error {
	switch {
	case errors.Is(err, client.ErrUnauthorized):
		fmt.Fprintln(a.out, "Not authorized. Use 'login' with a valid access token.")
	case errors.Is(err, client.ErrUnavailable):
		fmt.Fprintln(a.out, "Server unavailable, try again later.")
	case errors.Is(err, client.ErrNotFound):
		fmt.Fprintln(a.out, "File not found.")
	default:
		fmt.Fprintln(a.out, "Error:", err)
	}
	return err
}

func (a *App) Login(ctx context.Context) error {
	token, err := GetSecret("Access token: ", a.out)
	if err != nil {
		return a.report(err)
	}
	if token == "" {
		fmt.Fprintln(a.out, "Empty token, not logged in.")
		return nil
	}
	a.api.SetAccessToken(token)
	fmt.Fprintln(a.out, "Token stored for this session.")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.api.SetAccessToken("")
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func (a *App) Upload(ctx context.Context, path string) error {
	if path == "" {
		p, err := GetSimpleText(a.reader, "Path of the file to upload", a.out)
		if err != nil {
			return a.report(err)
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return a.report(err)
	}

	ctx, cancel := a.call(ctx)
	defer cancel()

	info, err := a.api.Upload(ctx, filepath.Base(path), data)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "Uploaded %s as %s\n", info.Filename, info.ID)
	return nil
}

func (a *App) List(ctx context.Context) error {
	ctx, cancel := a.call(ctx)
	defer cancel()

	files, err := a.api.List(ctx)
	if err != nil {
		return a.report(err)
	}
	if len(files) == 0 {
		fmt.Fprintln(a.out, "No files uploaded yet.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILENAME\tUPLOADED\tLINK EXPIRES")
	for _, f := range files {
		expires := "-"
		if f.TokenExpiresAt != nil {
			expires = f.TokenExpiresAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.ID, f.Filename, f.UploadedAt.Local().Format(time.DateTime), expires)
	}
	return tw.Flush()
}

func (a *App) Share(ctx context.Context, fileID string) error {
	if fileID == "" {
		id, err := GetSimpleText(a.reader, "File ID", a.out)
		if err != nil {
			return a.report(err)
		}
		fileID = id
	}

	ctx, cancel := a.call(ctx)
	defer cancel()

	link, err := a.api.Share(ctx, fileID)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "%s\n(valid until %s)\n", link.URL, link.ExpiresAt.Local().Format(time.DateTime))
	return nil
}
