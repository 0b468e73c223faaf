package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"
)

type fakeExec struct {
	loggedIn bool

	calls []string
	args  []string
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Login(ctx context.Context) error {
	f.calls = append(f.calls, "login")
	f.loggedIn = true
	return nil
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.calls = append(f.calls, "logout")
	f.loggedIn = false
	return nil
}
func (f *fakeExec) Upload(ctx context.Context, path string) error {
	f.calls = append(f.calls, "upload")
	f.args = append(f.args, path)
	return nil
}
func (f *fakeExec) List(ctx context.Context) error { f.calls = append(f.calls, "list"); return nil }
func (f *fakeExec) Share(ctx context.Context, id string) error {
	f.calls = append(f.calls, "share")
	f.args = append(f.args, id)
	return nil
}

func silence(t *testing.T) *[]string {
	t.Helper()
	var printed []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		parts := make([]string, len(a))
		for i, v := range a {
			parts[i], _ = v.(string)
		}
		printed = append(printed, strings.Join(parts, " "))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &printed
}

func TestRunREPL_LoginFlowAndCommands(t *testing.T) {
	silence(t)

	input := strings.NewReader(strings.Join([]string{
		"",
		"list",
		"login",
		"upload ./My Report.pdf",
		"l",
		"share 7d1f",
		"logout",
		"exit",
		"list",
	}, "\n"))

	f := &fakeExec{}
	runREPL(context.Background(), f, func() string { return "" }, bufio.NewScanner(input))

	want := []string{"login", "upload", "list", "share", "logout"}
	if strings.Join(f.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", f.calls, want)
	}
	if f.args[0] != "./My Report.pdf" || f.args[1] != "7d1f" {
		t.Fatalf("args = %q", f.args)
	}
}

func TestRunREPL_HelpAndUnknown(t *testing.T) {
	printed := silence(t)

	input := strings.NewReader("help\nfrobnicate\nquit\n")
	runREPL(context.Background(), &fakeExec{}, func() string { return "" }, bufio.NewScanner(input))

	out := strings.Join(*printed, "\n")
	if !strings.Contains(out, "Available commands: login, exit") {
		t.Fatalf("help output missing:\n%s", out)
	}
	if !strings.Contains(out, "Unknown command: frobnicate") {
		t.Fatalf("unknown command not reported:\n%s", out)
	}
	if !strings.Contains(out, "Bye!") {
		t.Fatalf("no goodbye:\n%s", out)
	}
}

func TestRunREPL_RequiresLogin(t *testing.T) {
	printed := silence(t)

	f := &fakeExec{}
	runREPL(context.Background(), f, func() string { return "" }, bufio.NewScanner(strings.NewReader("upload x.txt\nshare 1\n")))

	if len(f.calls) != 0 {
		t.Fatalf("unexpected calls %v", f.calls)
	}
	if !strings.Contains(strings.Join(*printed, "\n"), "Please login first.") {
		t.Fatal("login hint missing")
	}
}
