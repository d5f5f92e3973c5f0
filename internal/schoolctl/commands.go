package schoolctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aussiebroadwan/neoschool/pkg/schoolsdk"
)

const usage = `usage: schoolctl <command> [arguments]

commands:
  login [-remember] <username>         sign in (password from NEOSCHOOL_PASSWORD or stdin)
  logout                               sign out and forget the session
  whoami                               show the signed-in user
  check                                ask the backend whether the session is valid
  list <resource> [field=value ...]    list a collection, optionally filtered
  get <resource> <id>                  show one record
  create <resource> <json|->           create a record
  update <resource> <id> <json|->      replace a record
  delete <resource> <id>               delete a record
  bulk-marks <json|->                  upload a JSON array of exam marks
  download <path> <file>               save a result document, e.g. results/mark-sheet/<student>/<exam>
  shell                                interactive session with idle timeout
  version                              print the version

resources: students, teachers, subjects, grades, exams, exam-marks
`

// Run executes one command line.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.usageError("")
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return a.login(ctx, rest)
	case "logout":
		return a.logout(ctx, rest)
	case "whoami":
		return a.whoami(ctx, rest)
	case "check":
		return a.check(ctx, rest)
	case "list":
		return a.list(ctx, rest)
	case "get":
		return a.get(ctx, rest)
	case "create":
		return a.create(ctx, rest)
	case "update":
		return a.update(ctx, rest)
	case "delete":
		return a.delete(ctx, rest)
	case "bulk-marks":
		return a.bulkMarks(ctx, rest)
	case "download":
		return a.download(ctx, rest)
	case "shell":
		return a.shell(ctx, rest)
	case "version":
		fmt.Fprintln(a.stdout, "schoolctl", Version)
		return nil
	case "help", "-h", "--help":
		fmt.Fprint(a.stdout, usage)
		return nil
	default:
		return a.usageError(fmt.Sprintf("unknown command %q", cmd))
	}
}

func (a *App) usageError(msg string) error {
	if msg != "" {
		fmt.Fprintln(a.stderr, msg)
	}
	fmt.Fprint(a.stderr, usage)
	return ErrUsage
}

func (a *App) expectArgs(cmd string, args []string, n int) error {
	if len(args) != n {
		return a.usageError(fmt.Sprintf("%s: expected %d argument(s), got %d", cmd, n, len(args)))
	}
	return nil
}

func (a *App) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	remember := fs.Bool("remember", a.cfg.Remember, "keep the session after schoolctl exits")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	if err := a.expectArgs("login", fs.Args(), 1); err != nil {
		return err
	}
	username := fs.Arg(0)

	password := a.cfg.Password
	if password == "" {
		fmt.Fprint(a.stderr, "Password: ")
		line, err := a.readLine()
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r")
	}

	user, err := a.client.Login(ctx, username, password, *remember)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Logged in as %s (%s)\n", user.Username, strings.Join(user.Roles, ", "))
	return nil
}

func (a *App) logout(ctx context.Context, args []string) error {
	if err := a.expectArgs("logout", args, 0); err != nil {
		return err
	}
	if err := a.client.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Logged out")
	return nil
}

func (a *App) whoami(ctx context.Context, args []string) error {
	if err := a.expectArgs("whoami", args, 0); err != nil {
		return err
	}
	user, ok := a.client.CurrentUser(ctx)
	if !ok {
		return schoolsdk.ErrNotLoggedIn
	}

	fmt.Fprintf(a.stdout, "username:   %s\n", user.Username)
	fmt.Fprintf(a.stdout, "roles:      %s\n", strings.Join(user.Roles, ", "))
	fmt.Fprintf(a.stdout, "expires:    %s\n", user.ExpiresAt.Local().Format(time.RFC3339))
	fmt.Fprintf(a.stdout, "remembered: %t\n", user.Persistent)
	return nil
}

func (a *App) check(ctx context.Context, args []string) error {
	if err := a.expectArgs("check", args, 0); err != nil {
		return err
	}
	if _, ok := a.client.CurrentUser(ctx); !ok {
		return schoolsdk.ErrNotLoggedIn
	}

	valid, err := a.client.CheckSession(ctx)
	if err != nil {
		return err
	}
	if valid {
		fmt.Fprintln(a.stdout, "session valid")
	} else {
		fmt.Fprintln(a.stdout, "session invalid")
	}
	return nil
}

func (a *App) collection(name string) (*schoolsdk.Collection, error) {
	res, err := schoolsdk.ParseResource(name)
	if err != nil {
		return nil, err
	}
	return a.client.Collection(res), nil
}

func (a *App) list(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.usageError("list: expected a resource")
	}
	col, err := a.collection(args[0])
	if err != nil {
		return err
	}

	query := url.Values{}
	for _, kv := range args[1:] {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return a.usageError(fmt.Sprintf("list: filter %q is not field=value", kv))
		}
		query.Add(k, v)
	}

	out, err := col.List(ctx, query)
	if err != nil {
		return err
	}
	return a.printJSON(out)
}

func (a *App) get(ctx context.Context, args []string) error {
	if err := a.expectArgs("get", args, 2); err != nil {
		return err
	}
	col, err := a.collection(args[0])
	if err != nil {
		return err
	}
	out, err := col.Get(ctx, args[1])
	if err != nil {
		return err
	}
	return a.printJSON(out)
}

func (a *App) create(ctx context.Context, args []string) error {
	if err := a.expectArgs("create", args, 2); err != nil {
		return err
	}
	col, err := a.collection(args[0])
	if err != nil {
		return err
	}
	body, err := a.document(args[1])
	if err != nil {
		return err
	}
	out, err := col.Create(ctx, body)
	if err != nil {
		return err
	}
	return a.printJSON(out)
}

func (a *App) update(ctx context.Context, args []string) error {
	if err := a.expectArgs("update", args, 3); err != nil {
		return err
	}
	col, err := a.collection(args[0])
	if err != nil {
		return err
	}
	body, err := a.document(args[2])
	if err != nil {
		return err
	}
	out, err := col.Update(ctx, args[1], body)
	if err != nil {
		return err
	}
	return a.printJSON(out)
}

func (a *App) delete(ctx context.Context, args []string) error {
	if err := a.expectArgs("delete", args, 2); err != nil {
		return err
	}
	col, err := a.collection(args[0])
	if err != nil {
		return err
	}
	if err := col.Delete(ctx, args[1]); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Deleted %s/%s\n", args[0], args[1])
	return nil
}

func (a *App) bulkMarks(ctx context.Context, args []string) error {
	if err := a.expectArgs("bulk-marks", args, 1); err != nil {
		return err
	}
	body, err := a.document(args[0])
	if err != nil {
		return err
	}
	out, err := a.client.BulkExamMarks(ctx, body)
	if err != nil {
		return err
	}
	return a.printJSON(out)
}

func (a *App) download(ctx context.Context, args []string) error {
	if err := a.expectArgs("download", args, 2); err != nil {
		return err
	}

	f, err := os.Create(args[1])
	if err != nil {
		return fmt.Errorf("create %s: %w", args[1], err)
	}

	n, err := a.client.Download(ctx, "/"+strings.TrimPrefix(args[0], "/"), f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(args[1])
		return err
	}

	fmt.Fprintf(a.stdout, "Saved %d bytes to %s\n", n, args[1])
	return nil
}

// document reads a JSON argument. "-" reads the rest of stdin.
func (a *App) document(arg string) (json.RawMessage, error) {
	var raw []byte
	if arg == "-" {
		var b strings.Builder
		for {
			line, err := a.readLine()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("read document: %w", err)
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
		raw = []byte(b.String())
	} else {
		raw = []byte(arg)
	}

	if !json.Valid(raw) {
		return nil, errors.New("document is not valid JSON")
	}
	return json.RawMessage(bytes.TrimSpace(raw)), nil
}

func (a *App) printJSON(raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		// Not JSON after all; show it as received.
		_, err := a.stdout.Write(append(raw, '\n'))
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(a.stdout)
	return err
}
