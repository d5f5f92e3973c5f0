package schoolctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aussiebroadwan/neoschool/pkg/schoolsdk"
)

const prompt = "neoschool> "

// trailingJSON maps commands whose last argument is a JSON document to
// that argument's index. The document may contain spaces.
var trailingJSON = map[string]int{
	"create":     2,
	"update":     3,
	"bulk-marks": 1,
}

// shell reads commands until exit or end of input. Every line counts as
// user activity for the session monitor, which signs the user out after
// the idle timeout and refreshes the access token in the background.
func (a *App) shell(ctx context.Context, args []string) error {
	if err := a.expectArgs("shell", args, 0); err != nil {
		return err
	}

	mon := a.client.NewMonitor(schoolsdk.MonitorConfig{
		IdleTimeout:  a.cfg.IdleTimeout,
		RefreshEvery: a.cfg.RefreshEvery,
	})
	defer mon.Stop()

	if !mon.Start(ctx) {
		fmt.Fprintln(a.stderr, "not logged in; use: login [-remember] <username>")
	}

	for {
		fmt.Fprint(a.stdout, prompt)

		line, err := a.readLine()
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(a.stdout)
			return nil
		}
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		mon.Touch()

		fields := splitLine(strings.TrimSpace(line))
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "exit", "quit":
			return nil
		case "shell":
			fmt.Fprintln(a.stderr, "already in a shell")
			continue
		}

		if err := a.Run(ctx, fields); err != nil && !errors.Is(err, ErrUsage) {
			fmt.Fprintln(a.stderr, "error:", err)
			if schoolsdk.IsAuthFailure(err) && fields[0] != "login" {
				fmt.Fprintln(a.stderr, "use: login [-remember] <username>")
			}
		}

		// A login inside the shell starts a new session to watch.
		if fields[0] == "login" {
			mon.Start(ctx)
		}
	}
}

// splitLine splits a shell line on whitespace, keeping a trailing JSON
// document in one piece.
func splitLine(line string) []string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	n, ok := trailingJSON[fields[0]]
	if !ok || len(fields) <= n+1 {
		return fields
	}

	out := make([]string, 0, n+1)
	rest := line
	for range n {
		rest = strings.TrimLeft(rest, " \t")
		i := strings.IndexAny(rest, " \t")
		out = append(out, rest[:i])
		rest = rest[i:]
	}
	return append(out, strings.TrimSpace(rest))
}
