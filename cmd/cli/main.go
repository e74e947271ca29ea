// Command tb is a CLI client for the task-board API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/and161185/taskboard/internal/client"
	"github.com/and161185/taskboard/internal/convert"
	"github.com/and161185/taskboard/internal/errs"
	"github.com/and161185/taskboard/internal/reorder"
)

// ---- config/token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "taskboard")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "taskboard")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tok string, exp time.Time) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tokenFile{AccessToken: tok, ExpiresAt: exp})
}

func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return "", errors.New("no valid token (login required)")
	}
	return tf.AccessToken, nil
}

// ---- utils ----

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// optional returns a pointer to the flag value only if the flag was set on the command line.
func optional(fs *flag.FlagSet, name string, v *string) *string {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	if !set {
		return nil
	}
	return v
}

func usage() {
	fmt.Fprintf(os.Stderr, `tb CLI
Usage:
  tb [-addr URL] <cmd> [args]

Commands:
  version
  register   -e <email> -p <password> [-n <name>]   (saves token)
  login      -e <email> -p <password>               (saves token)
  me
  boards
  board-add  -name <name> [-desc <text>]
  tasks      [-board <id>]                          (default board if omitted)
  add        -title <t> [-desc <d>] [-status s] [-color c] [-board <id>]
  edit       -id <task> [-title t] [-desc d] [-status s] [-color c] [-board <id>]
  mv         -id <task> -to <todo|inprogress|done> [-index n]
  rm         -id <task>
  tag        -id <task> -label <l> [-color c]
  link       -id <task> -url <u> [-name n]
  upload     -id <task> -file <path>
`)
	os.Exit(2)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	addr := flag.String("addr", "http://localhost:5050", "server base URL")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c := client.New(*addr, nil)
	if err := run(ctx, c, flag.Arg(0), flag.Args()[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			usage()
		}
		fail(err)
	}
}

var errUsage = errors.New("usage")

func need(msg string) error { return fmt.Errorf("%s: %w", msg, errUsage) }

// authed loads the saved token into c.
func authed(c *client.Client) error {
	tok, err := loadToken()
	if err != nil {
		return err
	}
	c.Token = tok
	return nil
}

// run executes one subcommand; every command except version, register and login needs a saved token.
func run(ctx context.Context, c *client.Client, cmd string, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	switch cmd {
	case "version":
		fmt.Fprintf(out, "tb %s (%s)\n", version, buildDate)
		return nil

	case "register", "login":
		email := fs.String("e", "", "email")
		pass := fs.String("p", "", "password")
		name := fs.String("n", "", "display name (register only)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *email == "" || *pass == "" {
			return need("need -e and -p")
		}
		var (
			res *convert.Auth
			err error
		)
		if cmd == "register" {
			res, err = c.Register(ctx, *email, *pass, *name)
		} else {
			res, err = c.Login(ctx, *email, *pass)
		}
		if err != nil {
			return err
		}
		if err := saveToken(res.Token, res.ExpiresAt); err != nil {
			return err
		}
		fmt.Fprintln(out, "ok")
		return nil

	case "", "help":
		return errUsage
	}

	if err := authed(c); err != nil {
		return err
	}

	switch cmd {
	case "me":
		u, err := c.Me(ctx)
		if err != nil {
			return err
		}
		printJSON(out, u)

	case "boards":
		boards, err := c.Boards(ctx)
		if err != nil {
			return err
		}
		for _, b := range boards {
			fmt.Fprintf(out, "%s  %-24s %d tasks\n", b.ID, b.Name, b.TaskCount)
		}

	case "board-add":
		name := fs.String("name", "", "board name")
		desc := fs.String("desc", "", "description")
		if err := fs.Parse(args); err != nil {
			return err
		}
		b, err := c.CreateBoard(ctx, *name, *desc)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, b.ID)

	case "tasks":
		boardID := fs.String("board", "", "board id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		id, err := resolveBoard(ctx, c, *boardID)
		if err != nil {
			return err
		}
		tasks, err := c.Tasks(ctx, id)
		if err != nil {
			return err
		}
		printBoard(out, reorder.New(c, tasks))

	case "add":
		title := fs.String("title", "", "title")
		desc := fs.String("desc", "", "description")
		status := fs.String("status", "", "status (default todo)")
		color := fs.String("color", "", "card color")
		boardID := fs.String("board", "", "board id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if strings.TrimSpace(*title) == "" {
			return need("need -title")
		}
		id, err := resolveBoard(ctx, c, *boardID)
		if err != nil {
			return err
		}
		t, err := c.CreateTask(ctx, convert.TaskCreateRequest{
			Title: *title, Description: *desc, Status: *status, Color: *color, BoardID: id,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, t.ID)

	case "edit":
		id := fs.String("id", "", "task id")
		title := fs.String("title", "", "title")
		desc := fs.String("desc", "", "description")
		status := fs.String("status", "", "status")
		color := fs.String("color", "", "card color")
		boardID := fs.String("board", "", "move to board")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *id == "" {
			return need("need -id")
		}
		req := convert.TaskPatchRequest{
			Title:       optional(fs, "title", title),
			Description: optional(fs, "desc", desc),
			Status:      optional(fs, "status", status),
			Color:       optional(fs, "color", color),
			BoardID:     optional(fs, "board", boardID),
		}
		t, err := c.PatchTask(ctx, *id, req)
		if err != nil {
			return err
		}
		printJSON(out, t)

	case "mv":
		id := fs.String("id", "", "task id")
		to := fs.String("to", "", "destination column")
		index := fs.Int("index", -1, "position in the destination column (default: end)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *id == "" || *to == "" {
			return need("need -id and -to")
		}
		return move(ctx, c, *id, *to, *index, out)

	case "rm":
		id := fs.String("id", "", "task id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *id == "" {
			return need("need -id")
		}
		if err := c.DeleteTask(ctx, *id); err != nil {
			return err
		}
		fmt.Fprintln(out, "deleted")

	case "tag":
		id := fs.String("id", "", "task id")
		label := fs.String("label", "", "tag label")
		color := fs.String("color", "", "tag color")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *id == "" || *label == "" {
			return need("need -id and -label")
		}
		g, err := c.AddTag(ctx, *id, *label, *color)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, g.ID)

	case "link":
		id := fs.String("id", "", "task id")
		u := fs.String("url", "", "link url")
		name := fs.String("name", "", "display name")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *id == "" || *u == "" {
			return need("need -id and -url")
		}
		a, err := c.AddLink(ctx, *id, *u, *name)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, a.ID)

	case "upload":
		id := fs.String("id", "", "task id")
		path := fs.String("file", "", "file to upload")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *id == "" || *path == "" {
			return need("need -id and -file")
		}
		f, err := os.Open(*path)
		if err != nil {
			return err
		}
		defer f.Close()
		a, err := c.Upload(ctx, *id, filepath.Base(*path), f)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, a.URL)

	default:
		return errUsage
	}
	return nil
}

func resolveBoard(ctx context.Context, c *client.Client, id string) (string, error) {
	if id != "" {
		return id, nil
	}
	b, err := c.DefaultBoard(ctx)
	if err != nil {
		return "", err
	}
	return b.ID, nil
}

// move loads the task's board and drops the card at index in column to.
func move(ctx context.Context, c *client.Client, id, to string, index int, out io.Writer) error {
	t, err := c.Task(ctx, id)
	if err != nil {
		return err
	}
	tasks, err := c.Tasks(ctx, t.BoardID)
	if err != nil {
		return err
	}
	b := reorder.New(c, tasks)
	from, ok := b.Find(id)
	if !ok {
		return fmt.Errorf("task %s: %w", id, errs.ErrNotFound)
	}
	if index < 0 {
		index = len(b.Column(to))
		if from.Column == to {
			index--
		}
	}
	if err := b.Move(ctx, from, reorder.Position{Column: to, Index: index}); err != nil {
		return err
	}
	printBoard(out, b)
	return nil
}

func printBoard(w io.Writer, b *reorder.Board) {
	for _, col := range reorder.Columns {
		cards := b.Column(col)
		fmt.Fprintf(w, "== %s (%d)\n", col, len(cards))
		for _, t := range cards {
			line := fmt.Sprintf("  %s  %s", t.ID, t.Title)
			if len(t.Tags) > 0 {
				labels := make([]string, len(t.Tags))
				for i, g := range t.Tags {
					labels[i] = g.Label
				}
				line += "  [" + strings.Join(labels, ", ") + "]"
			}
			if t.Status != col {
				line += "  (" + t.Status + ")"
			}
			fmt.Fprintln(w, line)
		}
	}
}

func fail(err error) {
	var ae *client.APIError
	if errors.As(err, &ae) {
		fmt.Fprintf(os.Stderr, "api error: status=%d msg=%s\n", ae.Status, ae.Message)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
