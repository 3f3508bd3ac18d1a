// Command lancet is the precision editor for word processing documents.
// It provides an interactive editing shell, one-shot inspection and
// validation commands, and an HTTP/WebSocket server mode.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/lancetdoc/lancet/core/engine"
	"github.com/lancetdoc/lancet/core/journal"
	"github.com/lancetdoc/lancet/core/validate"
	"github.com/lancetdoc/lancet/internal/history"
	"github.com/lancetdoc/lancet/internal/logging"
	"github.com/lancetdoc/lancet/internal/server"
	"github.com/lancetdoc/lancet/internal/shell"
)

const version = "0.3.0"

// CLI defines the command-line interface for lancet.
var CLI struct {
	// Global flags
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)" default:"info"`
	LogFormat string `name:"log-format" help:"Log format (json, text)" default:"json"`
	Journal   string `name:"journal" help:"Record session events to this file (.xz compresses)" type:"path"`
	History   string `name:"history" help:"History database path (defaults to the user config dir)" type:"path"`
	NoHistory bool   `name:"no-history" help:"Disable load/save history recording"`

	Edit     EditCmd     `cmd:"" default:"withargs" help:"Open the interactive editing shell"`
	Run      RunCmd      `cmd:"" help:"Execute shell commands from a script file"`
	Inspect  InspectCmd  `cmd:"" help:"Print the document map as JSON"`
	Validate ValidateCmd `cmd:"" help:"Check a document package without opening a session"`
	Serve    ServeCmd    `cmd:"" help:"Serve one editing session over HTTP and WebSocket"`
	Version  VersionCmd  `cmd:"" help:"Print version information"`
}

// newSession builds a session honoring the global journal and history
// flags. A history store that fails to open disables recording rather
// than aborting the command.
func newSession() (*engine.Session, func(), error) {
	var store *history.Store
	if !CLI.NoHistory {
		path := CLI.History
		if path == "" {
			if p, err := history.DefaultPath(); err == nil {
				path = p
			}
		}
		if path != "" {
			s, err := history.Open(path)
			if err != nil {
				logging.Warn("history disabled", "error", err.Error(), "path", path)
			} else {
				store = s
			}
		}
	}

	session := engine.NewSession(engine.Options{History: store})

	if CLI.Journal != "" {
		w, err := journal.Create(CLI.Journal, session.ID)
		if err != nil {
			session.Close()
			if store != nil {
				store.Close()
			}
			return nil, nil, fmt.Errorf("create journal: %w", err)
		}
		session.AttachJournal(w)
	}

	cleanup := func() {
		if err := session.Close(); err != nil {
			logging.Warn("session close failed", "error", err.Error())
		}
		if store != nil {
			store.Close()
		}
	}
	return session, cleanup, nil
}

// EditCmd opens the interactive shell, optionally preloading a document.
type EditCmd struct {
	File string `arg:"" optional:"" help:"Document to load on startup" type:"existingfile"`
}

func (c *EditCmd) Run() error {
	session, cleanup, err := newSession()
	if err != nil {
		return err
	}
	defer cleanup()

	if c.File != "" {
		res, err := session.Load(c.File)
		if err != nil {
			return err
		}
		fmt.Printf("Loaded %s\nStats: total_paragraphs=%d, total_tables=%d\n",
			res.Path, res.Paragraphs, res.Tables)
	}

	return shell.New(session, os.Stdin, os.Stdout).Run()
}

// RunCmd feeds a script of shell commands through a non-interactive
// session. Blank lines and lines starting with # are skipped.
type RunCmd struct {
	Script string `arg:"" help:"File with one shell command per line" type:"existingfile"`
}

func (c *RunCmd) Run() error {
	session, cleanup, err := newSession()
	if err != nil {
		return err
	}
	defer cleanup()

	f, err := os.Open(c.Script)
	if err != nil {
		return err
	}
	defer f.Close()

	sh := shell.New(session, strings.NewReader(""), io.Discard)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fmt.Println("> " + line)
		output, quit := sh.Execute(line)
		if output != "" {
			fmt.Println(output)
		}
		if quit {
			break
		}
	}
	return scanner.Err()
}

// InspectCmd loads a document and prints its map without recording
// history or journal entries.
type InspectCmd struct {
	File string `arg:"" help:"Document to map" type:"existingfile"`
}

func (c *InspectCmd) Run() error {
	session := engine.NewSession(engine.Options{})
	defer session.Close()

	if _, err := session.Load(c.File); err != nil {
		return err
	}
	out, err := session.MapJSON()
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

// ValidateCmd checks a package and exits nonzero when any stage fails.
// The file argument is deliberately not existence-checked: a missing
// file is reported as a container failure, the same as any unreadable
// package.
type ValidateCmd struct {
	File string `arg:"" help:"Document to validate"`
	JSON bool   `help:"Emit the report as JSON"`
}

func (c *ValidateCmd) Run() error {
	report := validate.File(c.File)
	if c.JSON {
		data, err := report.ToJSON()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	} else {
		fmt.Println(report.Summary())
	}
	if !report.OK() {
		os.Exit(1)
	}
	return nil
}

// ServeCmd runs the HTTP/WebSocket server around a single session.
type ServeCmd struct {
	File           string   `arg:"" optional:"" help:"Document to load on startup" type:"existingfile"`
	Port           int      `help:"HTTP server port" default:"8081"`
	AllowedOrigins []string `name:"allowed-origin" help:"Origin allowed to connect (repeatable; default allows all)"`
	APIKey         string   `name:"api-key" env:"LANCET_API_KEY" help:"Require this X-API-Key header on requests"`
}

func (c *ServeCmd) Run() error {
	session, cleanup, err := newSession()
	if err != nil {
		return err
	}
	defer cleanup()

	if c.File != "" {
		res, err := session.Load(c.File)
		if err != nil {
			return err
		}
		fmt.Printf("Loaded %s\nStats: total_paragraphs=%d, total_tables=%d\n",
			res.Path, res.Paragraphs, res.Tables)
	}

	cfg := server.Config{
		Port:           c.Port,
		Version:        version,
		AllowedOrigins: c.AllowedOrigins,
		Auth: server.AuthConfig{
			Enabled: c.APIKey != "",
			APIKey:  c.APIKey,
		},
	}
	return server.New(cfg, session).Start()
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("lancet version %s\n", version)
	info := history.DriverInfo()
	fmt.Printf("sqlite driver: %s (%s)\n", info.DriverType, info.Package)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("lancet"),
		kong.Description("Lancet - Precision editor for word processing documents"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	logging.InitLogger(logging.ParseLevel(CLI.LogLevel), logging.ParseFormat(CLI.LogFormat))

	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
