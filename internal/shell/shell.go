// Package shell is the interactive command surface: a line-oriented REPL
// that drives one editing session. Command errors are printed and the loop
// keeps going; only exit, quit, or EOF end it.
package shell

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/lancetdoc/lancet/core/engine"
	lanceterrors "github.com/lancetdoc/lancet/core/errors"
	"github.com/lancetdoc/lancet/core/journal"
)

// commandLine is one parsed input line: a verb and its arguments. Arguments
// are bare words or double-quoted strings, so replacement text with spaces
// can be passed as a single argument.
//
//nolint:govet // participle grammar tags are not standard struct tags
type commandLine struct {
	Verb string   `parser:"@Word"`
	Args []string `parser:"( @String | @Word )*"`
}

var lineLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Word", Pattern: `[^\s"]+`},
	{Name: "whitespace", Pattern: `\s+`},
})

var lineParser = participle.MustBuild[commandLine](
	participle.Lexer(lineLexer),
	participle.Unquote("String"),
)

func parseLine(line string) (*commandLine, error) {
	cmd, err := lineParser.ParseString("", line)
	if err != nil {
		return nil, &lanceterrors.CommandError{Message: "cannot parse input", Err: err}
	}
	return cmd, nil
}

const banner = `--- Lancet Precision Document Editor ---
Type 'help' for commands or 'exit' to quit.`

const helpText = `
Commands:
  load [filename]               - Load a .docx file
  map                           - Show document structure JSON
  replace [id] [text...]        - Replace text in ID
  insert_after [id] [text...]   - Insert paragraph after ID
  delete [id]                   - Delete element
  format [id] [key=value...]    - Set bold/italic/underline/font/size
  save [filename]               - Save output
  validate [filename]           - Check integrity
  journal [filename]            - Write the session journal
  history                       - Show recent loads and saves
  exit | quit                   - Leave the editor`

// Shell runs commands against one session.
type Shell struct {
	session *engine.Session
	in      io.Reader
	out     io.Writer
}

// New wires a shell to a session and its I/O streams.
func New(session *engine.Session, in io.Reader, out io.Writer) *Shell {
	return &Shell{session: session, in: in, out: out}
}

// Run reads commands until exit, quit, or EOF.
func (sh *Shell) Run() error {
	fmt.Fprintln(sh.out, banner)

	scanner := bufio.NewScanner(sh.in)
	for {
		fmt.Fprint(sh.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(sh.out)
			break
		}
		output, quit := sh.Execute(scanner.Text())
		if output != "" {
			fmt.Fprintln(sh.out, output)
		}
		if quit {
			break
		}
	}
	return scanner.Err()
}

// Execute runs one command line and returns its printable output, plus
// whether the shell should stop. It never panics and never kills the
// session on a command error.
func (sh *Shell) Execute(line string) (output string, quit bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}

	cmd, err := parseLine(line)
	if err != nil {
		return "Error: " + err.Error(), false
	}

	verb := strings.ToLower(cmd.Verb)
	args := cmd.Args

	switch verb {
	case "exit", "quit":
		return "", true
	case "help":
		return helpText, false
	case "load":
		return sh.cmdLoad(args), false
	case "map":
		return sh.cmdMap(), false
	case "replace":
		return sh.cmdReplace(args), false
	case "insert_after":
		return sh.cmdInsertAfter(args), false
	case "delete":
		return sh.cmdDelete(args), false
	case "format":
		return sh.cmdFormat(args), false
	case "save":
		return sh.cmdSave(args), false
	case "validate":
		return sh.cmdValidate(args), false
	case "journal":
		return sh.cmdJournal(args), false
	case "history":
		return sh.cmdHistory(), false
	default:
		return "Unknown command.", false
	}
}

func (sh *Shell) cmdLoad(args []string) string {
	if len(args) < 1 {
		return "Usage: load [filename]"
	}
	result, err := sh.session.Load(args[0])
	if err != nil {
		return "Error loading: " + err.Error()
	}
	return fmt.Sprintf("Loaded %s\nStats: total_paragraphs=%d, total_tables=%d",
		result.Path, result.Paragraphs, result.Tables)
}

func (sh *Shell) cmdMap() string {
	if !sh.session.Loaded() {
		return "No document loaded."
	}
	out, err := sh.session.MapJSON()
	if err != nil {
		return "Error: " + err.Error()
	}
	return out
}

func (sh *Shell) cmdReplace(args []string) string {
	if !sh.session.Loaded() {
		return "No document loaded."
	}
	if len(args) < 2 {
		return "Usage: replace [id] [new text]"
	}
	id, text := args[0], strings.Join(args[1:], " ")
	if err := sh.session.Replace(id, text); err != nil {
		return "Error: " + err.Error()
	}
	return fmt.Sprintf("Updated Run %s. Formatting preserved.", id)
}

func (sh *Shell) cmdInsertAfter(args []string) string {
	if !sh.session.Loaded() {
		return "No document loaded."
	}
	if len(args) < 2 {
		return "Usage: insert_after [id] [new text]"
	}
	id, text := args[0], strings.Join(args[1:], " ")
	if err := sh.session.InsertAfter(id, text); err != nil {
		return "Error: " + err.Error()
	}
	return fmt.Sprintf("Inserted new paragraph after %s.", id)
}

func (sh *Shell) cmdDelete(args []string) string {
	if !sh.session.Loaded() {
		return "No document loaded."
	}
	if len(args) < 1 {
		return "Usage: delete [id]"
	}
	if err := sh.session.Delete(args[0]); err != nil {
		return "Error: " + err.Error()
	}
	return "Deleted " + args[0]
}

func (sh *Shell) cmdFormat(args []string) string {
	if !sh.session.Loaded() {
		return "No document loaded."
	}
	if len(args) < 2 {
		return "Usage: format [id] [key=value...]"
	}
	id := args[0]
	tokens := args[1:]
	// Accept the older three-word form: format <id> bold true.
	if len(tokens) == 2 && !strings.Contains(tokens[0], "=") {
		tokens = []string{tokens[0] + "=" + tokens[1]}
	}

	attrs, err := engine.ParseAttrs(tokens)
	if err != nil {
		return "Error: " + err.Error()
	}
	if err := sh.session.Format(id, attrs); err != nil {
		return "Error: " + err.Error()
	}
	return fmt.Sprintf("Formatted %s: %s", id, attrs)
}

func (sh *Shell) cmdSave(args []string) string {
	if !sh.session.Loaded() {
		return "No document loaded."
	}
	if len(args) < 1 {
		return "Usage: save [filename]"
	}
	result, err := sh.session.Save(args[0])
	if err != nil {
		return "Error: " + err.Error()
	}
	return "Saved to " + result.Path
}

// cmdValidate works with or without a loaded document. Validation reads
// only the named file, never the session.
func (sh *Shell) cmdValidate(args []string) string {
	if len(args) < 1 {
		return "Usage: validate [filename]"
	}
	return sh.session.Validate(args[0]).Summary()
}

// cmdJournal writes the session transcript recorded so far. A .xz filename
// compresses it.
func (sh *Shell) cmdJournal(args []string) string {
	if len(args) < 1 {
		return "Usage: journal [filename]"
	}
	events := sh.session.Events()
	if len(events) == 0 {
		return "Nothing recorded yet."
	}

	w, err := journal.Create(args[0], sh.session.ID)
	if err != nil {
		return "Error: " + err.Error()
	}
	for _, ev := range events {
		if err := w.Append(ev); err != nil {
			w.Close()
			return "Error: " + err.Error()
		}
	}
	if err := w.Close(); err != nil {
		return "Error: " + err.Error()
	}
	return fmt.Sprintf("Journal written to %s (%d events).", args[0], len(events))
}

// cmdHistory lists recent loads and saves from the shared history store.
func (sh *Shell) cmdHistory() string {
	store := sh.session.History()
	if store == nil {
		return "History is disabled."
	}

	loads, err := store.RecentLoads(10)
	if err != nil {
		return "Error: " + err.Error()
	}
	saves, err := store.RecentSaves(10)
	if err != nil {
		return "Error: " + err.Error()
	}
	if len(loads) == 0 && len(saves) == 0 {
		return "No history yet."
	}

	var b strings.Builder
	if len(loads) > 0 {
		b.WriteString("Recent loads:\n")
		for _, rec := range loads {
			fmt.Fprintf(&b, "  %s  %s  %dp %dr %dt  (session %.8s)\n",
				rec.OpenedAt.Format("2006-01-02 15:04:05"), rec.Path,
				rec.Paragraphs, rec.Runs, rec.Tables, rec.SessionID)
		}
	}
	if len(saves) > 0 {
		b.WriteString("Recent saves:\n")
		for _, rec := range saves {
			fmt.Fprintf(&b, "  %s  %s  %d mutations  (session %.8s)\n",
				rec.SavedAt.Format("2006-01-02 15:04:05"), rec.Path,
				rec.Mutations, rec.SessionID)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
