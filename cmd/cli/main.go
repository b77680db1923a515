package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/nickyhof/StrictDB"
	"github.com/nickyhof/StrictDB/core"
	"github.com/nickyhof/StrictDB/db"
	"github.com/nickyhof/StrictDB/internal/logging"
	"github.com/nickyhof/StrictDB/ps"
)

const (
	PromptColor  = "\033[36m" // Cyan
	ErrorColor   = "\033[31m" // Red
	SuccessColor = "\033[32m" // Green
	ResetColor   = "\033[0m"
	BoldColor    = "\033[1m"
)

// Version is set at build time via -ldflags
var Version = "dev"

const maxHistory = 1000

// Flags holds the command line flags. Every flag can also be set from the environment.
var Flags struct {
	BaseDir string `help:"Base directory for the database (memory if empty)." type:"path" env:"STRICTDB_BASE_DIR"`
	GitURL  string `name:"git-url" help:"Git URL to clone on first start." env:"STRICTDB_GIT_URL"`
	SQLFile string `name:"sql-file" help:"SQL file to execute (non-interactive)." type:"path"`
	Name    string `help:"User name for Git commits." default:"StrictDB" env:"STRICTDB_USER_NAME"`
	Email   string `help:"User email for Git commits." default:"cli@strictdb.local" env:"STRICTDB_USER_EMAIL"`

	HighPrecision bool `help:"Keep extended precision for overflowing integer arithmetic." default:"true" negatable:"" env:"STRICTDB_HIGH_PRECISION"`

	LogLevel  string `help:"Log level; debug logs every statement." default:"warn" enum:"debug,info,warn,error" env:"STRICTDB_LOG_LEVEL"`
	LogFormat string `help:"Log format." default:"text" enum:"text,json" env:"STRICTDB_LOG_FORMAT"`

	Version kong.VersionFlag `help:"Show version and exit."`
}

// CLI holds the CLI state
type CLI struct {
	engine      *db.Engine
	out         io.Writer
	history     []string
	historyFile string
}

func main() {
	kong.Parse(&Flags,
		kong.Name("strictdb"),
		kong.Description("Interactive shell for StrictDB, a git-backed SQL engine with STRICT tables"),
		kong.UsageOnError(),
		kong.Vars{"version": "StrictDB v" + Version},
	)

	logger, err := logging.New(Flags.LogLevel, Flags.LogFormat, os.Stderr)
	if err != nil {
		fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
		os.Exit(1)
	}

	printBanner()

	var persistence *ps.Persistence
	if Flags.BaseDir == "" {
		fmt.Printf("%sUsing memory persistence%s\n", SuccessColor, ResetColor)
		persistence, err = ps.NewMemoryPersistence()
	} else {
		fmt.Printf("%sUsing file persistence: %s%s\n", SuccessColor, Flags.BaseDir, ResetColor)
		var gitURL *string
		if Flags.GitURL != "" {
			gitURL = &Flags.GitURL
		}
		persistence, err = ps.NewFilePersistence(Flags.BaseDir, gitURL)
	}
	if err != nil {
		fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
		os.Exit(1)
	}

	instance := StrictDB.Open(persistence,
		db.WithLogger(logger),
		db.WithHighPrecision(Flags.HighPrecision),
	)

	cli := &CLI{
		engine:      instance.Engine(core.Identity{Name: Flags.Name, Email: Flags.Email}),
		out:         os.Stdout,
		historyFile: getHistoryPath(),
	}

	cli.loadHistory()

	if Flags.SQLFile != "" {
		if err := cli.importFile(Flags.SQLFile); err != nil {
			fmt.Printf("%sError importing file: %v%s\n", ErrorColor, err, ResetColor)
			os.Exit(1)
		}
		return
	}

	if quit := cli.run(os.Stdin); quit {
		cli.saveHistory()
	}
}

func printBanner() {
	fmt.Println()
	bannerWidth := 39 // inner width of the banner box
	versionLine := fmt.Sprintf("StrictDB v%s", Version)
	padding := bannerWidth - len(versionLine) - 2 // -2 for "  " margins
	if padding < 0 {
		padding = 0
	}
	leftPad := padding / 2
	rightPad := padding - leftPad

	fmt.Printf("%s%s╔═══════════════════════════════════════╗%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Printf("%s%s║ %*s%s%*s ║%s\n", BoldColor, PromptColor, leftPad, "", versionLine, rightPad, "", ResetColor)
	fmt.Printf("%s%s║   Git-backed SQL, STRICT tables       ║%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Printf("%s%s╚═══════════════════════════════════════╝%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println()
	fmt.Println("Type .help for commands, .quit to exit")
	fmt.Println()
}

// run reads statements from in until EOF or .quit, which it reports by returning true.
func (cli *CLI) run(in io.Reader) bool {
	reader := bufio.NewReader(in)
	var multiLineBuffer strings.Builder

	for {
		fmt.Fprint(cli.out, cli.getPrompt(multiLineBuffer.Len() > 0))

		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			fmt.Fprintf(cli.out, "\n%sGoodbye!%s\n", SuccessColor, ResetColor)
			return true
		}

		input = strings.TrimSuffix(input, "\n")
		input = strings.TrimSuffix(input, "\r")

		if strings.TrimSpace(input) == "" {
			continue
		}

		// Dot commands only outside a multi-line statement
		if multiLineBuffer.Len() == 0 && strings.HasPrefix(strings.TrimSpace(input), ".") {
			if !cli.handleCommand(input) {
				fmt.Fprintf(cli.out, "%sGoodbye!%s\n", SuccessColor, ResetColor)
				return true
			}
			continue
		}

		// Accumulate until a statement ends with a semicolon
		multiLineBuffer.WriteString(input)

		trimmed := strings.TrimSpace(multiLineBuffer.String())
		if !strings.HasSuffix(trimmed, ";") {
			multiLineBuffer.WriteString(" ")
			continue
		}

		sql := strings.TrimSuffix(trimmed, ";")
		multiLineBuffer.Reset()

		if strings.TrimSpace(sql) == "" {
			continue
		}

		cli.addToHistory(sql + ";")
		cli.execute(sql)
	}
}

func (cli *CLI) execute(sql string) {
	result, err := cli.engine.Execute(sql)
	if err != nil {
		fmt.Fprintf(cli.out, "%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		return
	}

	switch r := result.(type) {
	case db.QueryResult:
		r.Render(cli.out)
	case db.CommitResult:
		r.Render(cli.out)
	}
}

func (cli *CLI) getPrompt(multiLine bool) string {
	if multiLine {
		return fmt.Sprintf("%s   ...>%s ", PromptColor, ResetColor)
	}
	return fmt.Sprintf("%sstrictdb>%s ", PromptColor, ResetColor)
}

// handleCommand runs a dot command. It returns false when the shell should exit.
func (cli *CLI) handleCommand(input string) bool {
	parts := strings.Fields(strings.TrimSpace(input))
	if len(parts) == 0 {
		return true
	}

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit", ".q":
		return false

	case ".help", ".h", ".?":
		cli.printHelp()

	case ".tables":
		cli.execute("SHOW TABLES")

	case ".schema", ".describe":
		if len(parts) > 1 {
			cli.execute("DESCRIBE " + parts[1])
		} else {
			fmt.Fprintf(cli.out, "%s✗ Usage: .schema <table>%s\n", ErrorColor, ResetColor)
		}

	case ".log":
		n := 10
		if len(parts) > 1 {
			v, err := strconv.Atoi(parts[1])
			if err != nil || v <= 0 {
				fmt.Fprintf(cli.out, "%s✗ Usage: .log [count]%s\n", ErrorColor, ResetColor)
				return true
			}
			n = v
		}
		cli.printLog(n)

	case ".clear", ".cls":
		fmt.Fprint(cli.out, "\033[H\033[2J")

	case ".history":
		cli.printHistory()

	case ".version":
		fmt.Fprintf(cli.out, "StrictDB version %s\n", Version)

	case ".import":
		if len(parts) > 1 {
			if err := cli.importFile(parts[1]); err != nil {
				fmt.Fprintf(cli.out, "%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
			}
		} else {
			fmt.Fprintf(cli.out, "%s✗ Usage: .import <file.sql>%s\n", ErrorColor, ResetColor)
		}

	default:
		fmt.Fprintf(cli.out, "%s✗ Unknown command: %s (type .help for commands)%s\n", ErrorColor, parts[0], ResetColor)
	}

	return true
}

func (cli *CLI) printHelp() {
	w := cli.out
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%sSpecial Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(w, "  .help, .h        Show this help message")
	fmt.Fprintln(w, "  .quit, .exit     Exit the CLI")
	fmt.Fprintln(w, "  .tables          List tables and views")
	fmt.Fprintln(w, "  .schema <table>  Describe the columns of a table")
	fmt.Fprintln(w, "  .log [n]         Show the last n commits (default 10)")
	fmt.Fprintln(w, "  .import <file>   Execute SQL statements from a file")
	fmt.Fprintln(w, "  .history         Show command history")
	fmt.Fprintln(w, "  .clear           Clear the screen")
	fmt.Fprintln(w, "  .version         Show version info")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%sSQL Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(w, "  CREATE TABLE <table> (<column> [<type>] [constraints], ...) [STRICT];")
	fmt.Fprintln(w, "  CREATE VIEW <view> AS SELECT ...;")
	fmt.Fprintln(w, "  ALTER TABLE <table> ADD [COLUMN] <column> [<type>] [constraints];")
	fmt.Fprintln(w, "  DROP TABLE <table>;  DROP VIEW <view>;")
	fmt.Fprintln(w, "  INSERT INTO <table> [(<cols>)] VALUES (<vals>), ...;")
	fmt.Fprintln(w, "  SELECT <exprs> FROM <table> [WHERE ...] [ORDER BY ...] [LIMIT n [OFFSET m]];")
	fmt.Fprintln(w, "  UPDATE <table> SET <col> = <expr>, ... [WHERE ...] [RETURNING <exprs>];")
	fmt.Fprintln(w, "  DELETE FROM <table> [WHERE ...];")
	fmt.Fprintln(w, "  COPY <table> TO '<file.csv>';  COPY INTO <table> FROM '<file.csv>';")
	fmt.Fprintln(w, "  DESCRIBE <table>;  SHOW TABLES;")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%sFunctions:%s abs, coalesce, ifnull, nullif, iif, length, lower, upper, typeof,\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(w, "  tointeger, toreal, substr, trim, hex, max, min, random, current_timestamp")
	fmt.Fprintln(w)
}

// printLog lists the most recent commits, newest first.
func (cli *CLI) printLog(n int) {
	transactions := cli.engine.TransactionsSince(time.Time{})
	if len(transactions) == 0 {
		fmt.Fprintln(cli.out, "No commits")
		return
	}
	if len(transactions) > n {
		transactions = transactions[:n]
	}

	for _, txn := range transactions {
		id := txn.Id
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(cli.out, "  %s  %s  %s  %s\n",
			id, txn.When.Format(time.DateTime), txn.Author, truncate(strings.TrimSpace(txn.Message), 60))
	}
}

func (cli *CLI) addToHistory(cmd string) {
	// Don't add duplicates of the last command
	if len(cli.history) > 0 && cli.history[len(cli.history)-1] == cmd {
		return
	}
	cli.history = append(cli.history, cmd)

	if len(cli.history) > maxHistory {
		cli.history = cli.history[len(cli.history)-maxHistory:]
	}
}

func (cli *CLI) printHistory() {
	if len(cli.history) == 0 {
		fmt.Fprintln(cli.out, "No command history")
		return
	}

	start := 0
	if len(cli.history) > 20 {
		start = len(cli.history) - 20
	}

	for i := start; i < len(cli.history); i++ {
		fmt.Fprintf(cli.out, "  %3d  %s\n", i+1, cli.history[i])
	}
}

func getHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".strictdb_history")
}

func (cli *CLI) loadHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Open(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		cli.history = append(cli.history, scanner.Text())
	}
}

func (cli *CLI) saveHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Create(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	start := 0
	if len(cli.history) > maxHistory {
		start = len(cli.history) - maxHistory
	}

	for i := start; i < len(cli.history); i++ {
		_, _ = file.WriteString(cli.history[i] + "\n")
	}
}

// importFile reads and executes SQL statements from a file
func (cli *CLI) importFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	successCount := 0
	errorCount := 0

	for i, stmt := range splitStatements(string(data)) {
		result, err := cli.engine.Execute(stmt)
		if err != nil {
			fmt.Fprintf(cli.out, "%s[%d] ✗ %s%s\n", ErrorColor, i+1, truncate(stmt, 50), ResetColor)
			fmt.Fprintf(cli.out, "      Error: %v\n", err)
			errorCount++
			continue
		}

		successCount++
		switch r := result.(type) {
		case db.CommitResult:
			fmt.Fprintf(cli.out, "%s[%d] ✓ %s%s%s\n", SuccessColor, i+1, truncate(stmt, 50), commitDetails(r), ResetColor)
		case db.QueryResult:
			fmt.Fprintf(cli.out, "%s[%d] ✓ %s (%d rows)%s\n", SuccessColor, i+1, truncate(stmt, 50), len(r.Rows), ResetColor)
		default:
			fmt.Fprintf(cli.out, "%s[%d] ✓ %s%s\n", SuccessColor, i+1, truncate(stmt, 50), ResetColor)
		}
	}

	fmt.Fprintf(cli.out, "\n%s✓ Import complete: %d succeeded, %d failed%s\n",
		SuccessColor, successCount, errorCount, ResetColor)

	return nil
}

func commitDetails(r db.CommitResult) string {
	var details []string
	counts := []struct {
		n    int
		what string
	}{
		{r.TablesCreated, "table created"},
		{r.TablesDeleted, "table deleted"},
		{r.TablesAltered, "table altered"},
		{r.ViewsCreated, "view created"},
		{r.ViewsDeleted, "view deleted"},
		{r.RecordsWritten, "written"},
		{r.RecordsDeleted, "deleted"},
	}
	for _, c := range counts {
		if c.n > 0 {
			details = append(details, fmt.Sprintf("%d %s", c.n, c.what))
		}
	}
	if len(details) == 0 {
		return ""
	}
	return " (" + strings.Join(details, ", ") + ")"
}

// splitStatements splits SQL content into statements on semicolons outside string
// literals, dropping -- comments.
func splitStatements(content string) []string {
	var statements []string
	var current strings.Builder
	inString := false
	stringChar := byte(0)

	for i := 0; i < len(content); i++ {
		ch := content[i]

		// A doubled quote closes and reopens the literal, which leaves inString unchanged
		if ch == '\'' || ch == '"' {
			if !inString {
				inString = true
				stringChar = ch
			} else if ch == stringChar {
				inString = false
			}
		}

		if !inString && ch == '-' && i+1 < len(content) && content[i+1] == '-' {
			for i < len(content) && content[i] != '\n' {
				i++
			}
			continue
		}

		if !inString && ch == ';' {
			if stmt := strings.TrimSpace(current.String()); stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
			continue
		}

		current.WriteByte(ch)
	}

	// Last statement may lack a semicolon
	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		statements = append(statements, stmt)
	}

	return statements
}

// truncate shortens a string to max length with ellipsis
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
