// cellstore-cli is an interactive shell for a running cellstored.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/chzyer/readline"

	"github.com/tuannm99/cellstore/server/cellwire"
	"github.com/tuannm99/cellstore/sqlclient"
)

var CLI struct {
	Addr    string        `help:"Server address." default:"127.0.0.1:5462"`
	Timeout time.Duration `help:"Dial timeout." default:"3s"`
	Exec    string        `short:"c" help:"Execute one statement batch and exit."`
}

func main() {
	kong.Parse(&CLI,
		kong.Name("cellstore-cli"),
		kong.Description("interactive cellstore shell"),
		kong.UsageOnError(),
	)

	cli, err := sqlclient.Dial(CLI.Addr, CLI.Timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = cli.Close() }()

	if strings.TrimSpace(CLI.Exec) != "" {
		results, err := cli.Exec(CLI.Exec)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		printResults(results)
		return
	}

	repl(cli)
}

func repl(cli *sqlclient.Client) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "cellstore> ",
		HistoryFile:     historyPath(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = rl.Close() }()

	fmt.Printf("connected to %s\n", CLI.Addr)

	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			// Ctrl+C clears the current buffer.
			buf.Reset()
			rl.SetPrompt("cellstore> ")
			continue
		}
		if err != nil {
			fmt.Println()
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" || line == `\q` {
			return
		}

		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(line)

		// Multi-line input: wait for a terminating ';' outside quotes.
		if !statementComplete(buf.String()) {
			rl.SetPrompt("      ...> ")
			continue
		}

		stmt := strings.TrimSpace(buf.String())
		buf.Reset()
		rl.SetPrompt("cellstore> ")

		results, err := cli.Exec(stmt)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		printResults(results)
	}
}

// statementComplete reports a terminating ';' outside single quotes.
func statementComplete(s string) bool {
	inQuote := false
	for _, r := range s {
		switch {
		case r == '\'':
			inQuote = !inQuote
		case r == ';' && !inQuote:
			return true
		}
	}
	return false
}

func printResults(results []cellwire.StatementResult) {
	for _, res := range results {
		if len(res.Columns) == 0 {
			fmt.Printf("OK: %s (%d affected)\n", res.Message, res.RowCount)
			continue
		}
		printTable(res)
	}
}

func printTable(res cellwire.StatementResult) {
	widths := make([]int, len(res.Columns))
	for i, c := range res.Columns {
		widths[i] = len(c)
	}
	render := func(row []any, i int) string {
		if i >= len(row) || row[i] == nil {
			return "NULL"
		}
		return fmt.Sprintf("%v", row[i])
	}
	for _, row := range res.Rows {
		for i := range res.Columns {
			if n := len(render(row, i)); n > widths[i] {
				widths[i] = n
			}
		}
	}

	for i, c := range res.Columns {
		if i > 0 {
			fmt.Print(" | ")
		}
		fmt.Printf("%-*s", widths[i], c)
	}
	fmt.Println()
	for i := range res.Columns {
		if i > 0 {
			fmt.Print("-+-")
		}
		fmt.Print(strings.Repeat("-", widths[i]))
	}
	fmt.Println()
	for _, row := range res.Rows {
		for i := range res.Columns {
			if i > 0 {
				fmt.Print(" | ")
			}
			fmt.Printf("%-*s", widths[i], render(row, i))
		}
		fmt.Println()
	}
	fmt.Printf("(%d rows)\n", len(res.Rows))
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".cellstore_history"
	}
	return filepath.Join(home, ".cellstore_history")
}
