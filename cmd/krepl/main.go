// Entry point for krepl, a line editing wrapper around a K interpreter.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"strings"

	"github.com/chzyer/readline"

	"github.com/x86y/klsp/interp"
	"github.com/x86y/klsp/kerr"
	"github.com/x86y/klsp/ksource"
)

var interpreterPath = flag.String("k", interp.DefaultPath, "Path of the K interpreter")

// nolint:revive
func Usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: krepl [options]\n")
	fmt.Fprintf(flag.CommandLine.Output(), "\n")
	fmt.Fprintf(flag.CommandLine.Output(), "Options:\n")
	flag.PrintDefaults()
}

func main() {
	log.SetFlags(0)

	flag.Usage = Usage
	flag.Parse()

	if err := repl(interp.New(*interpreterPath)); err != nil {
		log.Fatal(err)
	}
}

func repl(k *interp.Interpreter) error {
	cfg := &readline.Config{
		Prompt: "  ",
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		cfg.HistoryFile = path.Join(homeDir, ".k_history")
	} else {
		fmt.Fprintf(os.Stderr, "Can't get current user's home directory (%s). Command history will not be saved.\n", err)
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return fmt.Errorf("running K REPL: %s", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("running K REPL: %s", err)
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if line == `\\` {
			return nil
		}
		stdout, stderr, err := k.Run(context.Background(), line)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		fmt.Print(stdout)
		if stderr != "" {
			printStderr(line, stderr)
		}
	}
}

// printStderr renders interpreter errors with their position underlined when one can be recovered from the output,
// and echoes the output as-is otherwise.
func printStderr(src, stderr string) {
	issue := interp.ParseStderr(src, stderr)
	if issue.Col == 0 && !strings.Contains(stderr, "'") {
		fmt.Fprint(os.Stderr, stderr)
		return
	}
	lines := ksource.Lines(src)
	srcLine := ""
	if issue.Line < len(lines) {
		srcLine = lines[issue.Line]
	}
	fmt.Fprintln(os.Stderr, &kerr.Error{
		Msg:   issue.Msg,
		File:  "(repl)",
		Line:  issue.Line + 1,
		Start: issue.Col,
		End:   issue.Col + 1,
		Src:   srcLine,
	})
}
