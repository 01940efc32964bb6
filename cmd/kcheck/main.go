// Entry point for kcheck, which checks K source files for syntax errors without starting an editor.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/x86y/klsp/interp"
	"github.com/x86y/klsp/kerr"
	"github.com/x86y/klsp/ksource"
)

var interpreterPath = flag.String("k", interp.DefaultPath, "Path of the K interpreter")

// nolint:revive
func Usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: kcheck [options] file ...\n")
	fmt.Fprintf(flag.CommandLine.Output(), "\n")
	fmt.Fprintf(flag.CommandLine.Output(), "Options:\n")
	flag.PrintDefaults()
}

func main() {
	log.SetFlags(0)

	flag.Usage = Usage
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	k := interp.New(*interpreterPath)
	failed := false
	for _, file := range flag.Args() {
		if !checkFile(k, file) {
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func checkFile(k *interp.Interpreter, file string) bool {
	src, err := os.ReadFile(file)
	if err != nil {
		log.Printf("kcheck: %s", err)
		return false
	}
	issues, err := k.Check(context.Background(), string(src))
	if err != nil {
		log.Printf("kcheck: %s", err)
		return false
	}
	lines := ksource.Lines(string(src))
	for _, issue := range issues {
		srcLine := ""
		if issue.Line < len(lines) {
			srcLine = lines[issue.Line]
		}
		fmt.Println(&kerr.Error{
			Msg:   issue.Msg,
			File:  file,
			Line:  issue.Line + 1,
			Start: issue.Col,
			End:   issue.Col + 1,
			Src:   srcLine,
		})
	}
	return len(issues) == 0
}
