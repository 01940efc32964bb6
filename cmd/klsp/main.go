// Entry point for the K language server.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/x86y/klsp/interp"
	"github.com/x86y/klsp/jsonrpc"
	"github.com/x86y/klsp/lsp"
)

var (
	interpreterPath = flag.String("k", interp.DefaultPath, "Path of the K interpreter used for diagnostics")
	noDiagnostics   = flag.Bool("no-diagnostics", false, "Don't publish diagnostics")
	printVersion    = flag.Bool("version", false, "Print the version and exit")
)

// nolint:revive
func Usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: klsp [options]\n")
	fmt.Fprintf(flag.CommandLine.Output(), "\n")
	fmt.Fprintf(flag.CommandLine.Output(), "Options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = Usage
	flag.Parse()

	if *printVersion {
		fmt.Printf("klsp %s\n", lsp.Version)
		return
	}

	handler := slog.NewTextHandler(os.Stderr, nil)
	logger := slog.New(handler)
	slog.SetDefault(logger)

	slog.Info("Starting K language server. Reading from stdin, writing to stdout.")

	lspHandler := lsp.NewHandler(
		lsp.WithInterpreterPath(*interpreterPath),
		lsp.WithDiagnostics(!*noDiagnostics),
	)
	if err := jsonrpc.Serve(os.Stdin, os.Stdout, lspHandler); err != nil {
		slog.Error("Something went wrong", "error", err.Error())
		os.Exit(1)
	}
}
