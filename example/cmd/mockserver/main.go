// Standalone mock records API for trying the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/vitalboard serve -c example/config.yaml
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jpalmerr/vitalboard/example/mockapi"
)

func main() {
	addr := flag.String("addr", ":9999", "listen address")
	flag.Parse()

	fmt.Printf("Mock records API starting on %s\n", *addr)
	fmt.Println("  GET /{site}/builds?year=&month=   GET /{site}/builds/months")
	fmt.Println("  GET /{site}/vitals?year=&month=   GET /{site}/vitals/months")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	api := mockapi.New(nil, logger)
	if err := http.ListenAndServe(*addr, api.Handler()); err != nil {
		logger.Error("mock server error", "error", err)
		os.Exit(1)
	}
}
