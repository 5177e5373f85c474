package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/vitalboard"
	"github.com/jpalmerr/vitalboard/example/mockapi"
)

func main() {
	// start the mock records API
	api := mockapi.New(nil, nil)
	go func() {
		if err := http.ListenAndServe(":9999", api.Handler()); err != nil {
			slog.Error("mock server error", "error", err)
		}
	}()
	time.Sleep(100 * time.Millisecond)

	// one builds dashboard per site
	builds, err := vitalboard.NewFeedGrid("Builds", vitalboard.KindBuilds,
		vitalboard.WithURLTemplate("http://localhost:9999/{{.site}}/builds"),
		vitalboard.WithPeriodsURLTemplate("http://localhost:9999/{{.site}}/builds/months"),
		vitalboard.WithDimensions(map[string][]string{
			"site": {"shop", "blog"},
		}),
		vitalboard.WithGridDecoder(vitalboard.BuildDecoder),
	)
	if err != nil {
		slog.Error("failed to create builds grid", "error", err)
		os.Exit(1)
	}

	// vitals for the shop, refreshed more often than the global interval
	vitals, err := vitalboard.NewFeed("vitals", vitalboard.KindVitals,
		"http://localhost:9999/shop/vitals",
		vitalboard.WithPeriodsURL("http://localhost:9999/shop/vitals/months"),
		vitalboard.WithDecoder(vitalboard.VitalsDecoder),
		vitalboard.WithInterval(time.Minute),
	)
	if err != nil {
		slog.Error("failed to create vitals feed", "error", err)
		os.Exit(1)
	}

	board, err := vitalboard.New(
		vitalboard.WithFeeds(builds...),
		vitalboard.WithFeed(vitals),
		vitalboard.WithPollInterval(5*time.Minute),
		vitalboard.WithPort(8080),
		vitalboard.WithTitle("vitalboard demo"),
		vitalboard.WithFetchCallback(func(e vitalboard.FetchEvent) {
			if e.Err != nil {
				slog.Warn("fetch failed", "feed", e.Feed, "error", e.Err)
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create board", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  vitalboard demo")
	fmt.Println()
	fmt.Println("  Open http://localhost:8080 in your browser")
	fmt.Println()
	fmt.Println("  Feeds:")
	fmt.Println("    - builds for 2 mock sites (via NewFeedGrid)")
	fmt.Println("    - vitals for the shop (1m interval)")
	fmt.Println()
	fmt.Println("  Select a month:")
	fmt.Println(`    curl -X POST localhost:8080/api/select -d '{"scope":"vitals_","key":"monthSelected","value":1}'`)
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := board.Start(ctx); err != nil {
		slog.Error("vitalboard error", "error", err)
		os.Exit(1)
	}
}
