// Command igstream streams posts, profiles and comments from the Instagram
// web API as CSV.
//
// Usage:
//
//	igstream tag lisbon porto --after 2024-01-01 --limit 500 --csv posts.csv
//	igstream user @alice --top 10 --top-attr like_count
//	igstream comments CxYz123 --progress 50
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("igstream failed")
		stop()
		os.Exit(1)
	}
}
