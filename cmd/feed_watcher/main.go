// Feed watcher prints the samples of a running debugger as JSON lines.
// Depends on the debugger's live feed being enabled.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/NotCoffee418/bt_pid_debugger/pkg/feedclient"
	"github.com/NotCoffee418/bt_pid_debugger/pkg/types"
	log "github.com/sirupsen/logrus"
)

func main() {
	// Logs go to stderr so stdout stays plain JSON
	log.SetOutput(os.Stderr)

	// Set the host:port from env var FEED_HOST
	host := os.Getenv("FEED_HOST")
	if host == "" {
		host = "localhost:9040"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Subscribe to websocket with revive
	if err := feedclient.StartListener(ctx, host, handleSample); err != nil {
		log.Fatalf("Feed listener stopped: %v", err)
	}
}

func handleSample(sample *types.Sample) {
	fmt.Println(string(sample.ToJsonBytes()))
}
