// Command bothod runs a Botho full node: ledger, libp2p gossip, block
// sync, and the JSON-RPC/WebSocket API, grounded on the teacher's
// apiserver/main.go shutdown shape (a channel-based interrupt listener
// guarding a deferred cleanup sequence), widened to the node's own exit
// code contract.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/botho-project/botho/app"
	"github.com/botho-project/botho/config"
	"github.com/botho-project/botho/infrastructure/logger"
	"github.com/botho-project/botho/util/panics"
)

// Exit codes, frozen per spec.md §6.
const (
	exitOK                = 0
	exitConfigError       = 2
	exitDatabaseError     = 3
	exitNetworkBindFailed = 4
	exitShutdownBySignal  = 5
)

var log = logger.Subsystem("MAIN")

func main() {
	os.Exit(run())
}

func run() int {
	defer panics.HandlePanic(log, nil)

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error parsing configuration: %+v\n", err)
		return exitConfigError
	}

	format := logger.FormatConsole
	if cfg.LogJSON {
		format = logger.FormatJSON
	}
	logger.Init(format, os.Stdout)
	logger.SetLevelFromFilter(cfg.LogFilter)

	a, err := app.New(cfg)
	if err != nil {
		log.Errorf("error initializing node: %+v", err)
		return exitDatabaseError
	}

	if err := a.Start(); err != nil {
		log.Errorf("error starting node: %+v", err)
		return exitNetworkBindFailed
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	sig := <-interrupt
	log.Infof("received signal %s, shutting down", sig)
	exitCode := exitShutdownBySignal

	if err := a.Stop(); err != nil {
		log.Errorf("error during shutdown: %+v", err)
		return exitDatabaseError
	}
	return exitCode
}
