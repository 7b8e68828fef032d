package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/planeflight/hido/logging"
)

func main() {
	port := flag.Int("port", 8090, "HTTP listen port")
	ttl := flag.Duration("ttl", 90*time.Second, "Server TTL before expiry")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	logFile := flag.String("log-file", "", "Optional rolling log file")
	flag.Parse()

	logger, err := logging.New(logging.Config{Level: *logLevel, FilePath: *logFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync(logger)
	log := logger.Named("master")

	reg := NewRegistry(*ttl, log)
	reg.Start(30 * time.Second)
	defer reg.Stop()

	addr := fmt.Sprintf(":%d", *port)
	log.Infof("starting on %s (TTL=%s)", addr, *ttl)
	if err := http.ListenAndServe(addr, NewMux(reg, log)); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
