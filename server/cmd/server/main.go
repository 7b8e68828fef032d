package main

import (
	"flag"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/planeflight/hido/assets"
	"github.com/planeflight/hido/config"
	"github.com/planeflight/hido/logging"
	"github.com/planeflight/hido/server/core"
)

const version = "0.1.0"

func main() {
	defaults := config.DefaultServerConfig()

	port := flag.Int("port", defaults.Port, "UDP port")
	tick := flag.Duration("tick", defaults.TickInterval, "Simulation tick interval")
	maxPlayers := flag.Int("max-players", defaults.MaxPlayers, "Maximum connected clients")
	lagWindow := flag.Duration("lag-window", defaults.LagWindow, "Allowed skew between bullet creation and victim input for a hit")
	name := flag.String("name", defaults.Name, "Server display name")
	level := flag.String("level", assets.DefaultLevel, "Level to load from levels/<name>.tmx")
	assetsDir := flag.String("assets", "", "Directory containing levels/ (empty uses the embedded levels)")
	listLevels := flag.Bool("list-levels", false, "Print the available levels and exit")
	adminAddr := flag.String("admin", defaults.AdminAddr, "Admin HTTP listen address (empty disables)")
	masterURL := flag.String("master", defaults.MasterURL, "Master server URL (empty disables announcement)")
	publicAddr := flag.String("public-addr", "", "Address announced to the master server (defaults to :port)")
	region := flag.String("region", defaults.Region, "Region announced to the master server")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	logFile := flag.String("log-file", "", "Also write logs to this rolling file")
	flag.Parse()

	log, err := logging.New(logging.Config{Level: *logLevel, FilePath: *logFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync(log)

	var fsys fs.FS = assets.FS()
	if *assetsDir != "" {
		fsys = os.DirFS(*assetsDir)
	}

	levels, names, err := core.LoadAllServerLevels(fsys)
	if err != nil {
		log.Fatalf("Failed to load levels: %v", err)
	}
	if *listLevels {
		fmt.Println(strings.Join(names, "\n"))
		return
	}
	lvl, ok := levels[*level]
	if !ok {
		log.Fatalf("Unknown level %q (available: %s)", *level, strings.Join(names, ", "))
	}

	cfg := defaults
	cfg.Name = *name
	cfg.Port = *port
	cfg.TickInterval = *tick
	cfg.MaxPlayers = *maxPlayers
	cfg.LagWindow = *lagWindow
	cfg.AdminAddr = *adminAddr
	cfg.MasterURL = *masterURL
	cfg.Region = *region

	conn, err := net.ListenPacket("udp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		log.Fatalf("Failed to listen on port %d: %v", cfg.Port, err)
	}

	server := core.NewServer(cfg, lvl, conn, log)
	server.Start()
	log.Infof("Starting server %q on level %s (version %s)", cfg.Name, *level, version)

	var admin *http.Server
	if cfg.AdminAddr != "" {
		admin = server.StartAdmin(cfg.AdminAddr)
	}

	var reg *core.Registration
	if cfg.MasterURL != "" {
		announce := *publicAddr
		if announce == "" {
			announce = fmt.Sprintf(":%d", cfg.Port)
		}
		reg = core.NewRegistration(cfg.MasterURL, cfg.Name, announce, version, cfg.Region, server.MaxPlayers(), server, log)
		reg.Start()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info("Shutting down server...")

	if reg != nil {
		reg.Stop()
	}
	if admin != nil {
		_ = admin.Close()
	}
	done := make(chan struct{})
	go func() {
		server.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		log.Warn("Timed out waiting for the game loop to stop")
	}
}
