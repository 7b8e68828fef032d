package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/planeflight/hido/assets"
	"github.com/planeflight/hido/config"
	"github.com/planeflight/hido/logging"
	"github.com/planeflight/hido/network"
	"github.com/planeflight/hido/shared/leveldata"
	"github.com/planeflight/hido/systems"
)

// main runs a headless client whose input comes from a bot.
func main() {
	defaults := config.DefaultClientConfig()

	server := flag.String("server", "", "Server address host:port (empty uses the saved profile)")
	name := flag.String("name", "", "Display name (empty uses the saved profile)")
	level := flag.String("level", assets.DefaultLevel, "Level the server is running")
	assetsDir := flag.String("assets", "", "Directory containing levels/ (empty uses the embedded levels)")
	difficulty := flag.Int("difficulty", -1, "Bot difficulty 0-2 (negative uses the saved profile)")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Bot random seed")
	frame := flag.Duration("frame", defaults.FrameInterval, "Frame interval")
	delay := flag.Duration("interp-delay", defaults.InterpolationDelay, "Interpolation delay for remote entities")
	duration := flag.Duration("duration", 0, "Disconnect after this long (0 runs until interrupted)")
	saveProfile := flag.Bool("save-profile", false, "Store the name, server and difficulty used for next time")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	logFile := flag.String("log-file", "", "Also write logs to this rolling file")
	flag.Parse()

	log, err := logging.New(logging.Config{Level: *logLevel, FilePath: *logFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync(log)

	profile := systems.DefaultProfile()
	store, err := systems.OpenProfileStore("hido", log)
	if err != nil {
		log.Warnf("Profile storage unavailable: %v", err)
	} else {
		profile = store.Load()
	}
	if *server != "" {
		profile.ServerAddr = *server
	}
	if *name != "" {
		profile.Name = *name
	}
	if *difficulty >= 0 {
		profile.Difficulty = *difficulty
	}
	if *saveProfile && store != nil {
		if err := store.Save(profile); err != nil {
			log.Warnf("Could not save profile: %v", err)
		}
	}

	var fsys fs.FS = assets.FS()
	if *assetsDir != "" {
		fsys = os.DirFS(*assetsDir)
	}
	tiles, err := leveldata.LoadTileMap(fsys, "levels/"+*level+".tmx", config.Map.SpawnGroup, config.Map.BlockingProperty)
	if err != nil {
		log.Fatalf("Failed to load level: %v", err)
	}

	cfg := defaults
	cfg.ServerAddr = profile.ServerAddr
	cfg.Name = profile.Name
	cfg.FrameInterval = *frame
	cfg.InterpolationDelay = *delay

	client, err := network.Dial(cfg, tiles, log)
	if err != nil {
		log.Fatalf("Failed to dial server: %v", err)
	}
	client.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	log.Infof("Connecting to %s as %q", cfg.ServerAddr, cfg.Name)
	if err := client.Connect(ctx); err != nil {
		client.Stop()
		log.Fatalf("Failed to connect: %v", err)
	}
	if err := client.SendName(cfg.Name); err != nil {
		log.Warnf("Could not send name: %v", err)
	}

	bot := systems.NewBot(config.BotDifficulty(profile.Difficulty), *seed)
	bot.SetNavGrid(systems.NewNavGrid(tiles, config.Bot.NavCellSize, config.Map.BlockingProperty))
	loop := systems.NewFrameLoop(client, bot, log)
	loop.Run(ctx, cfg.FrameInterval)

	shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Disconnect(shutdown); err != nil {
		log.Warnf("Disconnect not acknowledged: %v", err)
	}
}
