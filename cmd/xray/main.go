package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli"
	"github.com/valerio/go-xray/xray"
	"github.com/valerio/go-xray/xray/backend"
	"github.com/valerio/go-xray/xray/backend/headless"
	"github.com/valerio/go-xray/xray/backend/terminal"
	"github.com/valerio/go-xray/xray/regions"
	"github.com/valerio/go-xray/xray/transport"
)

func main() {
	app := cli.NewApp()
	app.Name = "xray"
	app.Description = "A remote debugger front end for TRS-80 emulators"
	app.Usage = "xray [options]"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "url",
			Usage: "Websocket endpoint of the system under test",
			Value: "ws://localhost:8080/channel",
		},
		cli.DurationFlag{
			Name:  "retry",
			Usage: "Delay between connection attempts",
			Value: transport.DefaultRetry,
		},
		cli.BoolTFlag{
			Name:  "full-memory",
			Usage: "Refresh the whole address space after each command (false = video RAM only)",
		},
		cli.StringFlag{
			Name:  "regions",
			Usage: "JSON file of memory regions, reloaded when it changes",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Log register updates instead of drawing the terminal interface",
		},
		cli.IntFlag{
			Name:  "updates",
			Usage: "Number of register updates to log in headless mode (0 = run until interrupted)",
		},
		cli.BoolFlag{
			Name:  "step",
			Usage: "In headless mode, single step after every register update",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "Minimum log level (debug, info, warn, error)",
			Value: "info",
		},
	}
	app.Action = runDebugger

	err := app.Run(os.Args)
	if err != nil {
		slog.Error("Error running debugger", "error", err)
		os.Exit(1)
	}
}

func runDebugger(c *cli.Context) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.String("log-level"))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	config := xray.Config{
		URL:         c.String("url"),
		Retry:       c.Duration("retry"),
		FullMemory:  c.BoolT("full-memory"),
		RegionsPath: c.String("regions"),
	}
	if err := config.Validate(); err != nil {
		return err
	}

	var b backend.Backend
	if c.Bool("headless") {
		updates := c.Int("updates")
		if updates < 0 {
			return errors.New("--updates must not be negative")
		}
		b = headless.New(updates, c.Bool("step"))
	} else {
		b = terminal.New()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	client := transport.NewClient(transport.Config{
		URL:           config.URL,
		Retry:         config.Retry,
		DialTimeout:   5 * time.Second,
		EventBuffer:   64,
		RefreshOnOpen: true,
	})
	d := xray.New(config, client)

	if config.RegionsPath != "" {
		table, err := regions.LoadFile(config.RegionsPath)
		if err != nil {
			return fmt.Errorf("failed to load memory regions: %w", err)
		}
		d.SetRegions(table)
	}

	if err := b.Init(backend.Config{Title: "xray " + config.URL, LogLevel: level}); err != nil {
		return err
	}
	defer b.Cleanup()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if config.RegionsPath != "" {
		go func() {
			if err := regions.Watch(ctx, config.RegionsPath, d.SetRegions); err != nil {
				slog.Warn("Memory region watcher stopped", "path", config.RegionsPath, "error", err)
			}
		}()
	}

	done := make(chan error, 1)
	go func() {
		done <- client.Run(ctx)
	}()

	runErr := d.Run(ctx, client.Events(), b)
	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("Transport stopped", "error", err)
	}
	return runErr
}
