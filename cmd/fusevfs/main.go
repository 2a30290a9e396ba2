// Command fusevfs mounts a virtual filesystem backend (local directory,
// ZIP archive, S3 bucket or in-memory store) at a mountpoint and serves
// it in the foreground until unmounted.
//
// Usage:
//
//	fusevfs <source> <mountpoint> [--debug]
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fusevfs/fusevfs/internal/adapter"
	"github.com/fusevfs/fusevfs/internal/config"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s <source> <mountpoint> [--debug]\n", os.Args[0])
	os.Exit(1)
}

func main() {
	if len(os.Args) < 3 || len(os.Args) > 4 {
		usage()
	}
	debug := false
	if len(os.Args) == 4 {
		if os.Args[3] != "--debug" {
			usage()
		}
		debug = true
	}
	source, mountpoint := os.Args[1], os.Args[2]

	cfg := config.NewDefault()
	if path := os.Getenv("FUSEVFS_CONFIG"); path != "" {
		if err := cfg.LoadFromFile(path); err != nil {
			log.Fatalf("load config: %v", err)
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		log.Fatalf("load config from environment: %v", err)
	}
	if debug {
		cfg.Global.Debug = true
		cfg.Global.LogLevel = "DEBUG"
	}

	a, err := adapter.New(source, mountpoint, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx := context.Background()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalCh
		log.Println("unmounting...")
		if err := a.Stop(ctx); err != nil {
			log.Printf("unmount: %v", err)
		}
	}()

	// Serves the mount in the foreground until unmounted.
	if err := a.Start(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
