package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/akamensky/argparse"
	"github.com/coreos/go-systemd/daemon"
	"github.com/tallycam/tallycam/pkg/log"
	"github.com/tallycam/tallycam/server"
)

func main() {
	// This is purely for documentation of the cmd-line args
	nominalDefaultRoot := "$HOME/tallycam"

	parser := argparse.NewParser("tallycam", "People counting camera server")
	rootDir := parser.String("", "root", &argparse.Options{Help: "Data directory (databases live here)", Default: nominalDefaultRoot})
	source := parser.String("s", "source", &argparse.Options{Help: "Video source: device index, file path, or rtsp/rtmp/http URL (overrides stored setting)", Default: ""})
	fallback := parser.String("", "fallback", &argparse.Options{Help: "Fallback video source, used after the primary fails repeatedly", Default: ""})
	detectorURL := parser.String("", "detector", &argparse.Options{Help: "Person detection service URL", Default: ""})
	port := parser.String("p", "port", &argparse.Options{Help: "HTTP listen address", Default: ":8080"})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := log.NewLog()
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	if *rootDir == nominalDefaultRoot {
		home, _ := os.UserHomeDir()
		if home == "" {
			home = "/var/lib"
		}
		*rootDir = filepath.Join(home, "tallycam")
	}

	srv, err := server.NewServer(logger, server.Options{
		ConfigDBFilename: filepath.Join(*rootDir, "config.sqlite"),
		EventDBFilename:  filepath.Join(*rootDir, "events.sqlite"),
		Source:           *source,
		FallbackSource:   *fallback,
		DetectorURL:      *detectorURL,
	})
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	srv.Start()
	srv.ListenForKillSignals()

	// Tell systemd that we're alive
	daemon.SdNotify(false, daemon.SdNotifyReady)

	if err := srv.ListenHTTP(*port); err != nil {
		logger.Infof("ListenHTTP returned: %v", err)
	}
}
