// Package main provides the entry point for the Swatch Inspector application.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"swatch-inspector/internal/app"
	"swatch-inspector/internal/config"
	"swatch-inspector/internal/version"
	"swatch-inspector/ui/mainwindow"

	fyneapp "fyne.io/fyne/v2/app"
)

const (
	appID    = "io.github.swatch-inspector"
	appTitle = "Swatch Inspector"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	configPath := flag.String("config", config.DefaultPath(), "Path to JSON configuration")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-config file] [reference [target]]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	log.Printf("Starting %s v%s", appTitle, version.Version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("Config %s: %v (using defaults)", *configPath, err)
	}
	params, err := cfg.Params()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	log.Printf("Working space %s, tolerances %v", params.Space, params.Tolerances)

	fyneApp := fyneapp.NewWithID(appID)
	fyneApp.Settings().SetTheme(&app.InspectorTheme{})

	session := app.NewSession(params)
	defer session.Close()

	win := mainwindow.New(fyneApp, session)

	// Handle command line arguments
	switch args := flag.Args(); len(args) {
	case 0:
		win.RestoreLastImages()
	case 1:
		win.LoadReference(args[0])
	default:
		win.LoadReference(args[0])
		win.LoadTarget(args[1])
	}

	win.ShowAndRun()
}
