package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/fx"

	"github.com/docketapp/docket/internal/app"
	"github.com/docketapp/docket/internal/tui"
)

func main() {
	configFlag := flag.String("config", app.ConfigPath(), "path to config file")
	flag.Parse()

	var ui *tui.App
	fxApp := fx.New(
		app.Module(app.Params{ConfigPath: *configFlag}),
		fx.Populate(&ui),
		// The terminal belongs to the TUI; fx chatter goes nowhere.
		fx.NopLogger,
	)

	if err := fxApp.Start(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	runErr := ui.Run()

	if err := fxApp.Stop(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		os.Exit(1)
	}
}
