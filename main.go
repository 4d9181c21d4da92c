package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/lmittmann/tint"

	"github.com/ytget/repcount/internal/api"
	"github.com/ytget/repcount/internal/compress"
	"github.com/ytget/repcount/internal/config"
	"github.com/ytget/repcount/internal/controller"
	"github.com/ytget/repcount/internal/fetch"
	"github.com/ytget/repcount/internal/ui"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

const (
	AppID   = "com.ytget.repcount"
	AppName = "RepCount"

	WindowWidth  = 900
	WindowHeight = 760
)

func main() {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)
	logger.Info("RepCount starting", "version", version)

	myApp := app.NewWithID(AppID)
	myApp.Settings().SetTheme(ui.NewCompactTheme())

	myWindow := myApp.NewWindow(fmt.Sprintf("%s v%s", AppName, version))
	myWindow.Resize(fyne.NewSize(WindowWidth, WindowHeight))

	// The root view points the import service at the configured directory
	fetchSvc := fetch.NewService(fetch.YtdlpRunner{}, "", logger.With("component", "fetch"))
	shrinkSvc := compress.NewService(logger.With("component", "compress"))

	root := ui.NewRootUI(myWindow, myApp, fetchSvc, shrinkSvc, logger)

	connect := func(opts config.Options) controller.Backend {
		return controller.FromClient(api.NewClient(opts, logger.With("component", "api")))
	}
	opts := root.Settings().Options()
	ctrl := controller.New(connect(opts), root, opts, logger.With("component", "controller"))
	root.Bind(ctrl, connect)

	logger.Info("analysis server", "url", opts.ServerURL)

	myWindow.ShowAndRun()

	root.CancelJobs()
	ctrl.Close()
	logger.Info("RepCount stopped")
}
