package main

import (
	"os"
	goruntime "runtime"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/menu/keys"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"github.com/wailsapp/wails/v2/pkg/runtime"
)

func main() {
	app := NewApp()

	err := wails.Run(&options.App{
		Title:            "tinkerpen",
		Width:            1280,
		Height:           800,
		MinWidth:         800,
		MinHeight:        600,
		BackgroundColour: &options.RGBA{R: 27, G: 38, B: 54, A: 1},
		Menu:             createMenu(app),
		AssetServer: &assetserver.Options{
			Handler: app.GetHandler(),
		},
		OnStartup:  app.startup,
		OnShutdown: app.shutdown,
		Bind: []any{
			app,
		},
		Mac: &mac.Options{
			About: &mac.AboutInfo{
				Title:   "tinkerpen",
				Message: "Live HTML, CSS and JavaScript playground.\n\nBuilt with Wails and Go.",
			},
		},
	})

	if err != nil {
		println("Error:", err.Error())
		os.Exit(1)
	}
}

func createMenu(app *App) *menu.Menu {
	appMenu := menu.NewMenu()

	// File menu
	fileMenu := appMenu.AddSubmenu("File")
	fileMenu.AddText("New Playground", keys.CmdOrCtrl("n"), func(cd *menu.CallbackData) {
		if err := app.NewPlayground(); err != nil {
			runtime.LogErrorf(app.ctx, "new playground: %v", err)
		}
	})
	fileMenu.AddText("Open Pen Directory...", keys.CmdOrCtrl("o"), func(cd *menu.CallbackData) {
		if _, err := app.OpenDirectory(); err != nil {
			runtime.LogErrorf(app.ctx, "open directory: %v", err)
		}
	})

	if goruntime.GOOS != "darwin" {
		fileMenu.AddSeparator()
		fileMenu.AddText("Exit", keys.OptionOrAlt("F4"), func(cd *menu.CallbackData) {
			runtime.Quit(app.ctx)
		})
	}

	// Edit menu (standard on macOS)
	if goruntime.GOOS == "darwin" {
		appMenu.Append(menu.EditMenu())
	}

	// View menu
	viewMenu := appMenu.AddSubmenu("View")
	viewMenu.AddText("Reload", keys.CmdOrCtrl("r"), func(cd *menu.CallbackData) {
		runtime.WindowReloadApp(app.ctx)
	})
	viewMenu.AddText("Toggle Full Screen", keys.Key("F11"), func(cd *menu.CallbackData) {
		app.ToggleFullscreen()
	})

	return appMenu
}
