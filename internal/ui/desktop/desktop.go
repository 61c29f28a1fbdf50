// Package desktop is the fyne studio over persisted schema graphs: pick
// a saved profile, load its graph, and browse tables, search by keyword,
// or look up join paths from a desktop window.
package desktop

import (
	"fmt"
	"sort"
	"strings"

	fyne "fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/kadirbelkuyu/schemagraph/internal/config"
	"github.com/kadirbelkuyu/schemagraph/internal/profiles"
	"github.com/kadirbelkuyu/schemagraph/internal/store"
	"github.com/kadirbelkuyu/schemagraph/internal/toolkit"
	"github.com/kadirbelkuyu/schemagraph/pkg/logger"
)

const defaultConfigDir = "configs"

// Run starts the studio using profiles from the provided directory.
func Run(configDir string) error {
	dir := strings.TrimSpace(configDir)
	if dir == "" {
		dir = defaultConfigDir
	}

	studio := &App{
		configDir: dir,
		manager:   profiles.NewManager(dir),
	}

	return studio.Run()
}

// App is the studio UI controller. The active toolkit is replaced
// wholesale whenever a profile loads; the tab views only ever read it.
type App struct {
	configDir string
	manager   *profiles.Manager

	app    fyne.App
	window fyne.Window

	status *widget.Label
	tabs   *container.AppTabs

	profilePicker *widget.Select
	profileLookup map[string]profiles.Profile

	toolkit *toolkit.Toolkit

	browse *browseView
	search *searchView
	paths  *pathsView
}

// Run bootstraps the fyne application and blocks until the window closes.
func (a *App) Run() error {
	a.app = fyneapp.NewWithID("github.com/kadirbelkuyu/schemagraph/studio")
	a.window = a.app.NewWindow("Schemagraph Studio")
	a.window.Resize(fyne.NewSize(1280, 800))
	a.app.Settings().SetTheme(theme.DarkTheme())

	a.window.SetContent(a.buildShell())
	a.refreshProfiles()
	a.window.ShowAndRun()
	return nil
}

func (a *App) buildShell() fyne.CanvasObject {
	header := a.buildHeader()
	status := a.buildStatusBar()

	a.browse = newBrowseView(a)
	a.search = newSearchView(a)
	a.paths = newPathsView(a)

	a.tabs = container.NewAppTabs(
		container.NewTabItemWithIcon("Browse", theme.ListIcon(), a.browse.canvas()),
		container.NewTabItemWithIcon("Search", theme.SearchIcon(), a.search.canvas()),
		container.NewTabItemWithIcon("Join Paths", theme.MailForwardIcon(), a.paths.canvas()),
	)
	a.tabs.SetTabLocation(container.TabLocationLeading)

	return container.NewBorder(header, status, nil, nil, a.tabs)
}

func (a *App) buildHeader() fyne.CanvasObject {
	title := widget.NewLabelWithStyle("Schemagraph Studio", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	subtitle := widget.NewLabel("Desktop companion for browsing extracted schema graphs.")
	subtitle.Wrapping = fyne.TextWrapWord

	a.profileLookup = make(map[string]profiles.Profile)
	a.profilePicker = widget.NewSelect([]string{}, func(value string) {
		a.loadProfile(value)
	})
	a.profilePicker.PlaceHolder = "Select profile…"

	reloadBtn := widget.NewButtonWithIcon("Reload profiles", theme.ViewRefreshIcon(), func() {
		a.refreshProfiles()
	})

	picker := container.NewBorder(nil, nil, widget.NewLabel("Profile"), reloadBtn, a.profilePicker)

	return container.NewVBox(title, subtitle, picker, widget.NewSeparator())
}

func (a *App) buildStatusBar() fyne.CanvasObject {
	a.status = widget.NewLabel("Ready.")
	return container.NewBorder(nil, nil, widget.NewLabel("Status"), nil, a.status)
}

func (a *App) setStatus(format string, args ...interface{}) {
	if a.status == nil {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	a.runOnUI(func() {
		a.status.SetText(msg)
	})
}

func (a *App) runOnUI(fn func()) {
	if fn == nil {
		return
	}
	if a.app == nil {
		fn()
		return
	}
	fyne.Do(fn)
}

func (a *App) refreshProfiles() {
	profilesList, err := a.manager.List("")
	if err != nil {
		a.setStatus("Failed to load profiles: %v", err)
		return
	}
	sort.SliceStable(profilesList, func(i, j int) bool {
		return strings.ToLower(profilesList[i].Name) < strings.ToLower(profilesList[j].Name)
	})

	a.profileLookup = make(map[string]profiles.Profile)
	options := make([]string, len(profilesList))
	for i, profile := range profilesList {
		label := fmt.Sprintf("%s (%s)", profile.Name, strings.ToUpper(profile.Type))
		options[i] = label
		a.profileLookup[label] = profile
	}
	a.profilePicker.Options = options
	a.profilePicker.Refresh()

	if len(options) == 0 {
		a.setStatus("No profiles found under %s. Create one with the extract workflow.", a.configDir)
	} else {
		a.setStatus("%d profile(s) available.", len(options))
	}
}

func (a *App) loadProfile(label string) {
	profile, ok := a.profileLookup[label]
	if !ok {
		return
	}

	cfg, err := config.LoadConfig(profile.Path)
	if err != nil {
		dialog.ShowError(fmt.Errorf("load config: %w", err), a.window)
		a.setStatus("Cannot open %s: %v", profile.Name, err)
		return
	}

	a.setStatus("Loading graph for %s…", profile.Name)
	go func(cfg *config.Config, name string) {
		tk, err := openToolkit(cfg)
		a.runOnUI(func() {
			if err != nil {
				dialog.ShowError(err, a.window)
				a.setStatus("Failed to load graph for %s: %v", name, err)
				return
			}
			a.toolkit = tk
			a.browse.setToolkit(tk)
			a.search.setToolkit(tk)
			a.paths.setToolkit(tk)
			a.setStatus("Loaded %d table(s) from %s.", len(tk.ListTables()), tk.Index().DatabaseName)
		})
	}(cfg, profile.Name)
}

func openToolkit(cfg *config.Config) (*toolkit.Toolkit, error) {
	log := logger.NewNop()

	st, err := store.NewStore(cfg, log)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	tk, err := toolkit.New(st, cfg.Search, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema graph: %w", err)
	}
	return tk, nil
}
