// Package explorer is a tview console UI over a persisted schema graph:
// a table list with a column preview, keyword search, and join-path
// lookup. It reads the graph once at startup and never touches the
// source database.
package explorer

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/kadirbelkuyu/schemagraph/internal/config"
	"github.com/kadirbelkuyu/schemagraph/internal/store"
	"github.com/kadirbelkuyu/schemagraph/internal/toolkit"
	"github.com/kadirbelkuyu/schemagraph/pkg/logger"
)

const mainPageName = "main"

func Run(cfg *config.Config) error {
	log := logger.NewNop()

	st, err := store.NewStore(cfg, log)
	if err != nil {
		return err
	}

	tk, err := toolkit.New(st, cfg.Search, log)
	st.Close()
	if err != nil {
		return fmt.Errorf("failed to load schema graph: %w", err)
	}

	names := tk.ListTables()
	if len(names) == 0 {
		return fmt.Errorf("the schema graph holds no tables; run an extraction first")
	}

	fmt.Printf("Loaded %d table(s) from %s.\n", len(names), tk.Index().DatabaseName)
	fmt.Println("Starting TUI... (Press 'q' to exit)")

	app := tview.NewApplication()
	list := tview.NewList().ShowSecondaryText(false)
	preview := tview.NewTable().SetFixed(1, 0).SetSelectable(true, false)
	meta := tview.NewTextView().SetDynamicColors(true)
	pages := tview.NewPages()

	render := func(index int) {
		if index < 0 || index >= len(names) {
			return
		}
		detail := tk.DescribeTable(names[index])
		if detail == nil {
			return
		}
		renderColumns(preview, detail)
		meta.SetText(tableMetaText(detail))
	}

	for _, name := range names {
		list.AddItem(name, "", 0, nil)
	}
	list.SetChangedFunc(func(index int, main, secondary string, shortcut rune) {
		render(index)
	})
	list.SetSelectedFunc(func(index int, main, secondary string, shortcut rune) {
		render(index)
	})
	render(0)

	layout := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(list.SetBorder(true).SetTitle("Tables"), 34, 1, true).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(preview.SetBorder(true).SetTitle("Columns"), 0, 3, false).
			AddItem(meta.SetBorder(true).SetTitle("Details"), 9, 1, false),
			0, 3, false)

	pages.AddPage(mainPageName, layout, true, true)

	app.SetRoot(pages, true).
		SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
			if front, _ := pages.GetFrontPage(); front != mainPageName {
				return event
			}
			if event.Key() == tcell.KeyRune {
				switch event.Rune() {
				case 'q', 'Q':
					app.Stop()
					return nil
				case '/':
					showSearchModal(app, pages, list, tk, preview, meta)
					return nil
				case 'j', 'J':
					showJoinPathModal(app, pages, list, tk, meta)
					return nil
				}
			}
			return event
		})

	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
