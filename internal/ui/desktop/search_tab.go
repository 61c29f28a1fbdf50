package desktop

import (
	"fmt"
	"strings"

	fyne "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/kadirbelkuyu/schemagraph/internal/toolkit"
)

type searchView struct {
	app *App

	content fyne.CanvasObject

	toolkit *toolkit.Toolkit

	queryEntry    *widget.Entry
	columnMatches *widget.Check

	results *widget.List
	matches []toolkit.TableMatch

	detailLabel *widget.Label
}

func newSearchView(app *App) *searchView {
	view := &searchView{app: app}

	view.queryEntry = widget.NewEntry()
	view.queryEntry.PlaceHolder = "e.g. customer orders, invoice totals…"
	view.queryEntry.OnSubmitted = func(string) {
		view.runSearch()
	}

	view.columnMatches = widget.NewCheck("Match column names", nil)
	view.columnMatches.SetChecked(true)

	searchBtn := widget.NewButtonWithIcon("Search", theme.SearchIcon(), func() {
		view.runSearch()
	})

	view.results = widget.NewList(
		func() int { return len(view.matches) },
		func() fyne.CanvasObject {
			title := widget.NewLabel("")
			title.TextStyle = fyne.TextStyle{Bold: true}
			subtitle := widget.NewLabel("")
			subtitle.TextStyle = fyne.TextStyle{Italic: true}
			return container.NewVBox(title, subtitle)
		},
		func(id widget.ListItemID, item fyne.CanvasObject) {
			index := int(id)
			if index < 0 || index >= len(view.matches) {
				return
			}
			match := view.matches[index]
			box := item.(*fyne.Container)
			if len(box.Objects) >= 2 {
				box.Objects[0].(*widget.Label).SetText(fmt.Sprintf("%s (score %.1f)", match.TableName, match.Score))
				box.Objects[1].(*widget.Label).SetText(match.Reason)
			}
		},
	)
	view.results.OnSelected = func(id widget.ListItemID) {
		view.onMatchSelected(int(id))
	}

	view.detailLabel = widget.NewLabel("Search results appear here.")
	view.detailLabel.Wrapping = fyne.TextWrapWord

	controls := container.NewBorder(nil, nil, nil,
		container.NewHBox(view.columnMatches, searchBtn), view.queryEntry)

	resultsCard := widget.NewCard("Matches", "", container.NewMax(view.results))
	detailCard := widget.NewCard("Details", "", view.detailLabel)

	split := container.NewHSplit(resultsCard, detailCard)
	split.SetOffset(0.45)

	view.content = container.NewBorder(controls, nil, nil, nil, split)
	return view
}

func (v *searchView) canvas() fyne.CanvasObject {
	return v.content
}

func (v *searchView) setToolkit(tk *toolkit.Toolkit) {
	v.toolkit = tk
	v.matches = nil
	v.results.Refresh()
	v.detailLabel.SetText("Graph loaded. Enter a query to search its tables.")
}

func (v *searchView) runSearch() {
	if v.toolkit == nil {
		dialog.ShowInformation("No graph", "Load a profile first.", v.app.window)
		return
	}

	query := strings.TrimSpace(v.queryEntry.Text)
	if query == "" {
		dialog.ShowInformation("Empty query", "Enter a search query first.", v.app.window)
		return
	}

	v.matches = v.toolkit.Search(query, 0, v.columnMatches.Checked)
	v.results.UnselectAll()
	v.results.Refresh()

	if len(v.matches) == 0 {
		v.detailLabel.SetText(fmt.Sprintf("No tables matched %q.", query))
		v.app.setStatus("No matches for %q.", query)
		return
	}

	v.detailLabel.SetText("Select a match to see its summary.")
	v.app.setStatus("%d match(es) for %q.", len(v.matches), query)
}

func (v *searchView) onMatchSelected(index int) {
	if v.toolkit == nil || index < 0 || index >= len(v.matches) {
		return
	}

	detail := v.toolkit.DescribeTable(v.matches[index].TableName)
	if detail == nil {
		return
	}
	v.detailLabel.SetText(toolkit.FormatTable(detail, 12))
}
