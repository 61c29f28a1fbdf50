package desktop

import (
	"fmt"
	"strconv"
	"strings"

	fyne "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/kadirbelkuyu/schemagraph/internal/toolkit"
)

type pathsView struct {
	app *App

	content fyne.CanvasObject

	toolkit *toolkit.Toolkit

	sourcePicker *widget.Select
	targetPicker *widget.Select
	depthEntry   *widget.Entry

	output *widget.Entry
}

func newPathsView(app *App) *pathsView {
	view := &pathsView{app: app}

	view.sourcePicker = widget.NewSelect([]string{}, nil)
	view.sourcePicker.PlaceHolder = "Source table…"
	view.targetPicker = widget.NewSelect([]string{}, nil)
	view.targetPicker.PlaceHolder = "Target table…"

	view.depthEntry = widget.NewEntry()
	view.depthEntry.SetText("3")

	findBtn := widget.NewButtonWithIcon("Find paths", theme.MailForwardIcon(), func() {
		view.findPaths()
	})

	view.output = widget.NewMultiLineEntry()
	view.output.Wrapping = fyne.TextWrapWord
	view.output.Disable()

	controls := container.NewGridWithColumns(4,
		container.NewVBox(widget.NewLabel("Source"), view.sourcePicker),
		container.NewVBox(widget.NewLabel("Target"), view.targetPicker),
		container.NewVBox(widget.NewLabel("Max hops"), view.depthEntry),
		container.NewVBox(widget.NewLabel(""), findBtn),
	)

	outputCard := widget.NewCard("Join paths", "", view.output)

	view.content = container.NewBorder(controls, nil, nil, nil, outputCard)
	return view
}

func (v *pathsView) canvas() fyne.CanvasObject {
	return v.content
}

func (v *pathsView) setToolkit(tk *toolkit.Toolkit) {
	v.toolkit = tk
	names := tk.ListTables()
	v.sourcePicker.Options = names
	v.targetPicker.Options = names
	v.sourcePicker.ClearSelected()
	v.targetPicker.ClearSelected()
	v.sourcePicker.Refresh()
	v.targetPicker.Refresh()
	v.setOutput("Graph loaded. Pick a source and a target table.")
}

func (v *pathsView) findPaths() {
	if v.toolkit == nil {
		dialog.ShowInformation("No graph", "Load a profile first.", v.app.window)
		return
	}

	source := v.sourcePicker.Selected
	target := v.targetPicker.Selected
	if source == "" || target == "" {
		dialog.ShowInformation("Missing tables", "Pick both a source and a target table.", v.app.window)
		return
	}

	maxDepth, err := strconv.Atoi(strings.TrimSpace(v.depthEntry.Text))
	if err != nil || maxDepth <= 0 {
		maxDepth = 3
		v.depthEntry.SetText("3")
	}

	paths := v.toolkit.FindJoinPaths(source, target, maxDepth, 5)
	if len(paths) == 0 {
		v.setOutput(fmt.Sprintf("No join path found from %s to %s within %d hop(s).", source, target, maxDepth))
		v.app.setStatus("No path between %s and %s.", source, target)
		return
	}

	lines := make([]string, 0, len(paths)+1)
	lines = append(lines, fmt.Sprintf("Join paths from %s to %s:", source, target))
	for i, path := range paths {
		if path.Length == 0 {
			lines = append(lines, fmt.Sprintf("%d. same table (0 hops)", i+1))
			continue
		}

		segments := make([]string, 0, len(path.Steps))
		for _, step := range path.Steps {
			segments = append(segments, fmt.Sprintf("%s.%s = %s.%s",
				step.FromTable, strings.Join(step.Columns, ","),
				step.ToTable, strings.Join(step.ReferencedColumns, ",")))
		}
		lines = append(lines, fmt.Sprintf("%d. %d hop(s): %s", i+1, path.Length, strings.Join(segments, " THEN ")))
	}

	v.setOutput(strings.Join(lines, "\n"))
	v.app.setStatus("%d path(s) between %s and %s.", len(paths), source, target)
}

func (v *pathsView) setOutput(text string) {
	v.output.Enable()
	v.output.SetText(text)
	v.output.Disable()
}
