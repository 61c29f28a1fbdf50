package explorer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rivo/tview"

	"github.com/kadirbelkuyu/schemagraph/internal/toolkit"
)

// newModal centers content in a fixed-size window over the main layout.
func newModal(content tview.Primitive, width, height int) tview.Primitive {
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 10
	}

	return tview.NewGrid().
		SetRows(0, height, 0).
		SetColumns(0, width, 0).
		AddItem(content, 1, 1, 1, 1, 0, 0, true)
}

func showSearchModal(app *tview.Application, pages *tview.Pages, list *tview.List, tk *toolkit.Toolkit, preview *tview.Table, meta *tview.TextView) {
	const modalName = "graph-search"

	input := tview.NewInputField().
		SetLabel("Search> ").
		SetFieldWidth(60)

	info := tview.NewTextView().
		SetDynamicColors(true).
		SetText("Keyword search over table names, descriptions, keywords, and columns.\nResults replace the preview pane.")

	form := tview.NewForm().
		AddFormItem(input).
		AddButton("Search", func() {
			query := strings.TrimSpace(input.GetText())
			pages.RemovePage(modalName)
			app.SetFocus(list)
			if query == "" {
				return
			}

			matches := tk.Search(query, 0, true)
			if len(matches) == 0 {
				meta.SetText(fmt.Sprintf("No tables matched %q.", query))
				return
			}

			renderMatches(preview, matches)
			meta.SetText(fmt.Sprintf("[::b]Search results[-:-:-]\n%d match(es) for %q.\nSelect a table on the left to return to the column view.", len(matches), query))
		}).
		AddButton("Cancel", func() {
			pages.RemovePage(modalName)
			app.SetFocus(list)
		})

	form.SetBorder(true).SetTitle("Search tables")

	wrapper := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(info, 3, 1, false).
		AddItem(form, 0, 2, true)

	pages.AddPage(modalName, newModal(wrapper, 90, 11), true, true)
	app.SetFocus(input)
}

func showJoinPathModal(app *tview.Application, pages *tview.Pages, list *tview.List, tk *toolkit.Toolkit, meta *tview.TextView) {
	const modalName = "join-paths"

	source := tview.NewInputField().SetLabel("Source table: ").SetFieldWidth(40)
	target := tview.NewInputField().SetLabel("Target table: ").SetFieldWidth(40)
	depth := tview.NewInputField().SetLabel("Max hops: ").SetFieldWidth(4).SetText("3")

	form := tview.NewForm().
		AddFormItem(source).
		AddFormItem(target).
		AddFormItem(depth).
		AddButton("Find", func() {
			from := strings.TrimSpace(source.GetText())
			to := strings.TrimSpace(target.GetText())
			maxDepth, err := strconv.Atoi(strings.TrimSpace(depth.GetText()))
			if err != nil {
				maxDepth = 3
			}

			pages.RemovePage(modalName)
			app.SetFocus(list)
			if from == "" || to == "" {
				return
			}

			paths := tk.FindJoinPaths(from, to, maxDepth, 3)
			if len(paths) == 0 {
				meta.SetText(fmt.Sprintf("No join path found from %s to %s within %d hop(s).", from, to, maxDepth))
				return
			}

			lines := append([]string{fmt.Sprintf("[::b]Join paths %s -> %s[-:-:-]", from, to)}, pathLines(paths)...)
			meta.SetText(strings.Join(lines, "\n"))
		}).
		AddButton("Cancel", func() {
			pages.RemovePage(modalName)
			app.SetFocus(list)
		})

	form.SetBorder(true).SetTitle("Find join paths")

	pages.AddPage(modalName, newModal(form, 70, 13), true, true)
	app.SetFocus(source)
}
