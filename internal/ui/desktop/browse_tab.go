package desktop

import (
	"fmt"
	"strings"

	fyne "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/kadirbelkuyu/schemagraph/internal/toolkit"
)

type browseView struct {
	app *App

	content fyne.CanvasObject

	toolkit *toolkit.Toolkit
	names   []string

	list *widget.List

	previewTable   *widget.Table
	previewColumns []string
	previewRows    [][]string

	metaLabel *widget.Label
}

func newBrowseView(app *App) *browseView {
	view := &browseView{
		app:            app,
		previewColumns: []string{"Column", "Type", "Nullable", "Flags", "Description"},
	}

	view.list = widget.NewList(
		func() int { return len(view.names) },
		func() fyne.CanvasObject {
			label := widget.NewLabel("")
			label.TextStyle = fyne.TextStyle{Bold: true}
			return label
		},
		func(id widget.ListItemID, item fyne.CanvasObject) {
			index := int(id)
			if index < 0 || index >= len(view.names) {
				return
			}
			item.(*widget.Label).SetText(view.names[index])
		},
	)
	view.list.OnSelected = func(id widget.ListItemID) {
		view.onTableSelected(int(id))
	}

	view.previewTable = widget.NewTable(
		view.tableSize,
		func() fyne.CanvasObject { return widget.NewLabel("") },
		view.updateTableCell,
	)

	view.metaLabel = widget.NewLabel("Pick a profile to load its schema graph.")
	view.metaLabel.Wrapping = fyne.TextWrapWord

	listCard := widget.NewCard("Tables", "", container.NewMax(view.list))
	previewCard := widget.NewCard("Columns", "", view.previewTable)
	detailsCard := widget.NewCard("Details", "", view.metaLabel)

	right := container.NewBorder(nil, detailsCard, nil, nil, previewCard)
	split := container.NewHSplit(listCard, right)
	split.SetOffset(0.3)

	view.content = split
	return view
}

func (v *browseView) canvas() fyne.CanvasObject {
	return v.content
}

func (v *browseView) setToolkit(tk *toolkit.Toolkit) {
	v.toolkit = tk
	v.names = tk.ListTables()
	v.list.UnselectAll()
	v.list.Refresh()
	if len(v.names) > 0 {
		v.list.Select(0)
		v.onTableSelected(0)
	} else {
		v.previewRows = nil
		v.previewTable.Refresh()
		v.metaLabel.SetText("The loaded graph holds no tables.")
	}
}

func (v *browseView) onTableSelected(index int) {
	if v.toolkit == nil || index < 0 || index >= len(v.names) {
		return
	}

	detail := v.toolkit.DescribeTable(v.names[index])
	if detail == nil {
		return
	}

	rows := make([][]string, 0, len(detail.Columns))
	pkColumns := make(map[string]struct{})
	if detail.PrimaryKey != nil {
		for _, col := range detail.PrimaryKey.Columns {
			pkColumns[col] = struct{}{}
		}
	}
	fkTargets := make(map[string]string)
	for _, fk := range detail.ForeignKeys {
		for _, col := range fk.Columns {
			fkTargets[col] = fk.ReferencedTable
		}
	}

	for _, col := range detail.Columns {
		nullable := "no"
		if col.IsNullable {
			nullable = "yes"
		}
		var flags []string
		if _, ok := pkColumns[col.Name]; ok {
			flags = append(flags, "PK")
		}
		if target, ok := fkTargets[col.Name]; ok && target != "" {
			flags = append(flags, "FK->"+target)
		}
		colType := col.SQLType
		if colType == "" {
			colType = col.Type
		}
		rows = append(rows, []string{col.Name, colType, nullable, strings.Join(flags, " "), col.Description})
	}

	v.previewRows = rows
	v.previewTable.Refresh()

	description := detail.Description
	if description == "" {
		description = "No description recorded."
	}
	v.metaLabel.SetText(fmt.Sprintf("%s.%s\n%s\nColumns: %d (%d nullable) • References out: %d, in: %d, many-to-many: %d",
		detail.Schema, detail.TableName, description,
		detail.Statistics.TotalColumns, detail.Statistics.NullableColumns,
		len(detail.Relationships.Outgoing), len(detail.Relationships.Incoming), len(detail.Relationships.ManyToMany)))
}

func (v *browseView) tableSize() (int, int) {
	return len(v.previewRows) + 1, len(v.previewColumns)
}

func (v *browseView) updateTableCell(id widget.TableCellID, cell fyne.CanvasObject) {
	label := cell.(*widget.Label)
	if id.Row == 0 {
		label.SetText(v.previewColumns[id.Col])
		label.TextStyle = fyne.TextStyle{Bold: true}
		return
	}
	label.TextStyle = fyne.TextStyle{}
	row := id.Row - 1
	if row < len(v.previewRows) && id.Col < len(v.previewRows[row]) {
		label.SetText(v.previewRows[row][id.Col])
	} else {
		label.SetText("")
	}
}
