package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"campus-inventory/internal/inventory"
	"campus-inventory/internal/store"
)

const (
	colorBorder  = "#6272A4"
	colorLabel   = "#8BE9FD"
	colorPos     = "#F1FA8C"
	colorMuted   = "#6272A4"
	colorSuccess = "#50FA7B"
)

type styles struct {
	border, label, position, muted, success lipgloss.Style
}

func newStyles() styles {
	return styles{
		border: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorBorder)),
		label: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorLabel)).
			Bold(true),
		position: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorPos)),
		muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorMuted)),
		success: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorSuccess)),
	}
}

// renderDevice draws r in the legacy block form with styled labels, so the
// output can still be fed back through import.
func renderDevice(st styles, pos int, r inventory.Record, now time.Time) string {
	var b strings.Builder
	field := func(label, value string) {
		fmt.Fprintf(&b, "%s %s\n", st.label.Render(label+":"), value)
	}

	b.WriteString(st.border.Render(inventory.Border) + "\n")
	b.WriteString(st.position.Render("#"+strconv.Itoa(pos)) + "\n")
	field(inventory.LabelType, r.Kind.Label())
	field(inventory.LabelName, r.Name)
	if r.IP != "" {
		field(inventory.LabelIP, r.IP)
	}
	if r.Layer != "" {
		field(inventory.LabelLayer, string(r.Layer))
	}
	if len(r.Services) > 0 {
		tags := make([]string, len(r.Services))
		for i, svc := range r.Services {
			tags[i] = string(svc)
		}
		field(inventory.LabelServices, strings.Join(tags, ", "))
	}
	b.WriteString(st.muted.Render("Saved: "+savedAge(r.LastModified, now)) + "\n")
	b.WriteString(st.border.Render(inventory.Border) + "\n")
	return b.String()
}

func savedAge(t, now time.Time) string {
	if t.IsZero() {
		return "not yet"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// renderCampuses draws the catalog as a table. The selected campus is
// marked with an asterisk.
func renderCampuses(w io.Writer, st styles, campuses []*store.Campus, selected string, now time.Time) {
	rows := make([][]string, 0, len(campuses))
	for _, c := range campuses {
		mark := ""
		if c.Name == store.NormalizeName(selected) {
			mark = "*"
		}
		rows = append(rows, []string{
			mark,
			c.Name,
			store.Slug(c.Name) + ".json",
			humanize.Comma(int64(c.DeviceCount)),
			savedAge(c.LastSaved, now),
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(st.border).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return st.label.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("", "CAMPUS", "FILE", "DEVICES", "SAVED").
		Rows(rows...)
	fmt.Fprintln(w, t.String())
}
