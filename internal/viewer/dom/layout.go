package dom

import (
	"strings"

	"github.com/verustcode/glance/internal/viewer"
)

// The attribute model is what the binding reads off the server-rendered
// markup before any DOM event is wired.

type buttonAttrs struct {
	Marker string
	Text   string
	Active bool
}

type blockAttrs struct {
	ID      string
	Classes []string
	// Shown is the body's "show" class
	Shown bool
	// DisplayNone is an inline display:none on the block
	DisplayNone bool
}

type sectionAttrs struct {
	ID     string
	Shown  bool
	Blocks []blockAttrs
}

type collapseAllAttrs struct {
	Present       bool
	Mode          string
	TextExpanded  string
	TextCollapsed string
}

// buildLayout turns the markup attributes into a viewer layout. Buttons
// without a marker and repeated markers are skipped; a block's markers are
// its classes that name a known tag button.
func buildLayout(buttons []buttonAttrs, sections []sectionAttrs, ca collapseAllAttrs) viewer.Layout {
	var layout viewer.Layout
	known := make(map[string]bool, len(buttons))

	for _, btn := range buttons {
		if btn.Marker == "" || known[btn.Marker] {
			continue
		}
		known[btn.Marker] = true
		layout.Tags = append(layout.Tags, viewer.Tag{
			Name:   strings.TrimSpace(btn.Text),
			Marker: btn.Marker,
		})
		if !btn.Active {
			layout.Inactive = append(layout.Inactive, btn.Marker)
		}
	}

	for _, sa := range sections {
		sec := viewer.SectionLayout{ID: sa.ID, Shown: sa.Shown}
		for _, ba := range sa.Blocks {
			var markers []string
			for _, cls := range ba.Classes {
				if known[cls] {
					markers = append(markers, cls)
				}
			}
			sec.Blocks = append(sec.Blocks, viewer.BlockLayout{
				ID:      ba.ID,
				Markers: markers,
				Shown:   ba.Shown,
				Hidden:  ba.DisplayNone,
			})
		}
		layout.Sections = append(layout.Sections, sec)
	}

	if ca.Present {
		layout.Mode = viewer.Mode(ca.Mode)
		layout.Text = viewer.ButtonText{Expanded: ca.TextExpanded, Collapsed: ca.TextCollapsed}
	}
	return layout
}

// blockDisplay is the inline display of a block; empty removes the
// property so the stylesheet decides
func blockDisplay(visible bool) string {
	if visible {
		return ""
	}
	return "none"
}
