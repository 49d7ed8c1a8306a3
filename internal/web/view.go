package web

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/verustcode/glance/internal/report"
	"github.com/verustcode/glance/internal/viewer"
)

// Labels of the collapse-all button per mode
var collapseAllText = viewer.ButtonText{
	Expanded:  "Collapse all",
	Collapsed: "Expand all",
}

// ViewOptions is the initial view state requested by a report URL
type ViewOptions struct {
	// Tags pre-selects the tag filter, by tag name or marker
	Tags []string
	// Block opens the block with this document-wide index; -1 for none
	Block int
	// Collapsed starts with every block collapsed
	Collapsed bool
	// CollapsedSet is true when the URL gave collapsed explicitly
	CollapsedSet bool
}

// DefaultViewOptions shows everything
func DefaultViewOptions() ViewOptions {
	return ViewOptions{Block: -1}
}

// ParseViewOptions reads ?tags=a,b&collapsed=1 on top of defaults
func ParseViewOptions(q url.Values, defaults ViewOptions) ViewOptions {
	opts := defaults
	opts.Tags = append([]string(nil), defaults.Tags...)
	for _, v := range q["tags"] {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				opts.Tags = append(opts.Tags, tag)
			}
		}
	}
	if c := q.Get("collapsed"); c != "" {
		if v, err := strconv.ParseBool(c); err == nil {
			opts.Collapsed, opts.CollapsedSet = v, true
		}
	}
	return opts
}

// Query encodes the options that live in the query string
func (o ViewOptions) Query() string {
	q := url.Values{}
	if len(o.Tags) > 0 {
		q.Set("tags", strings.Join(o.Tags, ","))
	}
	if o.Collapsed {
		q.Set("collapsed", "1")
	} else if o.CollapsedSet {
		q.Set("collapsed", "0")
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// NewPageState builds the view state of a document and applies the
// requested options to it, the same way clicks would in the browser
func NewPageState(doc *report.Document, tags report.TagSet, opts ViewOptions) *viewer.Page {
	layout := viewer.Layout{Mode: viewer.ModeExpanded, Text: collapseAllText}
	for _, name := range tags.Names {
		layout.Tags = append(layout.Tags, viewer.Tag{Name: name, Marker: tags.Markers[name]})
	}
	for _, sec := range doc.Sections {
		sl := viewer.SectionLayout{ID: sec.ID, Shown: true}
		for _, blk := range sec.Blocks {
			sl.Blocks = append(sl.Blocks, viewer.BlockLayout{
				ID:      blk.ID,
				Markers: tags.BlockMarkers(blk),
				Shown:   true,
			})
		}
		layout.Sections = append(layout.Sections, sl)
	}

	page := viewer.NewPage(layout, viewer.Options{Animator: viewer.InstantAnimator{}})
	if len(opts.Tags) > 0 {
		page.Filter.Apply(resolveMarkers(tags, opts.Tags))
	}
	if opts.Collapsed {
		page.CollapseAll.OnClick()
	}
	if opts.Block >= 0 {
		if sec, blk, ok := doc.BlockAt(opts.Block); ok {
			page.Coordinator.Open(sec.ID, blk.ID)
		}
	}
	return page
}

// resolveMarkers maps tag names and markers to the markers of tags;
// unknown values are dropped
func resolveMarkers(tags report.TagSet, values []string) []string {
	markers := make([]string, 0, len(values))
	for _, v := range values {
		if m, ok := tags.Marker(v); ok {
			markers = append(markers, m)
		}
	}
	return markers
}
