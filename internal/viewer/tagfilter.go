package viewer

import (
	"github.com/verustcode/glance/pkg/logger"
	"go.uber.org/zap"
)

// TagFilter keeps block visibility in sync with the toggle buttons.
//
// The set of active buttons is never empty after a reconciliation, and a
// block is visible exactly when it carries at least one active marker.
type TagFilter struct {
	page *Page

	// counts seen by the previous reconciliation
	lastActive int
	lastTotal  int
}

func newTagFilter(p *Page) *TagFilter {
	f := &TagFilter{page: p}
	f.recordBaseline()
	return f
}

// OnToggleButtonClick flips the button of the given marker and reconciles.
// Unknown markers are ignored.
func (f *TagFilter) OnToggleButtonClick(marker string) {
	b := f.page.Button(marker)
	if b == nil {
		logger.Debug("Toggle click on unknown tag", zap.String("tag", marker))
		return
	}
	f.page.setActive(b, !b.active)
	f.Reconcile()
}

// OnEnableAllClick activates every button and reconciles
func (f *TagFilter) OnEnableAllClick() {
	for _, b := range f.page.buttons {
		f.page.setActive(b, true)
	}
	f.Reconcile()
}

// Apply sets exactly the given markers active and reconciles without the
// isolate rule. Used for filters coming from the URL. Unknown markers are
// ignored; if none of the markers is known every button stays active.
func (f *TagFilter) Apply(markers []string) {
	want := make(map[string]bool, len(markers))
	known := 0
	for _, m := range markers {
		if f.page.Button(m) != nil && !want[m] {
			want[m] = true
			known++
		}
	}
	for _, b := range f.page.buttons {
		f.page.setActive(b, known == 0 || want[b.Tag.Marker])
	}
	f.recordBaseline()
	f.Reconcile()
}

// Reconcile brings block visibility in line with the active buttons.
//
// A single deselection right after a state where every button was active
// isolates that tag. An empty selection resets every button to active.
// Blocks of inactive tags are hidden before blocks of active tags are
// revealed, so a block carrying both ends up visible.
func (f *TagFilter) Reconcile() {
	p := f.page
	active, inactive := p.partition()
	total := len(active) + len(inactive)
	if total == 0 {
		return
	}

	if len(inactive) == 1 && f.lastTotal > 0 && f.lastActive == f.lastTotal {
		for _, b := range p.buttons {
			p.setActive(b, !b.active)
		}
		f.recordBaseline()
		f.Reconcile()
		return
	}

	if len(active) == 0 {
		for _, b := range p.buttons {
			p.setActive(b, true)
		}
		f.Reconcile()
		return
	}

	for _, b := range inactive {
		for _, blk := range p.blocks {
			if blk.HasMarker(b.Tag.Marker) {
				p.setHidden(blk, true)
			}
		}
	}
	for _, b := range active {
		for _, blk := range p.blocks {
			if blk.HasMarker(b.Tag.Marker) {
				p.setHidden(blk, false)
			}
		}
	}

	f.lastActive, f.lastTotal = len(active), total
}

// Active returns the markers of the active buttons in tag order
func (f *TagFilter) Active() []string {
	active, _ := f.page.partition()
	markers := make([]string, 0, len(active))
	for _, b := range active {
		markers = append(markers, b.Tag.Marker)
	}
	return markers
}

// AllActive reports whether no tag is filtered out
func (f *TagFilter) AllActive() bool {
	_, inactive := f.page.partition()
	return len(inactive) == 0
}

func (f *TagFilter) recordBaseline() {
	active, inactive := f.page.partition()
	f.lastActive = len(active)
	f.lastTotal = len(active) + len(inactive)
}
