package viewer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTags = []Tag{
	{Name: "Good", Marker: "good"},
	{Name: "Warning", Marker: "warning"},
	{Name: "Bad", Marker: "bad"},
	{Name: "No Status", Marker: "no-status"},
}

// testLayout has two expanded sections:
//
//	0: 0-0 [good], 0-1 [warning], 0-2 [bad warning]
//	1: 1-0 [no-status], 1-1 [good]
func testLayout() Layout {
	return Layout{
		Tags: testTags,
		Sections: []SectionLayout{
			{ID: "0", Shown: true, Blocks: []BlockLayout{
				{ID: "0-0", Markers: []string{"good"}, Shown: true},
				{ID: "0-1", Markers: []string{"warning"}, Shown: true},
				{ID: "0-2", Markers: []string{"bad", "warning"}, Shown: true},
			}},
			{ID: "1", Shown: true, Blocks: []BlockLayout{
				{ID: "1-0", Markers: []string{"no-status"}, Shown: true},
				{ID: "1-1", Markers: []string{"good"}, Shown: true},
			}},
		},
		Text: ButtonText{Expanded: "Collapse all", Collapsed: "Expand all"},
	}
}

type change struct {
	kind string
	id   string
	val  string
}

type recordingObserver struct {
	changes []change
}

func (o *recordingObserver) ButtonChanged(b *ToggleButton) {
	val := "off"
	if b.Active() {
		val = "on"
	}
	o.changes = append(o.changes, change{"button", b.Tag.Marker, val})
}

func (o *recordingObserver) BlockVisibilityChanged(b *Block) {
	val := "hide"
	if b.Visible() {
		val = "reveal"
	}
	o.changes = append(o.changes, change{"visibility", b.ID, val})
}

func (o *recordingObserver) CollapsibleChanged(c *Collapsible) {
	o.changes = append(o.changes, change{"collapse", c.BodyID(), c.State().String()})
}

func (o *recordingObserver) CollapseAllChanged(b *CollapseAllButton) {
	o.changes = append(o.changes, change{"mode", "collapse-all", string(b.Mode())})
}

func (o *recordingObserver) count(kind string) int {
	n := 0
	for _, c := range o.changes {
		if c.kind == kind {
			n++
		}
	}
	return n
}

// countingAnimator settles every animation on the next loop turn and
// counts how often each element was animated
type countingAnimator struct {
	loop    *Loop
	started map[string]int
}

func newCountingAnimator(loop *Loop) *countingAnimator {
	return &countingAnimator{loop: loop, started: make(map[string]int)}
}

func (a *countingAnimator) Animate(c *Collapsible, dir Direction) {
	a.started[c.BodyID()]++
	a.loop.Post(c.Settle)
}

type fixture struct {
	page     *Page
	loop     *Loop
	anim     *countingAnimator
	scroller *AnchorRecorder
	observer *recordingObserver
}

func newFixture(t *testing.T, layout Layout) *fixture {
	t.Helper()
	loop := NewLoop()
	f := &fixture{
		loop:     loop,
		anim:     newCountingAnimator(loop),
		scroller: &AnchorRecorder{},
		observer: &recordingObserver{},
	}
	f.page = NewPage(layout, Options{Animator: f.anim, Scroller: f.scroller, Observer: f.observer})
	return f
}

func visibleBlocks(p *Page) []string {
	var ids []string
	for _, b := range p.Blocks() {
		if b.Visible() {
			ids = append(ids, b.ID)
		}
	}
	return ids
}

func TestNewPage(t *testing.T) {
	f := newFixture(t, testLayout())
	p := f.page

	require.Len(t, p.Buttons(), 4)
	require.Len(t, p.Sections(), 2)
	require.Len(t, p.Blocks(), 5)

	assert.True(t, p.Filter.AllActive())
	assert.Equal(t, ModeExpanded, p.CollapseAllButton().Mode())
	assert.Equal(t, "Collapse all", p.CollapseAllButton().Label())
	assert.True(t, p.CollapseAllButton().Armed())

	blk := p.Block("0-2")
	require.NotNil(t, blk)
	assert.Equal(t, "0", blk.SectionID)
	assert.True(t, blk.HasMarker("warning"))
	assert.False(t, blk.HasMarker("good"))
	assert.Equal(t, "block-0-2", blk.BodyID())
	assert.Equal(t, "block-anchor-0-2", blk.AnchorID())
	assert.Equal(t, "section-heading-1", p.Section("1").HeadingID())

	assert.Nil(t, p.Block("9-9"))
	assert.Nil(t, p.Section("9"))
	assert.Nil(t, p.Button("missing"))
	assert.Empty(t, f.observer.changes)
}

func TestNewPage_InitialState(t *testing.T) {
	layout := testLayout()
	layout.Tags = append(layout.Tags, Tag{Name: "Good", Marker: "good"})
	layout.Inactive = []string{"bad"}
	layout.Mode = ModeCollapsed

	p := NewPage(layout, Options{})
	assert.Len(t, p.Buttons(), 4, "duplicate markers collapse into one button")
	assert.False(t, p.Button("bad").Active())
	assert.Equal(t, ModeCollapsed, p.CollapseAllButton().Mode())
	assert.Equal(t, "Expand all", p.CollapseAllButton().Label())
}

func TestPage_Toggle(t *testing.T) {
	f := newFixture(t, testLayout())
	blk := f.page.Block("0-1")

	f.page.Toggle("block-0-1")
	assert.Equal(t, Hiding, blk.State())
	assert.True(t, blk.InFlight())
	assert.Equal(t, Hidden, blk.Target())

	f.loop.Drain()
	assert.True(t, blk.IsHidden())

	f.page.Toggle("section-1")
	f.loop.Drain()
	assert.True(t, f.page.Section("1").IsHidden())

	// unknown ids are ignored
	f.page.Toggle("block-9-9")
	assert.Equal(t, 0, f.loop.Len())
}

func TestPage_ToggleQueuesBehindAnimation(t *testing.T) {
	f := newFixture(t, testLayout())
	blk := f.page.Block("0-0")

	f.page.Toggle("block-0-0")
	f.page.Toggle("block-0-0")
	assert.Equal(t, Hiding, blk.State(), "second click must not pre-empt")

	f.loop.Drain()
	assert.True(t, blk.IsShown())
	assert.Equal(t, 2, f.anim.started["block-0-0"])
}

func TestCollapsible_SettleFiresOnce(t *testing.T) {
	c := newCollapsible(KindBlock, "0-0", false)
	fired := 0
	c.Once(EventShown, func() { fired++ })
	c.Once(EventHidden, func() { t.Fatal("hidden must not fire") })

	require.True(t, c.begin(Expand))
	assert.False(t, c.begin(Expand), "in-flight element cannot begin again")
	c.Settle()
	c.Settle()
	assert.Equal(t, 1, fired)
	assert.True(t, c.IsShown())

	assert.False(t, c.begin(Expand), "already shown")
}

func TestPage_Snapshot(t *testing.T) {
	f := newFixture(t, testLayout())
	f.page.Filter.OnToggleButtonClick("bad")

	s := f.page.Snapshot()
	require.Len(t, s.Buttons, 4)
	assert.True(t, s.Buttons[2].Active)
	assert.False(t, s.Buttons[0].Active)
	require.Len(t, s.Blocks, 5)
	assert.True(t, s.Blocks[2].Visible)
	assert.False(t, s.Blocks[1].Visible)
	assert.Equal(t, "shown", s.Sections[0].State)
	assert.Equal(t, ModeExpanded, s.CollapseAll.Mode)
}

func TestLoop(t *testing.T) {
	l := NewLoop()
	var order []int
	l.Post(func() {
		order = append(order, 1)
		l.Post(func() { order = append(order, 3) })
	})
	l.Post(func() { order = append(order, 2) })

	assert.Equal(t, 2, l.Len())
	assert.Equal(t, 3, l.Drain())
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.False(t, l.Step())
}

func TestAnchorRecorder(t *testing.T) {
	r := &AnchorRecorder{}
	assert.Equal(t, "", r.Last())
	r.ScrollIntoView("a")
	r.ScrollIntoView("b")
	assert.Equal(t, "b", r.Last())
	assert.Equal(t, []string{"a", "b"}, r.All())
}
