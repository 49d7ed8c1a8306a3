package viewer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blockStates(p *Page) map[string]CollapseState {
	states := make(map[string]CollapseState)
	for _, b := range p.Blocks() {
		states[b.ID] = b.State()
	}
	return states
}

func TestCollapseAll_Collapse(t *testing.T) {
	f := newFixture(t, testLayout())
	p := f.page
	btn := p.CollapseAllButton()

	require.True(t, p.CollapseAll.OnClick())
	assert.Equal(t, ModeExpanded, btn.Mode(), "mode flips only after completion")
	assert.Equal(t, "Collapse all", btn.Label())
	assert.False(t, btn.Armed())

	assert.False(t, p.CollapseAll.OnClick(), "click ignored while busy")

	f.loop.Drain()
	for id, st := range blockStates(p) {
		assert.Equal(t, Hidden, st, "block %s", id)
	}
	assert.Equal(t, ModeCollapsed, btn.Mode())
	assert.Equal(t, "Expand all", btn.Label())
	assert.True(t, btn.Armed())
	assert.Equal(t, 1, f.observer.count("mode"))
	assert.True(t, p.Section("0").IsShown(), "sections are not touched")
}

func TestCollapseAll_RoundTrip(t *testing.T) {
	f := newFixture(t, testLayout())
	p := f.page

	p.CollapseAll.OnClick()
	f.loop.Drain()
	p.CollapseAll.OnClick()
	f.loop.Drain()

	for id, st := range blockStates(p) {
		assert.Equal(t, Shown, st, "block %s", id)
	}
	assert.Equal(t, ModeExpanded, p.CollapseAllButton().Mode())
	assert.Equal(t, 2, f.observer.count("mode"))
}

func TestCollapseAll_SkipsBlocksInTargetState(t *testing.T) {
	layout := testLayout()
	layout.Sections[0].Blocks[0].Shown = false
	layout.Sections[1].Blocks[1].Shown = false
	f := newFixture(t, layout)

	f.page.CollapseAll.OnClick()
	f.loop.Drain()

	assert.Zero(t, f.anim.started["block-0-0"])
	assert.Zero(t, f.anim.started["block-1-1"])
	assert.Equal(t, 1, f.anim.started["block-0-1"])
	assert.Equal(t, 1, f.anim.started["block-0-2"])
	assert.Equal(t, 1, f.anim.started["block-1-0"])
	assert.Equal(t, ModeCollapsed, f.page.CollapseAllButton().Mode())
}

func TestCollapseAll_AwaitsBlockMovingToTarget(t *testing.T) {
	f := newFixture(t, testLayout())
	p := f.page

	p.Toggle("block-0-1")
	require.Equal(t, Hiding, p.Block("0-1").State())

	p.CollapseAll.OnClick()
	f.loop.Drain()

	assert.Equal(t, 1, f.anim.started["block-0-1"], "in-flight block is not restarted")
	assert.Equal(t, Hidden, p.Block("0-1").State())
	assert.Equal(t, ModeCollapsed, p.CollapseAllButton().Mode())
	assert.Equal(t, 1, f.observer.count("mode"))
}

func TestCollapseAll_ReversesBlockMovingAway(t *testing.T) {
	layout := testLayout()
	layout.Sections[0].Blocks[1].Shown = false
	f := newFixture(t, layout)
	p := f.page

	p.Toggle("block-0-1")
	require.Equal(t, Showing, p.Block("0-1").State())

	p.CollapseAll.OnClick()
	assert.Equal(t, Showing, p.Block("0-1").State())

	f.loop.Drain()
	assert.Equal(t, Hidden, p.Block("0-1").State())
	assert.Equal(t, 2, f.anim.started["block-0-1"])
	assert.Equal(t, ModeCollapsed, p.CollapseAllButton().Mode())
}

func TestCollapseAll_NothingToDo(t *testing.T) {
	f := newFixture(t, collapsedLayout())
	p := f.page

	// mode says expanded but every block is already collapsed
	require.True(t, p.CollapseAll.OnClick())
	assert.Equal(t, ModeCollapsed, p.CollapseAllButton().Mode())
	assert.True(t, p.CollapseAllButton().Armed())
	assert.Equal(t, 0, f.loop.Len())
}

func TestCollapseAll_IncludesFilteredBlocks(t *testing.T) {
	f := newFixture(t, testLayout())
	p := f.page

	p.Filter.OnToggleButtonClick("good")
	require.False(t, p.Block("0-1").Visible())

	p.CollapseAll.OnClick()
	f.loop.Drain()
	assert.True(t, p.Block("0-1").IsHidden())
	assert.False(t, p.Block("0-1").Visible(), "collapse does not change filter visibility")
}

func TestCollapseAll_InstantAnimator(t *testing.T) {
	p := NewPage(testLayout(), Options{})

	require.True(t, p.CollapseAll.OnClick())
	assert.Equal(t, ModeCollapsed, p.CollapseAllButton().Mode())
	assert.True(t, p.CollapseAllButton().Armed())
	for id, st := range blockStates(p) {
		assert.Equal(t, Hidden, st, "block %s", id)
	}
}

func TestCollapseAll_WithCoordinator(t *testing.T) {
	f := newFixture(t, testLayout())
	p := f.page

	p.CollapseAll.OnClick()
	p.Coordinator.Open("1", "1-0")
	f.loop.Drain()

	// the link waits for the collapse of its block, then reopens it
	assert.Equal(t, ModeCollapsed, p.CollapseAllButton().Mode())
	assert.True(t, p.Block("1-0").IsShown())
	assert.Equal(t, []string{"block-anchor-1-0"}, f.scroller.All())
}

// unrenderedAnimator settles bodies that are not rendered at once and the
// rest on the loop, as the browser animator does
type unrenderedAnimator struct {
	loop       *Loop
	unrendered map[string]bool
}

func (a unrenderedAnimator) Animate(c *Collapsible, dir Direction) {
	if a.unrendered[c.BodyID()] {
		c.Settle()
		return
	}
	a.loop.Post(c.Settle)
}

func TestCollapseAll_UnrenderedBlocksSettleAtOnce(t *testing.T) {
	loop := NewLoop()
	p := NewPage(testLayout(), Options{Animator: unrenderedAnimator{
		loop:       loop,
		unrendered: map[string]bool{"block-0-1": true},
	}})

	p.Filter.OnToggleButtonClick("good")
	require.False(t, p.Block("0-1").Visible())

	require.True(t, p.CollapseAll.OnClick())
	assert.True(t, p.Block("0-1").IsHidden(), "filtered block settles without a transition")
	loop.Drain()

	assert.Equal(t, ModeCollapsed, p.CollapseAllButton().Mode())
	require.True(t, p.CollapseAllButton().Armed(), "button re-arms")

	require.True(t, p.CollapseAll.OnClick())
	loop.Drain()
	assert.Equal(t, ModeExpanded, p.CollapseAllButton().Mode())
	for id, st := range blockStates(p) {
		assert.Equal(t, Shown, st, "block %s", id)
	}
}
