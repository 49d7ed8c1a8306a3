package viewer

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagFilter_IsolateOnSingleDeselect(t *testing.T) {
	f := newFixture(t, testLayout())
	p := f.page

	p.Filter.OnToggleButtonClick("warning")

	assert.Equal(t, []string{"warning"}, p.Filter.Active())
	assert.Equal(t, []string{"0-1", "0-2"}, visibleBlocks(p))
}

func TestTagFilter_SecondClickAddsTag(t *testing.T) {
	f := newFixture(t, testLayout())
	p := f.page

	p.Filter.OnToggleButtonClick("warning")
	p.Filter.OnToggleButtonClick("good")

	assert.Equal(t, []string{"good", "warning"}, p.Filter.Active())
	assert.Equal(t, []string{"0-0", "0-1", "0-2", "1-1"}, visibleBlocks(p))

	// deselecting from a partial selection does not isolate
	p.Filter.OnToggleButtonClick("good")
	assert.Equal(t, []string{"warning"}, p.Filter.Active())
	assert.Equal(t, []string{"0-1", "0-2"}, visibleBlocks(p))
}

func TestTagFilter_EmptySelectionResets(t *testing.T) {
	f := newFixture(t, testLayout())
	p := f.page

	p.Filter.OnToggleButtonClick("warning")
	require.Equal(t, []string{"warning"}, p.Filter.Active())

	p.Filter.OnToggleButtonClick("warning")
	assert.True(t, p.Filter.AllActive())
	assert.Len(t, visibleBlocks(p), 5)
}

func TestTagFilter_TwoTags(t *testing.T) {
	layout := Layout{
		Tags: []Tag{{Name: "A", Marker: "a"}, {Name: "B", Marker: "b"}},
		Sections: []SectionLayout{{ID: "0", Shown: true, Blocks: []BlockLayout{
			{ID: "0-0", Markers: []string{"a"}, Shown: true},
			{ID: "0-1", Markers: []string{"b"}, Shown: true},
		}}},
	}
	p := NewPage(layout, Options{})

	p.Filter.OnToggleButtonClick("a")
	assert.Equal(t, []string{"a"}, p.Filter.Active())
	assert.Equal(t, []string{"0-0"}, visibleBlocks(p))

	p.Filter.OnToggleButtonClick("b")
	assert.True(t, p.Filter.AllActive())

	p.Filter.OnToggleButtonClick("b")
	assert.Equal(t, []string{"b"}, p.Filter.Active())
	assert.Equal(t, []string{"0-1"}, visibleBlocks(p))
}

func TestTagFilter_SingleTag(t *testing.T) {
	layout := Layout{
		Tags: []Tag{{Name: "Good", Marker: "good"}},
		Sections: []SectionLayout{{ID: "0", Shown: true, Blocks: []BlockLayout{
			{ID: "0-0", Markers: []string{"good"}, Shown: true},
		}}},
	}
	p := NewPage(layout, Options{})

	p.Filter.OnToggleButtonClick("good")
	assert.True(t, p.Button("good").Active())
	assert.Equal(t, []string{"0-0"}, visibleBlocks(p))
}

func TestTagFilter_EnableAll(t *testing.T) {
	f := newFixture(t, testLayout())
	p := f.page

	p.Filter.OnToggleButtonClick("bad")
	require.Equal(t, []string{"bad"}, p.Filter.Active())

	p.Filter.OnEnableAllClick()
	assert.True(t, p.Filter.AllActive())
	assert.Len(t, visibleBlocks(p), 5)

	// the baseline is all-active again, so the next deselect isolates
	p.Filter.OnToggleButtonClick("good")
	assert.Equal(t, []string{"good"}, p.Filter.Active())
}

func TestTagFilter_UnknownTag(t *testing.T) {
	f := newFixture(t, testLayout())

	f.page.Filter.OnToggleButtonClick("missing")
	assert.True(t, f.page.Filter.AllActive())
	assert.Empty(t, f.observer.changes)
}

func TestTagFilter_HideBeforeReveal(t *testing.T) {
	f := newFixture(t, testLayout())

	f.page.Filter.OnToggleButtonClick("warning")

	var vis []change
	for _, c := range f.observer.changes {
		if c.kind == "visibility" {
			vis = append(vis, c)
		}
	}
	require.NotEmpty(t, vis)

	revealed := false
	for _, c := range vis {
		if c.val == "reveal" {
			revealed = true
			continue
		}
		assert.False(t, revealed, "hide of %s after a reveal", c.id)
	}
	assert.Equal(t, change{"visibility", "0-2", "reveal"}, vis[len(vis)-1])
	assert.True(t, f.page.Block("0-2").Visible(), "block with an active marker stays visible")
}

func TestTagFilter_RevealKeepsCollapseState(t *testing.T) {
	f := newFixture(t, testLayout())
	p := f.page

	p.Toggle("block-1-1")
	f.loop.Drain()
	require.True(t, p.Block("1-1").IsHidden())

	p.Filter.OnToggleButtonClick("warning")
	p.Filter.OnEnableAllClick()

	assert.True(t, p.Block("1-1").Visible())
	assert.True(t, p.Block("1-1").IsHidden())
	assert.Equal(t, 0, f.loop.Len())
}

func TestTagFilter_Apply(t *testing.T) {
	f := newFixture(t, testLayout())
	p := f.page

	p.Filter.Apply([]string{"good", "bad"})
	assert.Equal(t, []string{"good", "bad"}, p.Filter.Active())
	assert.Equal(t, []string{"0-0", "0-2", "1-1"}, visibleBlocks(p))

	// three of four selected must not be treated as an isolate click
	p.Filter.Apply([]string{"good", "warning", "bad"})
	assert.Equal(t, []string{"good", "warning", "bad"}, p.Filter.Active())
	assert.Equal(t, []string{"0-0", "0-1", "0-2", "1-1"}, visibleBlocks(p))

	p.Filter.Apply([]string{"unknown"})
	assert.True(t, p.Filter.AllActive())
}

// TestTagFilter_Invariants clicks buttons at random and checks after every
// step that the selection is non-empty and visibility follows it exactly.
func TestTagFilter_Invariants(t *testing.T) {
	f := newFixture(t, testLayout())
	p := f.page
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		if rng.Intn(10) == 0 {
			p.Filter.OnEnableAllClick()
		} else {
			p.Filter.OnToggleButtonClick(testTags[rng.Intn(len(testTags))].Marker)
		}

		active := p.Filter.Active()
		require.NotEmpty(t, active, "step %d", i)

		set := make(map[string]bool)
		for _, m := range active {
			set[m] = true
		}
		for _, blk := range p.Blocks() {
			want := false
			for _, m := range blk.Markers {
				if set[m] {
					want = true
				}
			}
			require.Equal(t, want, blk.Visible(), "step %d block %s", i, blk.ID)
		}
	}
}
