package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusPtr(s Status) *Status { return &s }

// sampleDocument builds a normalized two-section document
func sampleDocument() *Document {
	d := &Document{
		Title: "Nightly | Data Checks",
		RunID: "Run 42",
		Sections: []*Section{
			{
				Title: "Inputs",
				Blocks: []*Block{
					{
						Title: "Row counts",
						Tags:  []string{"db", "db", " "},
						Results: []*Result{
							NewText("orders", "1200 rows", StatusGood),
							NewText("customers", "12 rows", StatusWarning),
						},
					},
					{
						Title:   "Freshness",
						Results: []*Result{NewText("lag", "3h", StatusBad)},
					},
				},
			},
			{
				Title: "Outputs",
				Blocks: []*Block{
					{
						Title:   "Exports",
						Status:  statusPtr(StatusGood),
						Results: []*Result{NewText("files", "written", StatusBad)},
					},
					{
						Title:   "Notes",
						Results: []*Result{NewStatic("readme", "<b>ok</b>", StatusNeutral)},
					},
				},
			},
		},
	}
	d.Normalize(time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC))
	return d
}

func TestNormalizeIdentity(t *testing.T) {
	d := sampleDocument()

	assert.Equal(t, "nightly-data-checks", d.ID)
	assert.Equal(t, "run-42", d.RunID)
	assert.Equal(t, "Run 42", d.RunTitle)
	assert.Equal(t, []string{"db"}, d.Sections[0].Blocks[0].Tags)
}

func TestNormalizeDefaultsFromTimestamp(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC)
	d := &Document{Title: "Plain"}
	d.Normalize(now)

	assert.Equal(t, "2024_03_01_10_20_30", d.RunID)
	assert.Equal(t, "2024-03-01 10:20:30", d.RunTitle)
	assert.True(t, d.Timestamp.Equal(now))

	d = &Document{Title: "Plain", RunTitle: "custom"}
	d.Normalize(now)
	assert.Equal(t, "custom", d.RunTitle)
}

func TestAssignIDs(t *testing.T) {
	d := sampleDocument()

	assert.Equal(t, "0", d.Sections[0].ID)
	assert.Equal(t, "1-1", d.Sections[1].Blocks[1].ID)
	assert.Equal(t, "0-0-1", d.Sections[0].Blocks[0].Results[1].ID)
	assert.Equal(t, 3, d.Sections[1].Blocks[1].Index)
}

func TestBlockStatus(t *testing.T) {
	d := sampleDocument()

	assert.Equal(t, StatusWarning, d.Sections[0].Blocks[0].BlockStatus())
	assert.Equal(t, StatusGood, d.Sections[1].Blocks[0].BlockStatus(), "explicit status wins")
	assert.Equal(t, StatusNeutral, (&Block{}).BlockStatus())
}

func TestIterBlocksAndStats(t *testing.T) {
	d := sampleDocument()

	assert.Len(t, d.IterBlocks(StatusNeutral), 4)
	bad := d.IterBlocks(StatusBad)
	require.Len(t, bad, 1)
	assert.Equal(t, "Freshness", bad[0].Title)

	assert.Equal(t, StatusBad, d.WorstStatus())
	assert.Equal(t, map[Status]int{
		StatusNeutral: 1,
		StatusGood:    1,
		StatusWarning: 1,
		StatusBad:     1,
	}, d.StatusStats())

	empty := &Document{}
	assert.Equal(t, StatusNeutral, empty.WorstStatus())
	assert.Equal(t, 0, empty.StatusStats()[StatusBad])
}

func TestBlockAt(t *testing.T) {
	d := sampleDocument()

	sec, blk, ok := d.BlockAt(2)
	require.True(t, ok)
	assert.Equal(t, "Outputs", sec.Title)
	assert.Equal(t, "Exports", blk.Title)

	_, _, ok = d.BlockAt(4)
	assert.False(t, ok)
	_, _, ok = d.BlockAt(-1)
	assert.False(t, ok)
	assert.Equal(t, 4, d.BlockCount())
}

func TestElement(t *testing.T) {
	d := sampleDocument()

	el, err := d.Element(1, -1, -1)
	require.NoError(t, err)
	assert.Equal(t, "Outputs", el.(*Section).Title)

	el, err = d.ElementByID("0-1")
	require.NoError(t, err)
	assert.Equal(t, "Freshness", el.(*Block).Title)

	el, err = d.ElementByID("0-0-1")
	require.NoError(t, err)
	assert.Equal(t, "customers", el.(*Result).Title)

	for _, id := range []string{"5", "0-9", "0-0-9", "x", "0-0-0-0"} {
		_, err = d.ElementByID(id)
		assert.Error(t, err, id)
	}
}

func TestMatch(t *testing.T) {
	d := sampleDocument()

	found, err := d.Match("inputs")
	require.NoError(t, err)
	assert.Len(t, found, 3)

	found, err = d.Match("*/ROW*/cust*")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "customers", found[0].Title)

	_, err = d.Match("[")
	assert.Error(t, err)
}

func TestMatchRegexp(t *testing.T) {
	d := sampleDocument()

	found, err := d.MatchRegexp("put/^F")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "lag", found[0].Title)

	found, err = d.MatchRegexp("")
	require.NoError(t, err)
	assert.Len(t, found, 5)

	_, err = d.MatchRegexp("(")
	assert.Error(t, err)
}

func TestImageKeys(t *testing.T) {
	d := sampleDocument()
	d.Sections[1].Blocks[1].Results = append(d.Sections[1].Blocks[1].Results,
		NewImage("plot", "abc123", "Plot.PNG"))

	assert.Equal(t, []string{"abc123"}, d.ImageKeys())
	if assert.Len(t, d.Images(), 1) {
		assert.Equal(t, "Plot.PNG", d.Images()[0].Filename)
	}
}
