package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/verustcode/glance/internal/report"
	"github.com/verustcode/glance/internal/store"
	"github.com/verustcode/glance/pkg/errors"
)

var baseTime = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func testOptions() Options {
	return Options{
		ReportTTL:  time.Hour,
		ReportSize: 10,
		InfoTTL:    time.Hour,
		InfoSize:   10,
		ListTTL:    time.Hour,
		Locale:     language.English,
	}
}

func setupCatalog(t *testing.T) (store.Store, *Catalog) {
	t.Helper()
	s, cleanup := store.SetupTestDB(t)
	t.Cleanup(cleanup)
	c := New(s.Run(), testOptions())
	c.now = func() time.Time { return baseTime.Add(24 * time.Hour) }
	return s, c
}

func TestCatalog_IndexAndGroups(t *testing.T) {
	s, c := setupCatalog(t)
	ctx := context.Background()

	store.CreateTestRun(t, s, "Nightly | Check 10", "r1", baseTime, report.StatusGood)
	store.CreateTestRun(t, s, "Nightly | Check 9", "r1", baseTime, report.StatusBad)
	store.CreateTestRun(t, s, "beta | Smoke", "r1", baseTime, report.StatusGood)
	store.CreateTestRun(t, s, "Standalone", "r1", baseTime, report.StatusWarning)
	store.CreateTestRun(t, s, "Standalone", "r2", baseTime.Add(time.Hour), report.StatusGood)

	ids, err := c.ListReports(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"beta-smoke", "nightly-check-9", "nightly-check-10", "standalone"}, ids)

	groups, err := c.Groups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, "", groups[0].Name)
	assert.Equal(t, "beta", groups[1].Name)
	assert.Equal(t, "Nightly", groups[2].Name)
	require.Len(t, groups[2].Reports, 2)
	assert.Equal(t, "Check 9", groups[2].Reports[0].ShortTitle)
	assert.Equal(t, "Check 10", groups[2].Reports[1].ShortTitle)

	standalone := groups[0].Reports[0]
	assert.Equal(t, "standalone", standalone.ID)
	assert.Equal(t, "r2", standalone.Latest)
	require.Len(t, standalone.Runs, 2)
	assert.Equal(t, report.StatusGood, standalone.LatestRun().Status)
	assert.Equal(t, 1, standalone.Runs[1].StatusStats[report.StatusWarning])
}

func TestCatalog_InfoNotFound(t *testing.T) {
	_, c := setupCatalog(t)

	_, err := c.Info(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeReportNotFound))

	_, err = c.Run(context.Background(), "missing", "latest")
	assert.True(t, errors.HasCode(err, errors.ErrCodeReportNotFound))
}

func TestCatalog_Run(t *testing.T) {
	s, c := setupCatalog(t)
	ctx := context.Background()

	store.CreateTestRun(t, s, "Nightly", "r1", baseTime, report.StatusGood)
	store.CreateTestRun(t, s, "Nightly", "r2", baseTime.Add(time.Hour), report.StatusBad)

	doc, err := c.Run(ctx, "nightly", "latest")
	require.NoError(t, err)
	assert.Equal(t, "nightly", doc.ID)
	assert.Equal(t, "r2", doc.RunID)
	blk := doc.Sections[0].Blocks[0]
	assert.Equal(t, "0-0", blk.ID)
	assert.True(t, blk.HasTag("Bad"), "status tag should be applied")

	again, err := c.Run(ctx, "nightly", "r2")
	require.NoError(t, err)
	assert.Same(t, doc, again, "parsed runs should be cached")

	_, err = c.Run(ctx, "nightly", "r9")
	assert.True(t, errors.HasCode(err, errors.ErrCodeRunNotFound))
}

func TestCatalog_Invalidate(t *testing.T) {
	s, c := setupCatalog(t)
	ctx := context.Background()

	store.CreateTestRun(t, s, "Nightly", "r1", baseTime, report.StatusGood)
	info, err := c.Info(ctx, "nightly")
	require.NoError(t, err)
	assert.Equal(t, "r1", info.Latest)

	store.CreateTestRun(t, s, "Nightly", "r2", baseTime.Add(time.Hour), report.StatusGood)
	info, _ = c.Info(ctx, "nightly")
	assert.Equal(t, "r1", info.Latest, "info should be served from cache")

	c.Invalidate("nightly")
	info, err = c.Info(ctx, "nightly")
	require.NoError(t, err)
	assert.Equal(t, "r2", info.Latest)

	ids, _ := c.ListReports(ctx)
	store.CreateTestRun(t, s, "Other", "r1", baseTime, report.StatusGood)
	cached, _ := c.ListReports(ctx)
	assert.Equal(t, ids, cached)
	c.Invalidate("")
	ids, _ = c.ListReports(ctx)
	assert.Equal(t, []string{"nightly", "other"}, ids)
}

func TestCatalog_ClosestRun(t *testing.T) {
	s, c := setupCatalog(t)
	ctx := context.Background()

	for i, id := range []string{"a1", "a2", "a3"} {
		store.CreateTestRun(t, s, "A", id, baseTime.Add(time.Duration(i)*time.Hour), report.StatusGood)
	}
	store.CreateTestRun(t, s, "B", "b2", baseTime.Add(time.Hour+10*time.Minute), report.StatusGood)

	got, err := c.ClosestRun(ctx, "a", "b2")
	require.NoError(t, err)
	assert.Equal(t, "a2", got)

	got, err = c.ClosestRun(ctx, "a", "unknown")
	require.NoError(t, err)
	assert.Equal(t, "a3", got, "unknown run ids fall back to the newest run")

	_, err = c.ClosestRun(ctx, "missing", "a1")
	assert.True(t, errors.HasCode(err, errors.ErrCodeReportNotFound))
}
