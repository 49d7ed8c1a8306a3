package viewer

import (
	"github.com/verustcode/glance/pkg/logger"
	"go.uber.org/zap"
)

// Coordinator opens a block from a sidebar link: it expands the enclosing
// section, then the block, then scrolls the block anchor into view.
//
// Every step registers its one-shot completion listener before starting the
// animation. An element that is already animating is not interrupted; the
// request resumes when that animation completes.
type Coordinator struct {
	page *Page
}

// Open drives the section and block to the shown state and scrolls to the
// block. It returns false if either id is unknown.
func (c *Coordinator) Open(sectionID, blockID string) bool {
	sec := c.page.Section(sectionID)
	blk := c.page.Block(blockID)
	if sec == nil || blk == nil {
		logger.Debug("Open on unknown element",
			zap.String("section", sectionID),
			zap.String("block", blockID))
		return false
	}
	c.step(sec, blk)
	return true
}

func (c *Coordinator) step(sec *Section, blk *Block) {
	p := c.page
	resume := func() { c.step(sec, blk) }

	switch {
	case sec.InFlight():
		sec.Once(sec.pendingEvent(), resume)
	case !sec.IsShown():
		sec.Once(EventShown, resume)
		p.animate(&sec.Collapsible, Expand)
	case blk.InFlight():
		blk.Once(blk.pendingEvent(), resume)
	case !blk.IsShown():
		blk.Once(EventShown, resume)
		p.animate(&blk.Collapsible, Expand)
	default:
		p.scroller.ScrollIntoView(blk.AnchorID())
	}
}
