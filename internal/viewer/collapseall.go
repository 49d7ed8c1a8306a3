package viewer

// CollapseAll drives every block to one state from the global button.
// The button mode and label change only after every block it started, or
// waited for, has finished animating. Clicks during that time are ignored.
type CollapseAll struct {
	page *Page
}

// OnClick handles a click on the collapse-all button. It returns false if
// the click was ignored because a previous run is still in progress.
func (c *CollapseAll) OnClick() bool {
	p := c.page
	btn := p.collapseAll
	if !btn.armed {
		return false
	}
	btn.armed = false

	dir, want, next := Collapse, Hidden, ModeCollapsed
	if btn.mode == ModeCollapsed {
		dir, want, next = Expand, Shown, ModeExpanded
	}

	var targets []*Block
	for _, blk := range p.blocks {
		if blk.state != want {
			targets = append(targets, blk)
		}
	}

	pending := len(targets)
	if pending == 0 {
		c.finish(next)
		return true
	}
	done := func() {
		pending--
		if pending == 0 {
			c.finish(next)
		}
	}
	for _, blk := range targets {
		c.drive(blk, dir, want, done)
	}
	return true
}

// drive moves one block to want and calls done exactly once when it is there.
// A block animating toward want is awaited; a block animating away from it
// is reversed after its current animation completes.
func (c *CollapseAll) drive(blk *Block, dir Direction, want CollapseState, done func()) {
	ev := EventShown
	if want == Hidden {
		ev = EventHidden
	}

	switch {
	case blk.state == want:
		done()
	case blk.InFlight() && blk.Target() == want:
		blk.Once(ev, done)
	case blk.InFlight():
		blk.Once(blk.pendingEvent(), func() { c.drive(blk, dir, want, done) })
	default:
		blk.Once(ev, done)
		c.page.animate(&blk.Collapsible, dir)
	}
}

func (c *CollapseAll) finish(next Mode) {
	c.page.setMode(next)
	c.page.collapseAll.armed = true
}
