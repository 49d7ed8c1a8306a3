package viewer

import (
	"github.com/verustcode/glance/pkg/logger"
	"go.uber.org/zap"
)

// Observer receives every state change of a Page so that a rendering
// environment can mirror it. All methods are called synchronously from the
// controller that made the change.
type Observer interface {
	ButtonChanged(b *ToggleButton)
	BlockVisibilityChanged(b *Block)
	CollapsibleChanged(c *Collapsible)
	CollapseAllChanged(b *CollapseAllButton)
}

// NopObserver ignores every change
type NopObserver struct{}

func (NopObserver) ButtonChanged(*ToggleButton)           {}
func (NopObserver) BlockVisibilityChanged(*Block)         {}
func (NopObserver) CollapsibleChanged(*Collapsible)       {}
func (NopObserver) CollapseAllChanged(*CollapseAllButton) {}

// Layout describes the initial page as rendered by the server
type Layout struct {
	Tags     []Tag
	Sections []SectionLayout

	// Inactive lists the markers of buttons that start inactive
	Inactive []string

	// Mode is the initial collapse-all mode; empty means expanded
	Mode Mode
	Text ButtonText
}

// SectionLayout is the initial state of one section
type SectionLayout struct {
	ID     string
	Shown  bool
	Blocks []BlockLayout
}

// BlockLayout is the initial state of one block
type BlockLayout struct {
	ID      string
	Markers []string
	Shown   bool
	Hidden  bool
}

// Options are the collaborators of a Page
type Options struct {
	Animator Animator
	Scroller Scroller
	Observer Observer
}

// Page is the complete view state of one rendered report page
type Page struct {
	buttons     []*ToggleButton
	buttonIndex map[string]*ToggleButton

	sections     []*Section
	sectionIndex map[string]*Section
	blocks       []*Block
	blockIndex   map[string]*Block
	bodyIndex    map[string]*Collapsible

	collapseAll *CollapseAllButton

	animator Animator
	scroller Scroller
	observer Observer

	Filter      *TagFilter
	Coordinator *Coordinator
	CollapseAll *CollapseAll
}

// NewPage builds the view state from a layout. Missing collaborators default
// to InstantAnimator, a discarding Scroller and NopObserver.
func NewPage(layout Layout, opts Options) *Page {
	p := &Page{
		buttonIndex:  make(map[string]*ToggleButton),
		sectionIndex: make(map[string]*Section),
		blockIndex:   make(map[string]*Block),
		bodyIndex:    make(map[string]*Collapsible),
		animator:     opts.Animator,
		scroller:     opts.Scroller,
		observer:     opts.Observer,
	}
	if p.animator == nil {
		p.animator = InstantAnimator{}
	}
	if p.scroller == nil {
		p.scroller = &AnchorRecorder{}
	}
	if p.observer == nil {
		p.observer = NopObserver{}
	}

	inactive := make(map[string]bool, len(layout.Inactive))
	for _, m := range layout.Inactive {
		inactive[m] = true
	}
	for _, tag := range layout.Tags {
		if _, dup := p.buttonIndex[tag.Marker]; dup {
			continue
		}
		b := &ToggleButton{Tag: tag, active: !inactive[tag.Marker]}
		p.buttons = append(p.buttons, b)
		p.buttonIndex[tag.Marker] = b
	}

	for _, sl := range layout.Sections {
		sec := &Section{Collapsible: newCollapsible(KindSection, sl.ID, sl.Shown)}
		sec.notify = p.collapsibleChanged
		for _, bl := range sl.Blocks {
			blk := &Block{
				Collapsible: newCollapsible(KindBlock, bl.ID, bl.Shown),
				SectionID:   sl.ID,
				Markers:     append([]string(nil), bl.Markers...),
				hidden:      bl.Hidden,
			}
			blk.notify = p.collapsibleChanged
			sec.Blocks = append(sec.Blocks, blk)
			p.blocks = append(p.blocks, blk)
			p.blockIndex[bl.ID] = blk
			p.bodyIndex[blk.BodyID()] = &blk.Collapsible
		}
		p.sections = append(p.sections, sec)
		p.sectionIndex[sl.ID] = sec
		p.bodyIndex[sec.BodyID()] = &sec.Collapsible
	}

	mode := layout.Mode
	if mode != ModeCollapsed {
		mode = ModeExpanded
	}
	p.collapseAll = &CollapseAllButton{mode: mode, text: layout.Text, armed: true}

	p.Filter = newTagFilter(p)
	p.Coordinator = &Coordinator{page: p}
	p.CollapseAll = &CollapseAll{page: p}
	return p
}

// Buttons returns the toggle buttons in tag order
func (p *Page) Buttons() []*ToggleButton {
	return p.buttons
}

// Button returns the toggle button of a tag marker, or nil
func (p *Page) Button(marker string) *ToggleButton {
	return p.buttonIndex[marker]
}

// Sections returns the sections in document order
func (p *Page) Sections() []*Section {
	return p.sections
}

// Section returns a section by id, or nil
func (p *Page) Section(id string) *Section {
	return p.sectionIndex[id]
}

// Blocks returns all blocks in document order
func (p *Page) Blocks() []*Block {
	return p.blocks
}

// Block returns a block by id, or nil
func (p *Page) Block(id string) *Block {
	return p.blockIndex[id]
}

// CollapseAllButton returns the global expand/collapse button
func (p *Page) CollapseAllButton() *CollapseAllButton {
	return p.collapseAll
}

// Toggle handles a click on the heading of the collapsible whose body has
// the given DOM id. A click on an element that is still animating is queued
// behind the running animation.
func (p *Page) Toggle(bodyID string) {
	c, ok := p.bodyIndex[bodyID]
	if !ok {
		logger.Debug("Toggle on unknown collapsible", zap.String("id", bodyID))
		return
	}
	p.toggle(c)
}

func (p *Page) toggle(c *Collapsible) {
	if c.InFlight() {
		c.Once(c.pendingEvent(), func() { p.toggle(c) })
		return
	}
	if c.IsShown() {
		p.animate(c, Collapse)
	} else {
		p.animate(c, Expand)
	}
}

// animate starts a transition. Listeners for its completion must already be
// registered; the animator may settle synchronously.
func (p *Page) animate(c *Collapsible, dir Direction) bool {
	if !c.begin(dir) {
		return false
	}
	p.animator.Animate(c, dir)
	return true
}

func (p *Page) setActive(b *ToggleButton, active bool) {
	if b.active == active {
		return
	}
	b.active = active
	p.observer.ButtonChanged(b)
}

func (p *Page) setHidden(b *Block, hidden bool) {
	if b.hidden == hidden {
		return
	}
	b.hidden = hidden
	p.observer.BlockVisibilityChanged(b)
}

func (p *Page) setMode(mode Mode) {
	p.collapseAll.mode = mode
	p.observer.CollapseAllChanged(p.collapseAll)
}

func (p *Page) collapsibleChanged(c *Collapsible) {
	p.observer.CollapsibleChanged(c)
}

// partition splits the buttons into active and inactive, in tag order
func (p *Page) partition() (active, inactive []*ToggleButton) {
	for _, b := range p.buttons {
		if b.active {
			active = append(active, b)
		} else {
			inactive = append(inactive, b)
		}
	}
	return active, inactive
}
