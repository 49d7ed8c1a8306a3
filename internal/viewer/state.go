// Package viewer holds the typed view state of a single report page and the
// controllers that keep tag filters, block visibility and collapse animations
// consistent with each other.
//
// The rendered document (server-side HTML or the live DOM in the browser) is a
// projection of a Page. Nothing in this package touches a rendering
// environment: animations, scrolling and DOM updates are delegated to the
// Animator, Scroller and Observer collaborators.
package viewer

// Direction is the direction of a collapse transition
type Direction int

const (
	// Expand moves a collapsible toward the shown state
	Expand Direction = iota
	// Collapse moves a collapsible toward the hidden state
	Collapse
)

// String returns the direction name used by the DOM adapter
func (d Direction) String() string {
	if d == Expand {
		return "show"
	}
	return "hide"
}

// CollapseState is the shown/hidden state of a collapsible, including the
// two in-flight states of a running animation
type CollapseState int

const (
	// Hidden is collapsed with no animation running
	Hidden CollapseState = iota
	// Showing is expanding; Settle moves it to Shown
	Showing
	// Shown is expanded with no animation running
	Shown
	// Hiding is collapsing; Settle moves it to Hidden
	Hiding
)

// String returns a readable state name
func (s CollapseState) String() string {
	switch s {
	case Showing:
		return "showing"
	case Shown:
		return "shown"
	case Hiding:
		return "hiding"
	default:
		return "hidden"
	}
}

// Event is a one-shot completion event of a collapse animation
type Event string

const (
	// EventShown fires once an expand animation has completed
	EventShown Event = "shown"
	// EventHidden fires once a collapse animation has completed
	EventHidden Event = "hidden"
)

// Kind distinguishes sections from blocks
type Kind string

const (
	// KindSection prefixes the DOM ids of a section
	KindSection Kind = "section"
	// KindBlock prefixes the DOM ids of a block
	KindBlock Kind = "block"
)

// Tag is a filter category. Marker is the CSS marker class carried by blocks
// and the data-type value of the tag's toggle button.
type Tag struct {
	Name   string `json:"name"`
	Marker string `json:"marker"`
}

// ToggleButton is the filter button of one tag
type ToggleButton struct {
	Tag    Tag
	active bool
}

// Active reports whether the button is in the active state
func (b *ToggleButton) Active() bool {
	return b.active
}

// Collapsible is a section or block container with a shown/hidden state.
// Listeners registered with Once fire exactly once, on the next completion
// of the matching transition.
type Collapsible struct {
	// ID is the element identifier from the markup (e.g. "2" or "2-5")
	ID   string
	Kind Kind

	state  CollapseState
	once   map[Event][]func()
	notify func(*Collapsible)
}

func newCollapsible(kind Kind, id string, shown bool) Collapsible {
	state := Hidden
	if shown {
		state = Shown
	}
	return Collapsible{ID: id, Kind: kind, state: state}
}

// BodyID is the DOM id of the collapsing body element
func (c *Collapsible) BodyID() string {
	return string(c.Kind) + "-" + c.ID
}

// HeadingID is the DOM id of the clickable heading element
func (c *Collapsible) HeadingID() string {
	return string(c.Kind) + "-heading-" + c.ID
}

// AnchorID is the DOM id of the element a scroll targets
func (c *Collapsible) AnchorID() string {
	return string(c.Kind) + "-anchor-" + c.ID
}

// State returns the current collapse state
func (c *Collapsible) State() CollapseState {
	return c.state
}

// IsShown reports whether the element is fully expanded
func (c *Collapsible) IsShown() bool {
	return c.state == Shown
}

// IsHidden reports whether the element is fully collapsed
func (c *Collapsible) IsHidden() bool {
	return c.state == Hidden
}

// InFlight reports whether an animation is running on the element
func (c *Collapsible) InFlight() bool {
	return c.state == Showing || c.state == Hiding
}

// Target returns the state the element is at or moving toward
func (c *Collapsible) Target() CollapseState {
	switch c.state {
	case Showing:
		return Shown
	case Hiding:
		return Hidden
	default:
		return c.state
	}
}

// pendingEvent returns the event the running animation will fire
func (c *Collapsible) pendingEvent() Event {
	if c.state == Showing {
		return EventShown
	}
	return EventHidden
}

// Once registers fn to run on the next occurrence of ev
func (c *Collapsible) Once(ev Event, fn func()) {
	if c.once == nil {
		c.once = make(map[Event][]func())
	}
	c.once[ev] = append(c.once[ev], fn)
}

// begin moves the element into the in-flight state for dir.
// It returns false if the element is already in flight or already there.
func (c *Collapsible) begin(dir Direction) bool {
	if c.InFlight() {
		return false
	}
	switch {
	case dir == Expand && c.state == Hidden:
		c.state = Showing
	case dir == Collapse && c.state == Shown:
		c.state = Hiding
	default:
		return false
	}
	c.changed()
	return true
}

// Settle completes the running animation and fires its one-shot listeners.
// Animators call it exactly once per started animation. Calling it on an
// element that is not in flight does nothing.
func (c *Collapsible) Settle() {
	var ev Event
	switch c.state {
	case Showing:
		c.state = Shown
		ev = EventShown
	case Hiding:
		c.state = Hidden
		ev = EventHidden
	default:
		return
	}
	c.changed()

	listeners := c.once[ev]
	delete(c.once, ev)
	for _, fn := range listeners {
		fn()
	}
}

func (c *Collapsible) changed() {
	if c.notify != nil {
		c.notify(c)
	}
}

// Section is a collapsible group of blocks
type Section struct {
	Collapsible
	Blocks []*Block
}

// Block is a collapsible result panel carrying one or more tag markers
type Block struct {
	Collapsible
	SectionID string
	Markers   []string

	hidden bool
}

// Visible reports whether the tag filter currently displays the block
func (b *Block) Visible() bool {
	return !b.hidden
}

// HasMarker reports whether the block carries the given tag marker
func (b *Block) HasMarker(marker string) bool {
	for _, m := range b.Markers {
		if m == marker {
			return true
		}
	}
	return false
}

// Mode is the stored mode of the collapse-all button
type Mode string

const (
	ModeExpanded  Mode = "expanded"
	ModeCollapsed Mode = "collapsed"
)

// ButtonText holds the collapse-all label shown in each mode
type ButtonText struct {
	Expanded  string `json:"expanded"`
	Collapsed string `json:"collapsed"`
}

// CollapseAllButton is the global expand/collapse button
type CollapseAllButton struct {
	mode  Mode
	text  ButtonText
	armed bool
}

// Mode returns the stored mode
func (b *CollapseAllButton) Mode() Mode {
	return b.mode
}

// Text returns the labels for both modes
func (b *CollapseAllButton) Text() ButtonText {
	return b.text
}

// Label returns the text displayed for the current mode
func (b *CollapseAllButton) Label() string {
	if b.mode == ModeExpanded {
		return b.text.Expanded
	}
	return b.text.Collapsed
}

// Armed reports whether a click would currently be handled
func (b *CollapseAllButton) Armed() bool {
	return b.armed
}
