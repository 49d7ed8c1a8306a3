package viewer

// Animator runs collapse/expand transitions. When Animate is called the
// element is already in its in-flight state; the animator must call
// c.Settle exactly once when the transition has visibly finished.
type Animator interface {
	Animate(c *Collapsible, dir Direction)
}

// Scroller brings an anchor element into the viewport
type Scroller interface {
	ScrollIntoView(anchorID string)
}

// LoopAnimator completes every animation on the next turn of a Loop
type LoopAnimator struct {
	Loop *Loop
}

// Animate posts the completion to the loop
func (a LoopAnimator) Animate(c *Collapsible, dir Direction) {
	a.Loop.Post(c.Settle)
}

// InstantAnimator completes every animation synchronously. Used when the
// page is rendered server-side, where there is nothing to animate.
type InstantAnimator struct{}

// Animate settles the element immediately
func (InstantAnimator) Animate(c *Collapsible, dir Direction) {
	c.Settle()
}

// AnchorRecorder is a Scroller that remembers the scrolled anchors.
// The server-side renderer uses the last one as the page fragment.
type AnchorRecorder struct {
	anchors []string
}

// ScrollIntoView records the anchor
func (r *AnchorRecorder) ScrollIntoView(anchorID string) {
	r.anchors = append(r.anchors, anchorID)
}

// Last returns the most recently scrolled anchor, or "" if none
func (r *AnchorRecorder) Last() string {
	if len(r.anchors) == 0 {
		return ""
	}
	return r.anchors[len(r.anchors)-1]
}

// All returns every recorded anchor in order
func (r *AnchorRecorder) All() []string {
	return append([]string(nil), r.anchors...)
}
