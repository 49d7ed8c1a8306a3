//go:build js && wasm

// Package dom binds a viewer.Page to the live browser document. It reads the
// initial state from the server-rendered markup, forwards DOM events to the
// viewer controllers and mirrors every state change back into the DOM.
package dom

import (
	"fmt"
	"strconv"
	"syscall/js"
	"time"

	"go.uber.org/zap"

	"github.com/verustcode/glance/internal/viewer"
	"github.com/verustcode/glance/pkg/errors"
	"github.com/verustcode/glance/pkg/logger"
)

// Binding keeps the bound page and the registered JS callbacks alive
type Binding struct {
	Page *viewer.Page

	doc   js.Value
	funcs []js.Func
}

// Bind reads the page state from doc and wires all event handlers
func Bind(doc js.Value) (*Binding, error) {
	if doc.IsUndefined() || doc.IsNull() {
		return nil, errors.New(errors.ErrCodeInternal, "document is not available")
	}

	b := &Binding{doc: doc}
	layout := b.readLayout()
	if len(layout.Tags) == 0 && len(layout.Sections) == 0 {
		return nil, errors.New(errors.ErrCodeElementNotFound, "no report markup found")
	}

	b.Page = viewer.NewPage(layout, viewer.Options{
		Animator: &animator{doc: doc},
		Scroller: &scroller{doc: doc},
		Observer: &observer{doc: doc},
	})
	b.bindEvents()

	logger.Debug("Viewer bound",
		zap.Int("tags", len(layout.Tags)),
		zap.Int("sections", len(layout.Sections)),
		zap.Int("blocks", len(b.Page.Blocks())))
	return b, nil
}

func (b *Binding) readLayout() viewer.Layout {
	var buttons []buttonAttrs
	forEach(b.doc.Call("querySelectorAll", SelectorTagButton), func(el js.Value) {
		buttons = append(buttons, buttonAttrs{
			Marker: el.Get("dataset").Get("type").String(),
			Text:   el.Get("textContent").String(),
			Active: hasClass(el, ClassActive),
		})
	})

	var sections []sectionAttrs
	forEach(b.doc.Call("querySelectorAll", SelectorSection), func(secEl js.Value) {
		id := secEl.Get("dataset").Get("sectionId").String()
		sec := sectionAttrs{ID: id, Shown: b.isShown("section-" + id)}
		forEach(secEl.Call("querySelectorAll", SelectorBlock), func(blkEl js.Value) {
			blkID := blkEl.Get("dataset").Get("blockId").String()
			var classes []string
			forEach(blkEl.Get("classList"), func(cls js.Value) {
				classes = append(classes, cls.String())
			})
			sec.Blocks = append(sec.Blocks, blockAttrs{
				ID:          blkID,
				Classes:     classes,
				Shown:       b.isShown("block-" + blkID),
				DisplayNone: blkEl.Get("style").Get("display").String() == "none",
			})
		})
		sections = append(sections, sec)
	})

	var ca collapseAllAttrs
	if btn := b.doc.Call("getElementById", IDCollapseAll); !btn.IsNull() {
		ds := btn.Get("dataset")
		ca = collapseAllAttrs{
			Present:       true,
			Mode:          ds.Get("mode").String(),
			TextExpanded:  ds.Get("textExpanded").String(),
			TextCollapsed: ds.Get("textCollapsed").String(),
		}
	}
	return buildLayout(buttons, sections, ca)
}

func (b *Binding) isShown(bodyID string) bool {
	el := b.doc.Call("getElementById", bodyID)
	return !el.IsNull() && hasClass(el, ClassShow)
}

func (b *Binding) bindEvents() {
	p := b.Page

	forEach(b.doc.Call("querySelectorAll", SelectorTagButton), func(el js.Value) {
		marker := el.Get("dataset").Get("type").String()
		b.on(el, "click", func() { p.Filter.OnToggleButtonClick(marker) })
	})
	if el := b.doc.Call("getElementById", IDEnableAll); !el.IsNull() {
		b.on(el, "click", p.Filter.OnEnableAllClick)
	}
	if el := b.doc.Call("getElementById", IDCollapseAll); !el.IsNull() {
		b.on(el, "click", func() { p.CollapseAll.OnClick() })
	}

	forEach(b.doc.Call("querySelectorAll", SelectorSidebarLink), func(el js.Value) {
		ds := el.Get("dataset")
		sectionID, blockID := ds.Get("sectionId").String(), ds.Get("blockId").String()
		b.on(el, "click", func() { p.Coordinator.Open(sectionID, blockID) })
	})

	for _, sec := range p.Sections() {
		b.bindHeading(&sec.Collapsible)
		for _, blk := range sec.Blocks {
			b.bindHeading(&blk.Collapsible)
		}
	}
}

func (b *Binding) bindHeading(c *viewer.Collapsible) {
	el := b.doc.Call("getElementById", c.HeadingID())
	if el.IsNull() {
		return
	}
	bodyID := c.BodyID()
	b.on(el, "click", func() { b.Page.Toggle(bodyID) })
}

func (b *Binding) on(el js.Value, event string, fn func()) {
	f := js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) > 0 {
			args[0].Call("preventDefault")
		}
		fn()
		return nil
	})
	b.funcs = append(b.funcs, f)
	el.Call("addEventListener", event, f)
}

// Release removes nothing from the DOM but frees the Go callbacks
func (b *Binding) Release() {
	for _, f := range b.funcs {
		f.Release()
	}
	b.funcs = nil
}

// animator drives CSS height transitions in the style of bootstrap's
// collapse plugin. A transition settles on transitionend or its fallback
// timer. Elements that are not rendered never run one and settle at once.
type animator struct {
	doc js.Value
}

func (a *animator) Animate(c *viewer.Collapsible, dir viewer.Direction) {
	el := a.doc.Call("getElementById", c.BodyID())
	if el.IsNull() {
		logger.Debug("Animate on missing element", zap.String("id", c.BodyID()))
		c.Settle()
		return
	}
	cl := el.Get("classList")
	style := el.Get("style")

	if dir == viewer.Expand {
		cl.Call("remove", ClassCollapse)
		cl.Call("add", ClassCollapsing)
		style.Set("height", "0px")
		style.Set("height", fmt.Sprintf("%dpx", el.Get("scrollHeight").Int()))
	} else {
		height := el.Call("getBoundingClientRect").Get("height").Float()
		style.Set("height", fmt.Sprintf("%.0fpx", height))
		_ = el.Get("offsetHeight") // force reflow
		cl.Call("add", ClassCollapsing)
		cl.Call("remove", ClassCollapse, ClassShow)
		style.Set("height", "")
	}

	end := newCompletion(func() {
		cl.Call("remove", ClassCollapsing)
		cl.Call("add", ClassCollapse)
		if dir == viewer.Expand {
			cl.Call("add", ClassShow)
		}
		style.Set("height", "")
		c.Settle()
	})

	duration := a.duration(el)
	if duration == 0 || !rendered(el) {
		end.fire()
		return
	}

	var (
		onEnd, onTimeout js.Func
		timer            js.Value
	)
	release := func() {
		el.Call("removeEventListener", "transitionend", onEnd)
		onEnd.Release()
		onTimeout.Release()
	}
	onEnd = js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) > 0 && !args[0].Get("target").Equal(el) {
			return nil
		}
		if end.fire() {
			js.Global().Call("clearTimeout", timer)
			release()
		}
		return nil
	})
	onTimeout = js.FuncOf(func(this js.Value, args []js.Value) any {
		if end.fire() {
			logger.Debug("Transition settled by timer", zap.String("id", c.BodyID()))
			release()
		}
		return nil
	})
	el.Call("addEventListener", "transitionend", onEnd)
	timer = js.Global().Call("setTimeout", onTimeout, fallbackDelay(duration).Milliseconds())
}

// duration reads the computed transition time of el
func (a *animator) duration(el js.Value) time.Duration {
	win := a.doc.Get("defaultView")
	if win.IsNull() || win.IsUndefined() {
		return 0
	}
	cs := win.Call("getComputedStyle", el)
	return transitionTime(cs.Get("transitionDuration").String(), cs.Get("transitionDelay").String())
}

// rendered is false for elements under display:none, which never run
// transitions
func rendered(el js.Value) bool {
	return el.Call("getClientRects").Get("length").Int() > 0
}

type scroller struct {
	doc js.Value
}

func (s *scroller) ScrollIntoView(anchorID string) {
	el := s.doc.Call("getElementById", anchorID)
	if el.IsNull() {
		logger.Debug("Scroll to missing anchor", zap.String("id", anchorID))
		return
	}
	el.Call("scrollIntoView", map[string]any{"behavior": "smooth", "block": "start"})
}

type observer struct {
	doc js.Value
}

func (o *observer) ButtonChanged(btn *viewer.ToggleButton) {
	sel := fmt.Sprintf(`[data-type=%q]`, btn.Tag.Marker)
	forEach(o.doc.Call("querySelectorAll", sel), func(el js.Value) {
		el.Get("classList").Call("toggle", ClassActive, btn.Active())
		el.Call("setAttribute", "aria-pressed", strconv.FormatBool(btn.Active()))
	})
}

func (o *observer) BlockVisibilityChanged(blk *viewer.Block) {
	sel := fmt.Sprintf(`%s[data-block-id=%q]`, SelectorBlock, blk.ID)
	el := o.doc.Call("querySelector", sel)
	if el.IsNull() {
		return
	}
	if display := blockDisplay(blk.Visible()); display == "" {
		el.Get("style").Call("removeProperty", "display")
	} else {
		el.Get("style").Set("display", display)
	}
}

func (o *observer) CollapsibleChanged(c *viewer.Collapsible) {
	el := o.doc.Call("getElementById", c.HeadingID())
	if el.IsNull() {
		return
	}
	expanded := c.Target() == viewer.Shown
	el.Call("setAttribute", "aria-expanded", strconv.FormatBool(expanded))
	el.Get("classList").Call("toggle", ClassCollapsed, !expanded)
}

func (o *observer) CollapseAllChanged(btn *viewer.CollapseAllButton) {
	el := o.doc.Call("getElementById", IDCollapseAll)
	if el.IsNull() {
		return
	}
	el.Get("dataset").Set("mode", string(btn.Mode()))
	el.Set("textContent", btn.Label())
}

func forEach(list js.Value, fn func(js.Value)) {
	if list.IsNull() || list.IsUndefined() {
		return
	}
	n := list.Get("length").Int()
	for i := 0; i < n; i++ {
		fn(list.Call("item", i))
	}
}

func hasClass(el js.Value, cls string) bool {
	return el.Get("classList").Call("contains", cls).Bool()
}
