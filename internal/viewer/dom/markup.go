package dom

// Markup hooks shared with the server-side templates
const (
	SelectorTagButton   = "[data-type].tag-toggle"
	SelectorSection     = ".report-section[data-section-id]"
	SelectorBlock       = ".report-block[data-block-id]"
	SelectorSidebarLink = ".sidebar-link[data-section-id][data-block-id]"

	IDEnableAll   = "tag-enable-all"
	IDCollapseAll = "collapse-all"

	ClassActive     = "active"
	ClassCollapse   = "collapse"
	ClassShow       = "show"
	ClassCollapsing = "collapsing"
	ClassCollapsed  = "collapsed"
)
