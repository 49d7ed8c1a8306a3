package viewer

// Snapshot is a serializable copy of the settled view state
type Snapshot struct {
	Buttons     []ButtonView    `json:"buttons"`
	Sections    []SectionView   `json:"sections"`
	Blocks      []BlockView     `json:"blocks"`
	CollapseAll CollapseAllView `json:"collapse_all"`
}

// ButtonView is the state of one toggle button
type ButtonView struct {
	Tag
	Active bool `json:"active"`
}

// SectionView is the state of one section
type SectionView struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

// BlockView is the state of one block
type BlockView struct {
	ID        string   `json:"id"`
	SectionID string   `json:"section_id"`
	Markers   []string `json:"markers"`
	State     string   `json:"state"`
	Visible   bool     `json:"visible"`
}

// CollapseAllView is the state of the collapse-all button
type CollapseAllView struct {
	Mode  Mode   `json:"mode"`
	Label string `json:"label"`
	Armed bool   `json:"armed"`
}

// Snapshot copies the current state
func (p *Page) Snapshot() Snapshot {
	s := Snapshot{
		CollapseAll: CollapseAllView{
			Mode:  p.collapseAll.mode,
			Label: p.collapseAll.Label(),
			Armed: p.collapseAll.armed,
		},
	}
	for _, b := range p.buttons {
		s.Buttons = append(s.Buttons, ButtonView{Tag: b.Tag, Active: b.active})
	}
	for _, sec := range p.sections {
		s.Sections = append(s.Sections, SectionView{ID: sec.ID, State: sec.state.String()})
	}
	for _, blk := range p.blocks {
		s.Blocks = append(s.Blocks, BlockView{
			ID:        blk.ID,
			SectionID: blk.SectionID,
			Markers:   blk.Markers,
			State:     blk.state.String(),
			Visible:   !blk.hidden,
		})
	}
	return s
}
