package web

import (
	"html/template"

	"github.com/verustcode/glance/consts"
	"github.com/verustcode/glance/internal/catalog"
	"github.com/verustcode/glance/internal/report"
	"github.com/verustcode/glance/internal/viewer"
)

// ReportData is the input of a report page
type ReportData struct {
	Doc *report.Document
	// Info provides the run navigation; nil hides it
	Info *catalog.ReportInfo
	// Reports provides the report navigation; nil hides it
	Reports []*catalog.ReportInfo
	Options ViewOptions
	// Static renders a self-contained page for exports
	Static bool
	// ResourceURLs replaces resource URLs by key, e.g. with data URIs
	ResourceURLs map[string]string
}

type reportView struct {
	Site     site
	Doc      *report.Document
	ReportID string
	RunID    string
	Status   report.Status
	Query    string

	Tags      []tagView
	AllCount  int
	AllActive bool

	Sections    []*sectionView
	CollapseAll viewer.CollapseAllView
	ButtonText  viewer.ButtonText
	Current     *blockView

	Reports []navItem
	Runs    []navItem
}

type tagView struct {
	Name   string
	Marker string
	Count  int
	Active bool
}

type sectionView struct {
	*report.Section
	Shown  bool
	Tags   []string
	Blocks []*blockView
}

type blockView struct {
	*report.Block
	SectionID string
	Markers   []string
	Status    report.Status
	Shown     bool
	Visible   bool
	Current   bool
	URL       string
	LinkURL   string
	Results   []resultView
}

type resultView struct {
	*report.Result
	CSVURL      string
	JSONURL     string
	// ResourceURL may be a data URI in static pages
	ResourceURL template.URL
}

type navItem struct {
	Label   string
	URL     string
	Current bool
	Status  report.Status
}

func (r *Renderer) buildReportView(data ReportData) *reportView {
	doc := data.Doc
	tags := report.CollectTags(doc)
	page := NewPageState(doc, tags, data.Options)

	v := &reportView{
		Site:        r.site(data.Static),
		Doc:         doc,
		ReportID:    doc.ID,
		RunID:       doc.RunID,
		Status:      doc.WorstStatus(),
		Query:       data.Options.Query(),
		AllCount:    tags.Counter[consts.AllTag],
		AllActive:   page.Filter.AllActive(),
		CollapseAll: page.Snapshot().CollapseAll,
		ButtonText:  page.CollapseAllButton().Text(),
	}

	for _, btn := range page.Buttons() {
		v.Tags = append(v.Tags, tagView{
			Name:   btn.Tag.Name,
			Marker: btn.Tag.Marker,
			Count:  tags.Counter[btn.Tag.Name],
			Active: btn.Active(),
		})
	}

	for _, sec := range doc.Sections {
		sv := &sectionView{
			Section: sec,
			Shown:   page.Section(sec.ID).IsShown(),
			Tags:    tags.Sections[sec.ID],
		}
		for _, blk := range sec.Blocks {
			state := page.Block(blk.ID)
			bv := &blockView{
				Block:     blk,
				SectionID: sec.ID,
				Markers:   state.Markers,
				Status:    blk.BlockStatus(),
				Shown:     state.IsShown(),
				Visible:   state.Visible(),
				Current:   blk.Index == data.Options.Block,
				URL:       r.BlockURL(doc.ID, doc.RunID, blk.Index) + v.Query,
			}
			if link, ok := r.LinkURL(blk.Link); ok {
				bv.LinkURL = link
			}
			for _, res := range blk.Results {
				bv.Results = append(bv.Results, r.resultView(doc, res, data))
			}
			if bv.Current {
				v.Current = bv
			}
			sv.Blocks = append(sv.Blocks, bv)
		}
		v.Sections = append(v.Sections, sv)
	}

	for _, info := range data.Reports {
		v.Reports = append(v.Reports, navItem{
			Label:   info.Title,
			URL:     r.ReportURL(info.ID, doc.RunID) + v.Query,
			Current: info.ID == doc.ID,
			Status:  info.LatestRun().Status,
		})
	}
	if data.Info != nil {
		for _, run := range data.Info.Runs {
			u := r.ReportURL(doc.ID, run.RunID)
			if v.Current != nil {
				u = r.BlockURL(doc.ID, run.RunID, v.Current.Index)
			}
			v.Runs = append(v.Runs, navItem{
				Label:   run.RunTitle,
				URL:     u + v.Query,
				Current: run.RunID == doc.RunID,
				Status:  run.Status,
			})
		}
	}
	return v
}

func (r *Renderer) resultView(doc *report.Document, res *report.Result, data ReportData) resultView {
	rv := resultView{Result: res}
	switch res.Kind {
	case report.KindTable:
		if res.Exportable() && !data.Static {
			rv.CSVURL = r.CSVURL(doc.ID, doc.RunID, res.ID)
			rv.JSONURL = r.JSONURL(doc.ID, doc.RunID, res.ID)
		}
	case report.KindImage:
		if u, ok := data.ResourceURLs[res.Key]; ok {
			rv.ResourceURL = template.URL(u)
		} else {
			rv.ResourceURL = template.URL(r.ResourceURL(doc.ID, doc.RunID, res.Key, res.Filename))
		}
	}
	return rv
}
