// Package report defines the report document model: runs made of sections,
// blocks and results, their statuses and tags, and the report file format.
package report

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/verustcode/glance/consts"
)

// Link points a block at an external page. Endpoint names a base URL
// configured in viewer.link_endpoints.
type Link struct {
	Endpoint string `json:"endpoint_id" yaml:"endpoint_id"`
	Path     string `json:"path" yaml:"path"`
	Text     string `json:"text" yaml:"text"`
}

// Block is a collapsible group of results
type Block struct {
	ID string `json:"-" yaml:"-"`
	// Index is the position of the block in the whole document
	Index int `json:"-" yaml:"-"`

	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Results     []*Result `json:"results" yaml:"results"`
	Status      *Status   `json:"status,omitempty" yaml:"status,omitempty"`
	Tags        []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	Emphasize   bool      `json:"emphasize,omitempty" yaml:"emphasize,omitempty"`
	Link        *Link     `json:"link,omitempty" yaml:"link,omitempty"`
}

// Section is a titled list of blocks
type Section struct {
	ID string `json:"-" yaml:"-"`

	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Blocks      []*Block `json:"blocks" yaml:"blocks"`
}

// Document is one run of a report
type Document struct {
	// ID is the report id, the slug of Title unless set by storage
	ID string `json:"-" yaml:"-"`

	Title     string     `json:"title" yaml:"title"`
	RunID     string     `json:"runid,omitempty" yaml:"runid,omitempty"`
	RunTitle  string     `json:"runtitle,omitempty" yaml:"runtitle,omitempty"`
	Timestamp Timestamp  `json:"timestamp" yaml:"timestamp"`
	Sections  []*Section `json:"sections" yaml:"sections"`
}

// BlockStatus returns the explicit status or the worst result status
func (b *Block) BlockStatus() Status {
	if b.Status != nil {
		return *b.Status
	}
	worst := StatusNeutral
	for _, r := range b.Results {
		worst = MaxStatus(worst, r.Status)
	}
	return worst
}

// HasTag reports whether the block carries the tag
func (b *Block) HasTag(tag string) bool {
	for _, t := range b.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag adds a tag unless present
func (b *Block) AddTag(tag string) {
	if !b.HasTag(tag) {
		b.Tags = append(b.Tags, tag)
	}
}

// Normalize fills the derived identity fields and cleans up blocks.
// now is used when the document carries no timestamp.
func (d *Document) Normalize(now time.Time) {
	if d.Timestamp.IsZero() {
		d.Timestamp = Timestamp{now}
	}
	d.ID = Slugify(d.Title)

	givenRunID := d.RunID
	if givenRunID != "" {
		d.RunID = Slugify(givenRunID)
	} else {
		d.RunID = d.Timestamp.Format(consts.RunIDLayout)
	}
	if d.RunTitle == "" {
		if givenRunID != "" {
			d.RunTitle = givenRunID
		} else {
			d.RunTitle = d.Timestamp.Format(RunTitleLayout)
		}
	}

	for _, sec := range d.Sections {
		for _, blk := range sec.Blocks {
			blk.Tags = dedupe(blk.Tags)
			results := blk.Results[:0]
			for _, r := range blk.Results {
				if r != nil {
					r.normalize()
					results = append(results, r)
				}
			}
			blk.Results = results
		}
	}
	d.AssignIDs()
}

func dedupe(tags []string) []string {
	if len(tags) == 0 {
		return tags
	}
	seen := make(map[string]bool, len(tags))
	out := tags[:0]
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// AssignIDs numbers the elements: sections "s", blocks "s-b", results
// "s-b-r", and blocks get their document-wide index
func (d *Document) AssignIDs() {
	index := 0
	for s, sec := range d.Sections {
		sec.ID = strconv.Itoa(s)
		for b, blk := range sec.Blocks {
			blk.ID = sec.ID + "-" + strconv.Itoa(b)
			blk.Index = index
			index++
			for r, res := range blk.Results {
				res.ID = blk.ID + "-" + strconv.Itoa(r)
			}
		}
	}
}

// IterBlocks returns the blocks whose status is at least min, in document order
func (d *Document) IterBlocks(min Status) []*Block {
	var blocks []*Block
	for _, sec := range d.Sections {
		for _, blk := range sec.Blocks {
			if blk.BlockStatus() >= min {
				blocks = append(blocks, blk)
			}
		}
	}
	return blocks
}

// BlockCount returns the number of blocks in all sections
func (d *Document) BlockCount() int {
	n := 0
	for _, sec := range d.Sections {
		n += len(sec.Blocks)
	}
	return n
}

// BlockAt returns the block with the given document-wide index
func (d *Document) BlockAt(index int) (*Section, *Block, bool) {
	if index < 0 {
		return nil, nil, false
	}
	for _, sec := range d.Sections {
		if index < len(sec.Blocks) {
			return sec, sec.Blocks[index], true
		}
		index -= len(sec.Blocks)
	}
	return nil, nil, false
}

// WorstStatus returns the worst block status, neutral for an empty document
func (d *Document) WorstStatus() Status {
	worst := StatusNeutral
	for _, blk := range d.IterBlocks(StatusNeutral) {
		worst = MaxStatus(worst, blk.BlockStatus())
	}
	return worst
}

// StatusStats counts the blocks per status. Every status has an entry.
func (d *Document) StatusStats() map[Status]int {
	stats := make(map[Status]int, len(statusNames))
	for _, s := range AllStatuses() {
		stats[s] = 0
	}
	for _, blk := range d.IterBlocks(StatusNeutral) {
		stats[blk.BlockStatus()]++
	}
	return stats
}

// Element returns a section, block or result by position. Negative block or
// result positions select the enclosing element.
func (d *Document) Element(section, block, result int) (any, error) {
	if section < 0 || section >= len(d.Sections) {
		return nil, fmt.Errorf("section %d out of range", section)
	}
	sec := d.Sections[section]
	if block < 0 {
		return sec, nil
	}
	if block >= len(sec.Blocks) {
		return nil, fmt.Errorf("block %d-%d out of range", section, block)
	}
	blk := sec.Blocks[block]
	if result < 0 {
		return blk, nil
	}
	if result >= len(blk.Results) {
		return nil, fmt.Errorf("result %d-%d-%d out of range", section, block, result)
	}
	return blk.Results[result], nil
}

// ElementByID resolves an element id as assigned by AssignIDs
func (d *Document) ElementByID(id string) (any, error) {
	parts := strings.Split(id, "-")
	if len(parts) > 3 {
		return nil, fmt.Errorf("invalid element id %q", id)
	}
	pos := []int{-1, -1, -1}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid element id %q", id)
		}
		pos[i] = n
	}
	return d.Element(pos[0], pos[1], pos[2])
}

// Match returns the results whose "section/block/result" titles match a
// case-insensitive glob pattern. Missing pattern parts match everything.
func (d *Document) Match(pattern string) ([]*Result, error) {
	parts := splitPattern(pattern, "*")
	for i := range parts {
		parts[i] = strings.ToLower(parts[i])
		if _, err := path.Match(parts[i], ""); err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
	}
	return d.find(parts, func(title, pat string) bool {
		ok, _ := path.Match(pat, strings.ToLower(title))
		return ok
	}), nil
}

// MatchRegexp is like Match but every pattern part is a regular expression
// searched for anywhere in the title
func (d *Document) MatchRegexp(pattern string) ([]*Result, error) {
	parts := splitPattern(pattern, "")
	res := make(map[string]*regexp.Regexp, len(parts))
	for _, p := range parts {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		res[p] = re
	}
	return d.find(parts, func(title, pat string) bool {
		return res[pat].MatchString(title)
	}), nil
}

func splitPattern(pattern, def string) []string {
	parts := strings.SplitN(pattern, "/", 3)
	for len(parts) < 3 {
		parts = append(parts, def)
	}
	return parts
}

func (d *Document) find(parts []string, match func(title, pat string) bool) []*Result {
	var found []*Result
	for _, sec := range d.Sections {
		if !match(sec.Title, parts[0]) {
			continue
		}
		for _, blk := range sec.Blocks {
			if !match(blk.Title, parts[1]) {
				continue
			}
			for _, res := range blk.Results {
				if match(res.Title, parts[2]) {
					found = append(found, res)
				}
			}
		}
	}
	return found
}

// Images returns the image results that reference a resource
func (d *Document) Images() []*Result {
	var images []*Result
	for _, sec := range d.Sections {
		for _, blk := range sec.Blocks {
			for _, res := range blk.Results {
				if res.Kind == KindImage && res.Key != "" {
					images = append(images, res)
				}
			}
		}
	}
	return images
}

// ImageKeys returns the resource keys referenced by image results
func (d *Document) ImageKeys() []string {
	var keys []string
	for _, res := range d.Images() {
		keys = append(keys, res.Key)
	}
	return keys
}
