package report

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"

	"github.com/gosimple/slug"

	"github.com/verustcode/glance/consts"
)

// MarkerPrefix starts every tag marker class, keeping markers apart from
// the page's layout classes
const MarkerPrefix = "tag-"

// layout classes inside the marker namespace
var reservedMarkers = map[string]bool{
	"tag-panel":  true,
	"tag-toggle": true,
}

// TagSet describes the filter tags of a document
type TagSet struct {
	// Names holds every tag except "All", sorted
	Names []string
	// Markers maps a tag name to its CSS marker class. Markers are unique
	// within the set.
	Markers map[string]string
	// Counter counts the blocks per tag; "All" counts every block and the
	// status tags are always present
	Counter map[string]int
	// Sections lists the tags used in each section, sorted, keyed by section id
	Sections map[string][]string
}

// Slugify turns a title into an ASCII id
func Slugify(s string) string {
	return slug.Make(s)
}

// ApplyStatusTags adds the status name of every block to its tags
func ApplyStatusTags(d *Document) {
	for _, sec := range d.Sections {
		for _, blk := range sec.Blocks {
			blk.AddTag(blk.BlockStatus().String())
		}
	}
}

// CollectTags applies the status tags and gathers the tag set
func CollectTags(d *Document) TagSet {
	ApplyStatusTags(d)

	ts := TagSet{
		Markers:  make(map[string]string),
		Counter:  map[string]int{consts.AllTag: 0},
		Sections: make(map[string][]string),
	}
	for _, s := range AllStatuses() {
		ts.Counter[s.String()] = 0
	}

	for _, sec := range d.Sections {
		used := make(map[string]bool)
		for _, blk := range sec.Blocks {
			for _, tag := range blk.Tags {
				ts.Counter[tag]++
				used[tag] = true
			}
			ts.Counter[consts.AllTag]++
		}
		names := make([]string, 0, len(used))
		for tag := range used {
			names = append(names, tag)
		}
		sort.Strings(names)
		ts.Sections[sec.ID] = names
	}

	for tag := range ts.Counter {
		if tag == consts.AllTag {
			continue
		}
		ts.Names = append(ts.Names, tag)
	}
	sort.Strings(ts.Names)

	// sorted order keeps the suffixes of colliding slugs stable
	taken := make(map[string]bool, len(ts.Names))
	for _, name := range ts.Names {
		m := uniqueMarker(markerBase(name), taken)
		taken[m] = true
		ts.Markers[name] = m
	}
	return ts
}

// markerBase is the slug of a tag, or a hash of it for tags without any
// ASCII letters or digits
func markerBase(tag string) string {
	if s := Slugify(tag); s != "" {
		return s
	}
	h := fnv.New32a()
	h.Write([]byte(tag))
	return fmt.Sprintf("%08x", h.Sum32())
}

// uniqueMarker numbers base until it is neither taken nor a layout class
func uniqueMarker(base string, taken map[string]bool) string {
	m := MarkerPrefix + base
	for n := 2; taken[m] || reservedMarkers[m]; n++ {
		m = MarkerPrefix + base + "-" + strconv.Itoa(n)
	}
	return m
}

// BlockMarkers returns the marker classes of a block's tags
func (ts TagSet) BlockMarkers(b *Block) []string {
	markers := make([]string, 0, len(b.Tags))
	for _, tag := range b.Tags {
		if m, ok := ts.Markers[tag]; ok {
			markers = append(markers, m)
		} else {
			markers = append(markers, MarkerPrefix+markerBase(tag))
		}
	}
	return markers
}

// Marker resolves a tag name or marker to the marker of the set. Names
// match exactly first, then ignoring case, then by slug.
func (ts TagSet) Marker(value string) (string, bool) {
	if m, ok := ts.Markers[value]; ok {
		return m, true
	}
	for _, m := range ts.Markers {
		if m == value {
			return m, true
		}
	}
	for _, name := range ts.Names {
		if strings.EqualFold(name, value) {
			return ts.Markers[name], true
		}
	}
	if s := Slugify(value); s != "" {
		for _, name := range ts.Names {
			if Slugify(name) == s {
				return ts.Markers[name], true
			}
		}
	}
	return "", false
}

// SplitGroup splits "group | title" into its parts. Titles without a
// separator belong to the empty group.
func SplitGroup(title string) (group, short string) {
	g, s, ok := strings.Cut(title, "|")
	if !ok {
		return "", title
	}
	return strings.TrimSpace(g), strings.TrimSpace(s)
}
