// Package configfiles provides embedded files for Glance: the annotated
// example configuration and demo report files.
package configfiles

import (
	"embed"
	"path"
	"sort"
)

//go:embed glance.example.yaml
//go:embed all:demo
var configFS embed.FS

const demoDir = "demo"

// GetConfigExample returns the annotated example configuration file content
func GetConfigExample() ([]byte, error) {
	return configFS.ReadFile("glance.example.yaml")
}

// GetDemoReport returns the content of one demo report file
func GetDemoReport(name string) ([]byte, error) {
	return configFS.ReadFile(path.Join(demoDir, name))
}

// ListDemoReports returns the names of the demo report files, sorted
func ListDemoReports() []string {
	entries, err := configFS.ReadDir(demoDir)
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && path.Ext(entry.Name()) == ".yaml" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names
}

// GetAllDemoReports returns all demo report files as a map of name to content
func GetAllDemoReports() (map[string][]byte, error) {
	reports := make(map[string][]byte)
	for _, name := range ListDemoReports() {
		data, err := GetDemoReport(name)
		if err != nil {
			return nil, err
		}
		reports[name] = data
	}
	return reports, nil
}
