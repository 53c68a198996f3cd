package manifest

import (
	"strings"
)

// VersionMove classifies how the version changed between two snapshots.
type VersionMove string

// Version movements reported by Diff.
const (
	VersionBumped     VersionMove = "bumped"
	VersionUnchanged  VersionMove = "unchanged"
	VersionDowngraded VersionMove = "downgraded"
	VersionUnknown    VersionMove = "unknown"
)

// Change is one field that differs between two descriptor snapshots.
type Change struct {
	Field string `json:"field" yaml:"field"`
	Old   string `json:"old" yaml:"old"`
	New   string `json:"new" yaml:"new"`
}

// Delta is the comparison of two descriptor snapshots.
type Delta struct {
	From    string      `json:"from" yaml:"from"`
	To      string      `json:"to" yaml:"to"`
	Version VersionMove `json:"version" yaml:"version"`
	Changes []Change    `json:"changes" yaml:"changes"`
}

// Empty reports whether the snapshots declare the same package.
func (d Delta) Empty() bool {
	return len(d.Changes) == 0
}

type fieldGetter struct {
	name string
	get  func(*Descriptor) string
}

// comparedFields lists descriptor fields in file order. The long
// description is excluded; snapshots are compared without their README.
var comparedFields = []fieldGetter{
	{"name", func(d *Descriptor) string { return d.Name }},
	{"version", func(d *Descriptor) string { return d.Version }},
	{"description", func(d *Descriptor) string { return d.Description }},
	{"readme", func(d *Descriptor) string { return d.Readme }},
	{"url", func(d *Descriptor) string { return d.URL }},
	{"author", func(d *Descriptor) string { return d.Author }},
	{"author_email", func(d *Descriptor) string { return d.AuthorEmail }},
	{"requires", func(d *Descriptor) string { return d.Requires }},
	{"license", func(d *Descriptor) string { return d.License }},
	{"packages", func(d *Descriptor) string { return formatList(d.Packages) }},
	{"scripts", func(d *Descriptor) string { return formatList(d.Scripts) }},
}

// Diff compares two descriptor snapshots field by field.
// Every declared field except the long description is compared; lists are
// compared in order. The version move uses semantic-version precedence and is
// VersionUnknown when either version does not parse.
func Diff(from, to *Descriptor) Delta {
	delta := Delta{
		From:    from.Source,
		To:      to.Source,
		Version: compareVersions(from, to),
		Changes: []Change{},
	}

	for _, f := range comparedFields {
		oldValue, newValue := f.get(from), f.get(to)
		if oldValue != newValue {
			delta.Changes = append(delta.Changes, Change{Field: f.name, Old: oldValue, New: newValue})
		}
	}
	return delta
}

func compareVersions(from, to *Descriptor) VersionMove {
	oldVersion, err := from.SemVer()
	if err != nil {
		return VersionUnknown
	}
	newVersion, err := to.SemVer()
	if err != nil {
		return VersionUnknown
	}

	switch oldVersion.Compare(newVersion) {
	case -1:
		return VersionBumped
	case 1:
		return VersionDowngraded
	default:
		return VersionUnchanged
	}
}

func formatList(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}
