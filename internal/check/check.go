// Package check evaluates the verifiable facts of a package descriptor: that
// its README and scripts exist, that the declared version is the expected
// one, and that a runtime satisfies its version constraint.
package check

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"ttt/internal/errors"
	"ttt/internal/manifest"
	"ttt/internal/project"
)

// Severity grades a finding.
type Severity string

// Finding severities, from harmless to fatal.
const (
	SeverityOK      Severity = "ok"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Rule names, in evaluation order.
const (
	RuleDescriptor = "descriptor"
	RuleReadme     = "readme"
	RuleScripts    = "scripts"
	RuleVersion    = "version"
	RuleRequires   = "requires"
)

// Finding is the outcome of one rule.
type Finding struct {
	Rule     string   `json:"rule" yaml:"rule"`
	Severity Severity `json:"severity" yaml:"severity"`
	Message  string   `json:"message" yaml:"message"`
}

// Options selects the optional rules.
type Options struct {
	// ExpectVersion, when set, must equal the declared version.
	ExpectVersion string
	// Runtime, when set, is checked against the declared constraint.
	Runtime string
}

// Report collects the findings for one descriptor.
// Findings appear in rule order, and every rule that ran contributes at
// least one finding, including the ok ones. Scripts lists the resolved
// script files so reports can show what would be installed.
type Report struct {
	Package  string               `json:"package" yaml:"package"`
	Version  string               `json:"version" yaml:"version"`
	Source   string               `json:"source" yaml:"source"`
	Findings []Finding            `json:"findings" yaml:"findings"`
	Scripts  []project.ScriptFile `json:"scripts,omitempty" yaml:"scripts,omitempty"`
}

// Counts returns the number of warnings and errors.
func (r *Report) Counts() (warnings, errs int) {
	for _, f := range r.Findings {
		switch f.Severity {
		case SeverityWarning:
			warnings++
		case SeverityError:
			errs++
		}
	}
	return warnings, errs
}

// Passed reports whether the report has no errors and, when strict, no warnings.
func (r *Report) Passed(strict bool) bool {
	warnings, errs := r.Counts()
	if errs > 0 {
		return false
	}
	return !strict || warnings == 0
}

func (r *Report) add(rule string, severity Severity, format string, args ...any) {
	r.Findings = append(r.Findings, Finding{
		Rule:     rule,
		Severity: severity,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Check runs every rule against d, whose files are resolved against root.
// The descriptor, readme and scripts rules always run; the version and
// requires rules run only when Options asks for them. Check never returns an
// error: problems are findings, and Passed decides the outcome.
func Check(d *manifest.Descriptor, root string, opts Options) *Report {
	r := &Report{
		Package:  d.Name,
		Version:  d.Version,
		Source:   d.Source,
		Findings: []Finding{},
	}

	checkDescriptor(r, d)
	checkReadme(r, d, root)
	checkScripts(r, d, root)
	if opts.ExpectVersion != "" {
		checkVersion(r, d, opts.ExpectVersion)
	}
	if opts.Runtime != "" && d.Requires != "" {
		checkRequires(r, d, opts.Runtime)
	}
	return r
}

func checkDescriptor(r *Report, d *manifest.Descriptor) {
	if err := d.Validate(); err != nil {
		r.add(RuleDescriptor, SeverityError, "%s", err.Error())
		return
	}
	r.add(RuleDescriptor, SeverityOK, "%s %s is a valid descriptor", d.Name, d.Version)
}

func checkReadme(r *Report, d *manifest.Descriptor, root string) {
	path := d.ReadmePath(root)
	info, err := os.Stat(path)
	if err != nil {
		r.add(RuleReadme, SeverityError, "%s", errors.WrapFileError(path, err).Error())
		return
	}
	if !info.Mode().IsRegular() {
		r.add(RuleReadme, SeverityError, "%s is not a regular file", d.Readme)
		return
	}
	if info.Size() == 0 {
		r.add(RuleReadme, SeverityWarning, "%s is empty; the long description will be blank", d.Readme)
		return
	}
	r.add(RuleReadme, SeverityOK, "%s (%d bytes)", d.Readme, info.Size())
}

func checkScripts(r *Report, d *manifest.Descriptor, root string) {
	files, err := project.ResolveScripts(root, d.Scripts)
	if err != nil {
		r.add(RuleScripts, SeverityError, "%s", err.Error())
		return
	}
	r.Scripts = files

	clean := true
	for _, f := range files {
		switch {
		case f.Missing:
			r.add(RuleScripts, SeverityError, "%s does not exist", f.Pattern)
			clean = false
		case !f.Regular:
			r.add(RuleScripts, SeverityError, "%s is not a regular file", f.Path)
			clean = false
		case !f.Executable:
			r.add(RuleScripts, SeverityWarning, "%s is not executable", f.Path)
			clean = false
		}
	}
	if clean {
		r.add(RuleScripts, SeverityOK, "%d script(s) installable", len(files))
	}
}

func checkVersion(r *Report, d *manifest.Descriptor, expected string) {
	want, err := semver.StrictNewVersion(strings.TrimPrefix(expected, "v"))
	if err != nil {
		r.add(RuleVersion, SeverityError, "expected version %q is not a semantic version", expected)
		return
	}
	got, err := d.SemVer()
	if err != nil {
		r.add(RuleVersion, SeverityError, "%s", err.Error())
		return
	}
	// Equal ignores build metadata; the version strings must match exactly.
	if got.String() != want.String() {
		r.add(RuleVersion, SeverityError, "declared version %s does not equal expected %s", got, want)
		return
	}
	r.add(RuleVersion, SeverityOK, "declared version equals %s", want)
}

func checkRequires(r *Report, d *manifest.Descriptor, runtime string) {
	constraint, err := d.Constraint()
	if err != nil {
		r.add(RuleRequires, SeverityError, "%s", err.Error())
		return
	}
	v, err := runtimeVersion(runtime)
	if err != nil {
		r.add(RuleRequires, SeverityError, "runtime version %q is not a version", runtime)
		return
	}
	// A pre-release satisfies the constraints of the release it precedes.
	release := semver.New(v.Major(), v.Minor(), v.Patch(), "", "")
	if ok, reasons := constraint.Validate(release); !ok {
		msgs := make([]string, 0, len(reasons))
		for _, reason := range reasons {
			msgs = append(msgs, reason.Error())
		}
		r.add(RuleRequires, SeverityError, "runtime %s does not satisfy %s: %s", v, d.Requires, strings.Join(msgs, "; "))
		return
	}
	r.add(RuleRequires, SeverityOK, "runtime %s satisfies %s", v, d.Requires)
}

var toolchainPreRelease = regexp.MustCompile(`^(\d+(?:\.\d+)*)(alpha|beta|rc)(\d+)$`)

// runtimeVersion parses a runtime version as printed by toolchains, such as
// go1.24.4 or go1.25rc1. Pre-release suffixes written without a separator
// are rewritten to semver form (1.25-rc.1) before parsing.
func runtimeVersion(s string) (*semver.Version, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "go")
	s = toolchainPreRelease.ReplaceAllString(s, "$1-$2.$3")
	return semver.NewVersion(s)
}
