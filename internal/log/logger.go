// Package log provides diagnostics and report output for ttt commands.
// Diagnostics go to stderr and honour the verbosity settings; reports go to
// stdout or the configured output file in text, JSON or YAML.
package log

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"ttt/internal/check"
	"ttt/internal/config"
	"ttt/internal/manifest"
)

// Logger writes diagnostics and reports according to the runtime config.
// Diagnostics are plain lines on the diagnostic stream, filtered by the
// verbosity settings. Reports are always written, in the configured format,
// to stdout or to the output file.
type Logger struct {
	config *config.Config
	out    io.Writer
	diag   io.Writer
	file   *os.File

	ok    *color.Color
	warn  *color.Color
	fail  *color.Color
	label *color.Color
}

// NewLogger creates a Logger writing reports to stdout, or to cfg.Output
// when set, and diagnostics to stderr.
func NewLogger(cfg *config.Config, stdout, stderr io.Writer) (*Logger, error) {
	l := &Logger{
		config: cfg,
		out:    stdout,
		diag:   stderr,
		ok:     color.New(color.FgGreen),
		warn:   color.New(color.FgYellow),
		fail:   color.New(color.FgRed, color.Bold),
		label:  color.New(color.Bold),
	}

	if cfg.Output != "" {
		file, err := os.Create(cfg.Output)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", cfg.Output, err)
		}
		l.file = file
		l.out = file
	}

	if cfg.NoColor || l.file != nil {
		for _, c := range []*color.Color{l.ok, l.warn, l.fail, l.label} {
			c.DisableColor()
		}
	}
	return l, nil
}

// Infof writes a diagnostic shown in verbose mode.
func (l *Logger) Infof(format string, args ...any) {
	if l.config.IsVerbose() {
		fmt.Fprintf(l.diag, format+"\n", args...)
	}
}

// Debugf writes a diagnostic shown in debug mode.
func (l *Logger) Debugf(format string, args ...any) {
	if l.config.IsDebug() {
		fmt.Fprintf(l.diag, "debug: "+format+"\n", args...)
	}
}

// Warnf writes a diagnostic shown unless quiet.
func (l *Logger) Warnf(format string, args ...any) {
	if l.config.ShouldLog() {
		fmt.Fprintf(l.diag, "%s "+format+"\n", append([]any{l.warn.Sprint("warning:")}, args...)...)
	}
}

// WriteDescriptor renders a package descriptor.
func (l *Logger) WriteDescriptor(d *manifest.Descriptor) error {
	return l.write(d, func(w io.Writer) {
		l.descriptorText(w, d)
	})
}

// WriteCheckReport renders a check report; strict decides the verdict line.
// Structured formats carry the report fields plus a passed flag.
func (l *Logger) WriteCheckReport(r *check.Report, strict bool) error {
	view := struct {
		check.Report `yaml:",inline"`
		Passed       bool `json:"passed" yaml:"passed"`
	}{*r, r.Passed(strict)}

	return l.write(view, func(w io.Writer) {
		l.checkText(w, r, view.Passed)
	})
}

// WriteDelta renders the comparison of two descriptor snapshots.
func (l *Logger) WriteDelta(delta manifest.Delta) error {
	return l.write(delta, func(w io.Writer) {
		l.deltaText(w, delta)
	})
}

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
	Date    string `json:"date" yaml:"date"`
	Go      string `json:"go" yaml:"go"`
}

// WriteBuildInfo renders the binary's build information.
func (l *Logger) WriteBuildInfo(info BuildInfo) error {
	return l.write(info, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s (commit: %s, built: %s, %s)\n", info.Name, info.Version, info.Commit, info.Date, info.Go)
	})
}

func (l *Logger) write(v any, text func(io.Writer)) error {
	switch l.config.Format {
	case config.FormatJSON:
		encoder := json.NewEncoder(l.out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case config.FormatYAML:
		encoder := yaml.NewEncoder(l.out)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return err
		}
		return encoder.Close()
	default:
		text(l.out)
		return nil
	}
}

func (l *Logger) descriptorText(w io.Writer, d *manifest.Descriptor) {
	field := func(name, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(w, "%s %s\n", l.label.Sprintf("%-13s", name+":"), value)
	}

	field("name", d.Name)
	field("version", d.Version)
	field("description", d.Description)
	field("url", d.URL)
	field("author", d.Author)
	field("author_email", d.AuthorEmail)
	field("requires", d.Requires)
	field("license", d.License)
	field("packages", strings.Join(d.Packages, ", "))
	field("scripts", strings.Join(d.Scripts, ", "))
	field("readme", d.Readme)

	if d.LongDescription != "" {
		fmt.Fprintf(w, "\n%s\n", l.label.Sprint("long_description:"))
		for _, line := range strings.Split(strings.TrimRight(d.LongDescription, "\n"), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
}

func (l *Logger) checkText(w io.Writer, r *check.Report, passed bool) {
	fmt.Fprintf(w, "%s %s (%s)\n", l.label.Sprint(r.Package), r.Version, r.Source)
	for _, f := range r.Findings {
		fmt.Fprintf(w, "  %s %-10s %s\n", l.severity(f.Severity), f.Rule, f.Message)
	}

	warnings, errs := r.Counts()
	verdict := l.ok.Sprint("passed")
	if !passed {
		verdict = l.fail.Sprint("failed")
	}
	fmt.Fprintf(w, "Result: %s (%d warnings, %d errors)\n", verdict, warnings, errs)
}

func (l *Logger) severity(s check.Severity) string {
	tag := fmt.Sprintf("%-9s", "["+string(s)+"]")
	switch s {
	case check.SeverityOK:
		return l.ok.Sprint(tag)
	case check.SeverityWarning:
		return l.warn.Sprint(tag)
	default:
		return l.fail.Sprint(tag)
	}
}

func (l *Logger) deltaText(w io.Writer, delta manifest.Delta) {
	fmt.Fprintf(w, "%s -> %s (version %s)\n", delta.From, delta.To, delta.Version)
	if delta.Empty() {
		fmt.Fprintln(w, "no changes")
		return
	}
	for _, c := range delta.Changes {
		fmt.Fprintf(w, "  %s %s -> %s\n", l.label.Sprintf("%s:", c.Field), c.Old, c.New)
	}
}

// Close releases the output file, if any. Standard streams are never closed.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
