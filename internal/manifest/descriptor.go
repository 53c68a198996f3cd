// Package manifest provides the package descriptor of a ttt distribution.
// A descriptor declares the package name, version, description, author,
// license and the scripts installed onto the system path; its long
// description is read from the README file next to it.
package manifest

import (
	"github.com/Masterminds/semver/v3"

	"ttt/internal/errors"
	"ttt/internal/validate"
)

// DefaultReadme is the long-description file used when a descriptor names none.
const DefaultReadme = "README.md"

// Descriptor is the declarative package descriptor.
// Fields are read through koanf using their koanf tags and rendered with
// their yaml and json tags; validate tags hold the rules checked by Validate.
// LongDescription and Source are filled in at load time, never decoded.
type Descriptor struct {
	Name        string   `koanf:"name" yaml:"name" json:"name" validate:"required,pkgname"`
	Version     string   `koanf:"version" yaml:"version" json:"version" validate:"required,semver"`
	Description string   `koanf:"description" yaml:"description" json:"description" validate:"required,singleline"`
	Readme      string   `koanf:"readme" yaml:"readme" json:"readme" validate:"omitempty,relpath"`
	URL         string   `koanf:"url" yaml:"url,omitempty" json:"url,omitempty" validate:"omitempty,http_url"`
	Author      string   `koanf:"author" yaml:"author" json:"author" validate:"required"`
	AuthorEmail string   `koanf:"author_email" yaml:"author_email,omitempty" json:"author_email,omitempty" validate:"omitempty,email"`
	Requires    string   `koanf:"requires" yaml:"requires,omitempty" json:"requires,omitempty" validate:"omitempty,constraint"`
	License     string   `koanf:"license" yaml:"license" json:"license" validate:"required"`
	Packages    []string `koanf:"packages" yaml:"packages,omitempty" json:"packages,omitempty" validate:"dive,required"`
	Scripts     []string `koanf:"scripts" yaml:"scripts" json:"scripts" validate:"required,min=1,dive,required,relpath"`

	// LongDescription is the README content; it is never read from the
	// descriptor file itself.
	LongDescription string `koanf:"-" yaml:"long_description,omitempty" json:"long_description,omitempty"`

	// Source is the file the descriptor was loaded from.
	Source string `koanf:"-" yaml:"-" json:"-"`
}

// ApplyDefaults fills optional fields that have a default value.
func (d *Descriptor) ApplyDefaults() {
	if d.Readme == "" {
		d.Readme = DefaultReadme
	}
}

// Validate checks every field rule and reports all violations at once.
func (d *Descriptor) Validate() error {
	return validate.Struct(d.Source, d)
}

// SemVer returns the parsed package version.
// Parsing is strict: a leading "v" or a missing patch component is rejected,
// matching the semver rule on the version field.
func (d *Descriptor) SemVer() (*semver.Version, error) {
	v, err := semver.StrictNewVersion(d.Version)
	if err != nil {
		return nil, errors.NewValidationError(d.Source, []errors.FieldViolation{
			{Field: "version", Rule: "semver", Reason: err.Error()},
		})
	}
	return v, nil
}

// Constraint returns the parsed runtime constraint, or nil when the
// descriptor declares none.
func (d *Descriptor) Constraint() (*semver.Constraints, error) {
	if d.Requires == "" {
		return nil, nil
	}
	c, err := semver.NewConstraint(d.Requires)
	if err != nil {
		return nil, errors.NewValidationError(d.Source, []errors.FieldViolation{
			{Field: "requires", Rule: "constraint", Reason: err.Error()},
		})
	}
	return c, nil
}

// WithoutLongDescription returns a copy of d with the README content dropped.
func (d *Descriptor) WithoutLongDescription() *Descriptor {
	c := *d
	c.LongDescription = ""
	return &c
}
