package loader

import (
	"fmt"
	"strings"

	"github.com/matzehuels/jet/pkg/errors"
)

// Kind distinguishes script modules from stylesheets.
type Kind int

const (
	// Script modules register a factory through Add once they are fetched.
	Script Kind = iota
	// Stylesheet modules have no factory. They count as loaded once the
	// injector reports them applied.
	Stylesheet
)

// String returns "js" or "css".
func (k Kind) String() string {
	switch k {
	case Script:
		return "js"
	case Stylesheet:
		return "css"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind accepts "js", "script", "css" and "stylesheet". The empty string
// means Script.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "js", "script":
		return Script, nil
	case "css", "stylesheet":
		return Stylesheet, nil
	}
	return Script, errors.New(errors.ErrCodeInvalidInput, "unknown module kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Module describes a loadable unit.
type Module struct {
	Name     string   `json:"name" toml:"name" yaml:"name"`
	Requires []string `json:"requires,omitempty" toml:"requires" yaml:"requires,omitempty"`
	Kind     Kind     `json:"kind" toml:"kind" yaml:"kind"`
	// Path overrides the URL derived from the name. Absolute paths and URLs
	// are used verbatim; relative paths are joined to the base.
	Path string `json:"path,omitempty" toml:"path" yaml:"path,omitempty"`
}

// Validate checks the module and its requirement names.
func (m Module) Validate() error {
	if err := errors.ValidateModuleName(m.Name); err != nil {
		return err
	}
	for _, r := range m.Requires {
		if err := errors.ValidateModuleName(r); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidDependency, err, "module %q", m.Name)
		}
	}
	return nil
}

// ResolveURL returns the URL a module is fetched from.
//
// Without a Path the URL is base + name + "/" + name followed by ".min" when
// minify is set and the kind's extension, e.g. "https://cdn/jet/attr/attr.min.js".
func ResolveURL(base string, minify bool, m Module) string {
	if m.Path != "" {
		if isAbsolute(m.Path) {
			return m.Path
		}
		return joinBase(base, m.Path)
	}
	var b strings.Builder
	b.WriteString(m.Name)
	b.WriteByte('/')
	b.WriteString(m.Name)
	if minify {
		b.WriteString(".min")
	}
	b.WriteByte('.')
	b.WriteString(m.Kind.String())
	return joinBase(base, b.String())
}

func isAbsolute(p string) bool {
	return strings.HasPrefix(p, "/") || strings.Contains(p, "://")
}

func joinBase(base, p string) string {
	if base == "" || strings.HasSuffix(base, "/") {
		return base + p
	}
	return base + "/" + p
}
