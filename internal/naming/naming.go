// Package naming derives report file, suite and test case names from a test
// source identifier and the module/test names reported by the runner.
package naming

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// GlobalModule is the name used for tests reported outside any module.
const GlobalModule = "global"

// FileNamer maps a source identifier to the report's file identity.
type FileNamer func(source string) string

// ClassNamer maps a module name to the suite (class) name.
type ClassNamer func(module, source string) string

// TestNamer maps a test name to the test case name.
type TestNamer func(test, module, source string) string

// Policy bundles the three namers. Zero-valued fields fall back to the defaults.
type Policy struct {
	FileNamer  FileNamer
	ClassNamer ClassNamer
	TestNamer  TestNamer
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		FileNamer:  DefaultFileNamer,
		ClassNamer: DefaultClassNamer,
		TestNamer:  DefaultTestNamer,
	}
}

var (
	htmlSuffix = regexp.MustCompile(`\.html.*$`)
	whitespace = regexp.MustCompile(`\s+`)
)

// DefaultFileNamer strips the source to its base name and drops a trailing
// ".html" along with anything after it, so query strings are ignored.
func DefaultFileNamer(source string) string {
	trimmed := source
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	base := path.Base(strings.ReplaceAll(trimmed, "\\", "/"))
	return htmlSuffix.ReplaceAllString(base, "")
}

// DefaultClassNamer replaces path separators with "." and whitespace runs with "_".
func DefaultClassNamer(module, _ string) string {
	name := strings.NewReplacer("/", ".", "\\", ".").Replace(module)
	return whitespace.ReplaceAllString(name, "_")
}

// DefaultTestNamer returns the test name unchanged.
func DefaultTestNamer(test, _, _ string) string {
	return test
}

// ModuleName applies the "global" substitution for unnamed modules.
func ModuleName(module string) string {
	if module == "" {
		return GlobalModule
	}
	return module
}

// File derives the file identity for source.
func (p Policy) File(source string) string {
	if p.FileNamer == nil {
		return DefaultFileNamer(source)
	}
	return p.FileNamer(source)
}

// Class derives the suite name for module within source.
func (p Policy) Class(module, source string) string {
	module = ModuleName(module)
	if p.ClassNamer == nil {
		return DefaultClassNamer(module, source)
	}
	return p.ClassNamer(module, source)
}

// Test derives the test case name.
func (p Policy) Test(test, module, source string) string {
	module = ModuleName(module)
	if p.TestNamer == nil {
		return DefaultTestNamer(test, module, source)
	}
	return p.TestNamer(test, module, source)
}

// Rule rewrites an input with a regular expression. When Pattern does not
// match, the namer falls back to its default.
type Rule struct {
	Pattern   string `yaml:"pattern"`
	Replace   string `yaml:"replace"`
	Separator string `yaml:"separator"` // Replaces "/" in the rewritten name
}

// ClassRule is a Rule applied to either the module name or the source.
type ClassRule struct {
	Rule `yaml:",inline"`

	From string `yaml:"from"` // "module" (default) or "source"
}

// TestRule configures test case names.
type TestRule struct {
	PrefixModule bool `yaml:"prefix_module"`
}

// Rules is the configuration form of a Policy.
type Rules struct {
	File  *Rule      `yaml:"file,omitempty"`
	Class *ClassRule `yaml:"class,omitempty"`
	Test  *TestRule  `yaml:"test,omitempty"`
}

type compiledRule struct {
	re        *regexp.Regexp
	replace   string
	separator string
}

func compile(r Rule) (*compiledRule, error) {
	if r.Pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(r.Pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid naming pattern %q: %w", r.Pattern, err)
	}
	replace := r.Replace
	if replace == "" {
		replace = "$0"
	}
	return &compiledRule{re: re, replace: replace, separator: r.Separator}, nil
}

// apply returns the rewritten name and whether the pattern matched.
func (c *compiledRule) apply(input string) (string, bool) {
	m := c.re.FindStringSubmatchIndex(input)
	if m == nil {
		return "", false
	}
	out := string(c.re.ExpandString(nil, c.replace, input, m))
	if c.separator != "" {
		out = strings.ReplaceAll(out, "/", c.separator)
	}
	return out, true
}

// FromRules builds a Policy from configuration. Unset rules keep the defaults.
func FromRules(rules Rules) (Policy, error) {
	policy := DefaultPolicy()

	if rules.File != nil {
		c, err := compile(*rules.File)
		if err != nil {
			return Policy{}, err
		}
		if c != nil {
			policy.FileNamer = func(source string) string {
				if name, ok := c.apply(source); ok {
					return name
				}
				return DefaultFileNamer(source)
			}
		}
	}

	if rules.Class != nil {
		c, err := compile(rules.Class.Rule)
		if err != nil {
			return Policy{}, err
		}
		fromSource := false
		switch rules.Class.From {
		case "", "module":
		case "source":
			fromSource = true
		default:
			return Policy{}, fmt.Errorf("invalid class namer source %q (want module or source)", rules.Class.From)
		}
		if c != nil || fromSource {
			policy.ClassNamer = func(module, source string) string {
				input := module
				if fromSource {
					input = source
				}
				if c != nil {
					if name, ok := c.apply(input); ok {
						return name
					}
				}
				if fromSource {
					return DefaultFileNamer(source)
				}
				return DefaultClassNamer(module, source)
			}
		}
	}

	if rules.Test != nil && rules.Test.PrefixModule {
		policy.TestNamer = func(test, module, _ string) string {
			if module == GlobalModule {
				return test
			}
			return module + ": " + test
		}
	}

	return policy, nil
}
