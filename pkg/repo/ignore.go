package repo

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// IgnoreChecker determines if a working-tree path should be skipped by
// the scanner.
type IgnoreChecker struct {
	patterns []ignorePattern
}

type ignorePattern struct {
	pattern  string
	negated  bool
	dirOnly  bool
	hasSlash bool // pattern contains a slash, so match against full path
	regex    *regexp.Regexp
}

// NewIgnoreChecker creates an IgnoreChecker for the given repository
// root. It always ignores .grit/ and .git/. If a .gritignore file exists
// in repoRoot, its patterns are parsed and applied.
func NewIgnoreChecker(repoRoot string) *IgnoreChecker {
	ic := &IgnoreChecker{}

	ic.patterns = append(ic.patterns,
		ignorePattern{pattern: ".grit"},
		ignorePattern{pattern: ".git"},
	)

	f, err := os.Open(filepath.Join(repoRoot, ".gritignore"))
	if err == nil {
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if p := parseIgnoreLine(scanner.Text()); p != nil {
				ic.patterns = append(ic.patterns, *p)
			}
		}
	}

	return ic
}

// parseIgnoreLine parses a single line from a .gritignore file. Returns
// nil if the line is empty or a comment.
func parseIgnoreLine(line string) *ignorePattern {
	line = strings.TrimRight(line, " \t")
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	p := &ignorePattern{}

	// Negation: lines starting with ! un-ignore a pattern.
	if strings.HasPrefix(line, "!") {
		p.negated = true
		line = line[1:]
	}

	// Directory-only: lines ending with / match directories only.
	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimRight(line, "/")
	}

	p.hasSlash = strings.Contains(line, "/")
	p.pattern = line
	if strings.Contains(line, "**") {
		if re, err := regexp.Compile(globToRegex(line)); err == nil {
			p.regex = re
		}
	}
	return p
}

// IsIgnored checks whether a relative path should be ignored. The path
// should use forward slashes and be relative to the repository root.
//
// Last matching pattern wins (to support negation).
func (ic *IgnoreChecker) IsIgnored(path string) bool {
	path = filepath.ToSlash(path)

	ignored := false
	for i := range ic.patterns {
		if ic.patterns[i].matches(path) {
			ignored = !ic.patterns[i].negated
		}
	}
	return ignored
}

// matches checks if the given relative path matches this ignore pattern.
func (p *ignorePattern) matches(path string) bool {
	// For the hardcoded metadata directories and dir-only patterns, also
	// match everything beneath the directory.
	if p.dirOnly || p.pattern == ".grit" || p.pattern == ".git" {
		if path == p.pattern || strings.HasPrefix(path, p.pattern+"/") {
			return true
		}
	}
	if p.dirOnly {
		return false
	}

	if p.hasSlash {
		return p.match(path)
	}
	return p.match(filepath.Base(path))
}

func (p *ignorePattern) match(target string) bool {
	if p.regex != nil {
		return p.regex.MatchString(target)
	}
	matched, _ := filepath.Match(p.pattern, target)
	return matched
}

func globToRegex(pattern string) string {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]
		switch ch {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				if i+2 < len(pattern) && pattern[i+2] == '/' {
					// Globstar directory segment: zero or more path segments.
					b.WriteString("(?:[^/]+/)*")
					i += 2
				} else {
					b.WriteString(".*")
					i++
				}
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		case '.', '(', ')', '+', '|', '^', '$', '[', ']', '{', '}', '\\':
			b.WriteByte('\\')
			b.WriteByte(ch)
		default:
			b.WriteByte(ch)
		}
	}
	b.WriteString("$")
	return b.String()
}
