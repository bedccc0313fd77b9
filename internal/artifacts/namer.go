// Package artifacts computes deterministic, filesystem-safe relative paths
// for diagnostic files (screenshots, videos) captured when a test fails.
//
// The namer performs no I/O: it reads the clock and returns a path. Creating
// directories and writing the file is the caller's job.
package artifacts

import (
	"path"
	"regexp"
	"strings"
	"time"
)

// Category is the coarse grouping a test belongs to. It doubles as the first
// directory segment of every artifact path.
type Category string

const (
	CategorySmoke         Category = "smoke"
	CategoryFunctional    Category = "functional"
	CategoryVisual        Category = "visual"
	CategoryAccessibility Category = "accessibility"
	CategoryOther         Category = "other"
)

// knownCategories is checked in order against the test's originating
// path or tag. Anything unmatched lands in CategoryOther.
var knownCategories = []Category{
	CategorySmoke, CategoryFunctional, CategoryVisual, CategoryAccessibility,
}

// Type distinguishes artifact payloads. The namer picks the file extension
// from it.
type Type string

const (
	TypeScreenshot Type = "screenshot"
	TypeVideo      Type = "video"
	TypeTrace      Type = "trace"
)

func (t Type) ext() string {
	switch t {
	case TypeVideo:
		return "webm"
	case TypeTrace:
		return "zip"
	default:
		return "png"
	}
}

// placeholderID substitutes for a missing CATEGORY-NN token in a test title.
const placeholderID = "NO-ID"

// maxSlugLen bounds the title-derived slug so the joined path stays well
// under common filesystem path-length limits.
const maxSlugLen = 50

// timestampLayout is second-resolution and contains no colons, keeping the
// file name valid on every supported filesystem.
const timestampLayout = "2006-01-02_15-04-05"

var (
	testIDPattern  = regexp.MustCompile(`^([A-Z]+-\d+)`)
	nonSlugPattern = regexp.MustCompile(`[^a-z0-9]+`)
)

// TestMeta is the ambient metadata of the currently running test, as supplied
// by the surrounding runner.
type TestMeta struct {
	// Title is the human-readable test name, optionally prefixed with a
	// CATEGORY-NN identifier ("SMK-01 виджет открывается").
	Title string
	// SourceTag is the test's originating path or tag, used to derive the
	// category ("functional", "tests/visual/theme_test" and the like).
	SourceTag string
	// BrowserProject names the browser configuration ("chromium-desktop").
	BrowserProject string
	// Viewport is the active viewport label ("1920x1080").
	Viewport string
}

// Namer builds artifact paths. The zero value uses the wall clock; tests
// inject a fixed Now.
type Namer struct {
	// Now supplies the timestamp component. Defaults to time.Now.
	Now func() time.Time
}

// NameFor returns the relative path for one artifact:
//
//	category/browserProject/{testId}_{slug}[_{step}]_{viewport}_{type}_{timestamp}.{ext}
//
// The result is deterministic for fixed inputs within one clock second.
func (n Namer) NameFor(meta TestMeta, artifactType Type, stepLabel string) string {
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}

	id, rest := splitTestID(meta.Title)
	parts := []string{id, Slug(rest)}
	if stepLabel != "" {
		parts = append(parts, Slug(stepLabel))
	}
	parts = append(parts,
		meta.Viewport,
		string(artifactType),
		now().Format(timestampLayout),
	)

	file := strings.Join(parts, "_") + "." + artifactType.ext()
	return path.Join(string(CategoryOf(meta.SourceTag)), meta.BrowserProject, file)
}

// CategoryOf maps a test's originating path or tag to its category, falling
// back to CategoryOther when nothing matches.
func CategoryOf(sourceTag string) Category {
	tag := strings.ToLower(sourceTag)
	for _, c := range knownCategories {
		if strings.Contains(tag, string(c)) {
			return c
		}
	}
	return CategoryOther
}

// splitTestID extracts the leading CATEGORY-NN token from a title. When the
// title carries no token the placeholder is substituted and the whole title
// becomes the slug source.
func splitTestID(title string) (id, rest string) {
	title = strings.TrimSpace(title)
	if m := testIDPattern.FindString(title); m != "" {
		return m, strings.TrimSpace(title[len(m):])
	}
	return placeholderID, title
}

// Slug normalizes free text into a bounded [a-z0-9-] token: lower-case,
// Cyrillic transliterated to Latin, every other run of non-alphanumerics
// collapsed into a single hyphen.
func Slug(s string) string {
	s = transliterate(strings.ToLower(s))
	s = nonSlugPattern.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLen {
		s = strings.Trim(s[:maxSlugLen], "-")
	}
	if s == "" {
		return "untitled"
	}
	return s
}
