package parser

import "strings"

// Link is a markdown link or image reference found in a document.
type Link struct {
	Text       string
	Target     string
	Line       int
	IsInternal bool
}

// Heading is a markdown ATX heading.
type Heading struct {
	Level int
	Text  string
	Line  int
}

// Document is the normalized representation of one markdown file.
// Paths are slash-separated and relative to the project root.
type Document struct {
	Path     string
	RawText  string
	Links    []Link
	Images   []Link
	Headings []Heading

	slugs map[string]struct{}
}

// HeadingSlugs returns the document's anchor slug set. Computed once at
// parse time; safe for concurrent reads afterwards.
func (d *Document) HeadingSlugs() map[string]struct{} {
	return d.slugs
}

// HasSlug reports whether anchor resolves against this document.
func (d *Document) HasSlug(slug string) bool {
	_, ok := d.slugs[slug]
	return ok
}

// Export is a public symbol extracted from a source file.
type Export struct {
	Name      string
	Kind      string // function, class, method, const, var, type, interface
	Line      int
	IsDefault bool
}

// SourceFile is the normalized representation of one source file.
// Extraction is pattern based: identical content always yields an
// identical, identically ordered export list.
type SourceFile struct {
	Path     string
	Language string
	Exports  []Export
}

// Corpus is the full content model for one run: every parsed document
// and source file plus the set of all enumerated paths (including files
// that were never parsed, so link targets like LICENSE or images resolve).
type Corpus struct {
	Documents []*Document
	Sources   []*SourceFile

	paths      map[string]struct{}
	lowerPaths map[string]struct{}
	docsByPath map[string]*Document
}

func NewCorpus(allPaths []string) *Corpus {
	c := &Corpus{
		paths:      make(map[string]struct{}, len(allPaths)),
		lowerPaths: make(map[string]struct{}, len(allPaths)),
		docsByPath: make(map[string]*Document),
	}
	for _, p := range allPaths {
		c.paths[p] = struct{}{}
		c.lowerPaths[strings.ToLower(p)] = struct{}{}
	}
	return c
}

func (c *Corpus) AddDocument(d *Document) {
	c.Documents = append(c.Documents, d)
	c.docsByPath[d.Path] = d
}

func (c *Corpus) AddSource(s *SourceFile) {
	c.Sources = append(c.Sources, s)
}

// HasPath reports whether path was enumerated this run.
func (c *Corpus) HasPath(path string) bool {
	_, ok := c.paths[path]
	return ok
}

// HasPathFold is the case-insensitive variant used for image targets.
func (c *Corpus) HasPathFold(path string) bool {
	_, ok := c.lowerPaths[strings.ToLower(path)]
	return ok
}

// DocumentAt returns the parsed document for path, or nil.
func (c *Corpus) DocumentAt(path string) *Document {
	return c.docsByPath[path]
}

// AllPaths returns the enumerated path count.
func (c *Corpus) AllPaths() int {
	return len(c.paths)
}
