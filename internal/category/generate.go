package category

import (
	"bufio"
	"context"
	"io"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// TreeNode is one node of the destination display category tree
type TreeNode struct {
	Code  int64      `json:"displayItemCategoryCode"`
	Name  string     `json:"name"`
	Child []TreeNode `json:"child"`
}

// FlatCategory is a tree node with its full breadcrumb path
type FlatCategory struct {
	Code int64
	Name string
	Path string
}

// Flatten walks the tree depth-first, joining names with " > "
func Flatten(root TreeNode) []FlatCategory {
	var out []FlatCategory
	var walk func(n TreeNode, parent string)
	walk = func(n TreeNode, parent string) {
		path := n.Name
		if parent != "" {
			path = parent + " > " + n.Name
		}
		out = append(out, FlatCategory{Code: n.Code, Name: n.Name, Path: path})
		for _, c := range n.Child {
			walk(c, path)
		}
	}
	walk(root, "")
	return out
}

// ReadKeywords reads one keyword per line, skipping blanks, '#' comments and repeats
func ReadKeywords(r io.Reader) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}
		seen[line] = true
		out = append(out, line)
	}
	return out, sc.Err()
}

// Generator matches source keywords onto assignable destination categories
type Generator struct {
	catalog Catalog
	prefer  []string
	logger  *zap.Logger
}

// NewGenerator creates a generator. Candidates whose path contains more of
// the prefer substrings are tried first.
func NewGenerator(catalog Catalog, prefer []string, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{catalog: catalog, prefer: prefer, logger: logger}
}

// Build returns one rule per keyword that matched a category name and whose
// first matching candidate passes the live validity check.
func (g *Generator) Build(ctx context.Context, keywords []string, flat []FlatCategory) ([]Rule, error) {
	var rules []Rule
	for _, kw := range keywords {
		target := strings.ToLower(kw)
		var candidates []FlatCategory
		for _, c := range flat {
			if c.Code > 0 && strings.Contains(strings.ToLower(c.Name), target) {
				candidates = append(candidates, c)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		g.sortByPreference(candidates)

		for _, c := range candidates {
			if err := ctx.Err(); err != nil {
				return rules, err
			}
			ok, err := g.catalog.CategoryExists(ctx, c.Code)
			if err != nil {
				g.logger.Warn("Category check failed", zap.Int64("code", c.Code), zap.Error(err))
				continue
			}
			if ok {
				rules = append(rules, Rule{Keyword: kw, Code: c.Code, Path: c.Path})
				g.logger.Info("Category rule", zap.String("keyword", kw), zap.Int64("code", c.Code), zap.String("path", c.Path))
				break
			}
		}
	}
	return rules, nil
}

func (g *Generator) sortByPreference(candidates []FlatCategory) {
	if len(g.prefer) == 0 {
		return
	}
	score := func(c FlatCategory) int {
		n := 0
		for _, p := range g.prefer {
			if strings.Contains(c.Path, p) {
				n++
			}
		}
		return n
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return score(candidates[i]) > score(candidates[j])
	})
}
