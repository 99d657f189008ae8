package fileproc

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/astquery-mcp/internal/index"
	"github.com/dshills/astquery-mcp/internal/processor"
	"github.com/dshills/astquery-mcp/pkg/types"
)

// Match rule scores, highest-priority rule first. A file matching more
// than one rule keeps only its highest score.
const (
	scoreExactName   = 1.0
	scoreExactPath   = 0.95
	scoreGlob        = 0.9
	scoreSubstrFloor = 0.8
	fuzzyWeight      = 0.7
)

// DefaultFuzzyThreshold is the minimum normalized similarity a fuzzy
// match must reach to be admitted
const DefaultFuzzyThreshold = 0.6

// contentSearchConcurrency bounds the per-file content search fan-out
const contentSearchConcurrency = 8

// FileProcessor resolves file-scoped queries against the index using
// exact, glob, substring, and fuzzy filename matching. It implements
// the shared processor contract and is stateless apart from its
// collaborators.
type FileProcessor struct {
	reader         index.Reader
	fuzzyThreshold float64
	log            *zap.Logger
}

// New creates a FileProcessor. A zero fuzzyThreshold means the default.
func New(reader index.Reader, fuzzyThreshold float64, log *zap.Logger) *FileProcessor {
	if fuzzyThreshold <= 0 {
		fuzzyThreshold = DefaultFuzzyThreshold
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FileProcessor{reader: reader, fuzzyThreshold: fuzzyThreshold, log: log}
}

// fileMatch is a scored candidate file before annotation conversion
type fileMatch struct {
	path   string
	score  float64
	reason string
}

// Process implements the processor contract for file queries
func (p *FileProcessor) Process(ctx context.Context, req processor.Request) (*types.QueryResponse, error) {
	opts, _ := req.Options.(types.FileOptions)

	limit := req.MaxResults
	if limit <= 0 {
		limit = 10
	}

	start := time.Now()

	files, err := p.reader.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list index files: %w", err)
	}

	matches := p.matchFiles(req.Text, files, opts)

	// Best match first, then truncate to the cap
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	results := make([]types.AnnotationMatch, 0, len(matches))
	for _, m := range matches {
		if m.score < req.MinScore {
			continue
		}
		results = append(results, p.toAnnotationMatch(ctx, m))
	}

	return &types.QueryResponse{
		Results:        results,
		TotalMatches:   len(results),
		QueryTimeMs:    float64(time.Since(start).Microseconds()) / 1000.0,
		SearchStrategy: "file",
		Metadata: types.SearchMetadata{
			RankingTimeMs:   float64(time.Since(start).Microseconds()) / 1000.0,
			TotalCandidates: len(files),
			AppliedFilters:  fileFilters(opts),
			SearchParameters: map[string]string{
				"fuzzyThreshold": fmt.Sprintf("%.2f", p.fuzzyThreshold),
			},
		},
	}, nil
}

// matchFiles evaluates the rule ladder for every candidate file
func (p *FileProcessor) matchFiles(query string, files []string, opts types.FileOptions) []fileMatch {
	queryLower := strings.ToLower(query)
	hasGlob := strings.ContainsAny(query, "*?[")

	var matches []fileMatch
	for _, filePath := range files {
		if !opts.IncludeHidden && isHidden(filePath) {
			continue
		}
		if !passesFilters(filePath, opts) {
			continue
		}

		name := strings.ToLower(path.Base(filePath))
		pathLower := strings.ToLower(filePath)

		var best *fileMatch
		consider := func(score float64, reason string) {
			if best == nil || score > best.score {
				best = &fileMatch{path: filePath, score: score, reason: reason}
			}
		}

		// Exact matches are unconditional: a filename that happens to
		// contain glob metacharacters is still findable by its own name
		if name == queryLower {
			consider(scoreExactName, "exact filename match")
		}
		if pathLower == queryLower {
			consider(scoreExactPath, "exact path match")
		}
		if hasGlob {
			if ok, err := path.Match(queryLower, pathLower); err == nil && ok {
				consider(scoreGlob, "glob pattern match")
			} else if ok, err := path.Match(queryLower, name); err == nil && ok {
				consider(scoreGlob, "glob pattern match")
			}
		}
		if !hasGlob && name != queryLower && strings.Contains(name, queryLower) {
			score := float64(len(queryLower)) / float64(len(name))
			if score < scoreSubstrFloor {
				score = scoreSubstrFloor
			}
			consider(score, "partial match on filename")
		}
		if best == nil && !hasGlob {
			if similarity := FuzzyScore(queryLower, name); similarity >= p.fuzzyThreshold {
				consider(similarity*fuzzyWeight, "fuzzy filename match")
			}
		}

		if best != nil {
			matches = append(matches, *best)
		}
	}

	return matches
}

// toAnnotationMatch converts a file match into an AnnotationMatch,
// preferring the file's root annotation and synthesizing a virtual one
// when the lookup fails or finds nothing. A per-file failure never
// aborts the batch.
func (p *FileProcessor) toAnnotationMatch(ctx context.Context, m fileMatch) types.AnnotationMatch {
	ann, err := p.reader.RootAnnotation(ctx, m.path)
	if err != nil {
		if err != index.ErrNotFound {
			p.log.Warn("root annotation lookup failed, synthesizing virtual match",
				zap.String("file", m.path), zap.Error(err))
		}
		ann = synthesizeFileAnnotation(m.path)
	}

	return types.AnnotationMatch{
		Annotation:  ann,
		Score:       m.score,
		MatchReason: m.reason,
	}
}

// synthesizeFileAnnotation builds a deterministic virtual annotation
// for a file that has no root node in the index
func synthesizeFileAnnotation(filePath string) *types.Annotation {
	return &types.Annotation{
		NodeID:     "file-" + filePath,
		Signature:  path.Base(filePath),
		FilePath:   filePath,
		LineNumber: 1,
		Language:   types.LanguageForPath(filePath),
		Confidence: 1.0,
		NodeType:   "file",
	}
}

// ContentMatch is one line-level content hit
type ContentMatch = index.ContentMatch

// SearchContent runs the index's text search for text across the given
// files (or every indexed file when files is empty), fanned out with a
// bounded errgroup. A failing file is logged and skipped; it never
// fails the batch.
func (p *FileProcessor) SearchContent(ctx context.Context, text string, files []string, perFileLimit int) ([]ContentMatch, error) {
	if text == "" {
		return nil, fmt.Errorf("content search text cannot be empty")
	}

	if len(files) == 0 {
		all, err := p.reader.ListFiles(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list index files: %w", err)
		}
		files = all
	}

	results := make([][]ContentMatch, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(contentSearchConcurrency)

	for i, filePath := range files {
		i, filePath := i, filePath
		g.Go(func() error {
			matches, err := p.reader.SearchContent(gctx, filePath, text, perFileLimit)
			if err != nil {
				p.log.Warn("content search failed for file",
					zap.String("file", filePath), zap.Error(err))
				return nil
			}
			results[i] = matches
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []ContentMatch
	for _, batch := range results {
		merged = append(merged, batch...)
	}
	return merged, nil
}

// isHidden reports whether any path segment starts with a dot
func isHidden(filePath string) bool {
	for _, segment := range strings.Split(filePath, "/") {
		if strings.HasPrefix(segment, ".") && segment != "." && segment != ".." {
			return true
		}
	}
	return false
}

// passesFilters applies the extension and directory criteria
func passesFilters(filePath string, opts types.FileOptions) bool {
	if len(opts.Extensions) > 0 {
		ext := path.Ext(filePath)
		found := false
		for _, allowed := range opts.Extensions {
			if strings.EqualFold(ext, allowed) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(opts.Directories) > 0 {
		found := false
		for _, dir := range opts.Directories {
			if strings.HasPrefix(filePath, strings.TrimSuffix(dir, "/")+"/") {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

func fileFilters(opts types.FileOptions) []string {
	var filters []string
	if len(opts.Extensions) > 0 {
		filters = append(filters, "extensions")
	}
	if len(opts.Directories) > 0 {
		filters = append(filters, "directories")
	}
	if !opts.IncludeHidden {
		filters = append(filters, "excludeHidden")
	}
	return filters
}
