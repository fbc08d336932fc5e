package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/citeseek/citeseek/internal/core/domain"
	"github.com/citeseek/citeseek/internal/core/ports/driven"
	"github.com/citeseek/citeseek/internal/logger"
)

// Ensure Reader implements both corpus interfaces.
var (
	_ driven.CorpusReader  = (*Reader)(nil)
	_ driven.CorpusWatcher = (*Reader)(nil)
)

// Reader loads documents from parse-result JSON files.
type Reader struct{}

// New creates a new parse-result reader.
func New() *Reader {
	return &Reader{}
}

// parseResult mirrors the external parser's output shape.
type parseResult struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Authors       []string       `json:"authors"`
	PublicationID string         `json:"publication_id"`
	ParseStrategy string         `json:"parse_strategy"`
	Elements      []parseElement `json:"elements"`
}

type parseElement struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// elementAliases maps the parser's element vocabulary onto the
// canonical types. The parser emits its PDF partitioner's class
// names; anything not listed here goes through
// domain.ParseElementType and lands on ElementUnknown if it is not
// already canonical.
var elementAliases = map[string]domain.ElementType{
	"narrativetext":     domain.ElementParagraph,
	"listitem":          domain.ElementParagraph,
	"text":              domain.ElementParagraph,
	"uncategorizedtext": domain.ElementParagraph,
	"heading":           domain.ElementTitle,
	"header":            domain.ElementTitle,
	"formula":           domain.ElementEquation,
	"figurecaption":     domain.ElementUnknown,
	"image":             domain.ElementUnknown,
}

func mapElementType(s string) domain.ElementType {
	key := strings.ToLower(strings.TrimSpace(s))
	if t, ok := elementAliases[key]; ok {
		return t
	}
	return domain.ParseElementType(key)
}

// List returns the paths of all parse-result files under dir, sorted
// lexicographically. Passing the path of a single JSON file returns
// just that path, so callers can hand either form straight through.
func (r *Reader) List(ctx context.Context, dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("list corpus: %w", err)
	}
	if !info.IsDir() {
		if !isParseResult(dir) {
			return nil, fmt.Errorf("list corpus: %s is not a parse-result file: %w", dir, domain.ErrInvalidInput)
		}
		return []string{dir}, nil
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		name := d.Name()
		if d.IsDir() {
			if path != dir && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if isParseResult(path) && !strings.HasPrefix(name, ".") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list corpus: %w", err)
	}

	sort.Strings(paths)
	return paths, nil
}

// Read loads and validates a single parse-result file. Malformed JSON
// wraps domain.ErrInvalidInput so ingest can report the file as a
// failure without aborting the run.
func (r *Reader) Read(_ context.Context, path string) (*domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	var result parseResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parse %s: %w: %v", filepath.Base(path), domain.ErrInvalidInput, err)
	}

	// Documents without an explicit id take the file stem, matching
	// how the parser names its output files after the papers.
	id := strings.TrimSpace(result.ID)
	if id == "" {
		id = fileStem(path)
	}
	if id == "" {
		return nil, fmt.Errorf("parse %s: missing document id: %w", filepath.Base(path), domain.ErrInvalidInput)
	}

	doc := &domain.Document{
		ID:            id,
		Title:         strings.TrimSpace(result.Title),
		Authors:       result.Authors,
		PublicationID: strings.TrimSpace(result.PublicationID),
		ParseStrategy: domain.ParseStrategy(strings.TrimSpace(result.ParseStrategy)),
	}
	for _, el := range result.Elements {
		doc.Elements = append(doc.Elements, domain.Element{
			Type:  mapElementType(el.Type),
			Text:  el.Text,
			Start: el.Start,
			End:   el.End,
		})
	}
	return doc, nil
}

// Watch emits the path of each parse-result file created or rewritten
// under dir until ctx is cancelled. Duplicate events for one file are
// harmless: re-ingesting an unchanged document is a no-op.
func (r *Reader) Watch(ctx context.Context, dir string) (<-chan string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	changes := make(chan string)
	go func() {
		defer close(changes)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				path, relevant := corpusChange(event)
				if !relevant {
					continue
				}
				select {
				case changes <- path:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("corpus watch: %v", err)
			}
		}
	}()
	return changes, nil
}

// corpusChange reports whether event refers to a parse-result file
// worth re-reading. Removals and attribute changes are ignored: the
// store keeps serving documents whose source file has gone away.
func corpusChange(event fsnotify.Event) (string, bool) {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return "", false
	}
	if !isParseResult(event.Name) || strings.HasPrefix(filepath.Base(event.Name), ".") {
		return "", false
	}
	if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
		return "", false
	}
	return event.Name, true
}

func isParseResult(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
