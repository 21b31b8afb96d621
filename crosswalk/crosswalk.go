package crosswalk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/lehigh-university-libraries/refer/discovery"
	"github.com/lehigh-university-libraries/refer/item"
	"github.com/lehigh-university-libraries/refer/virtual"
)

var (
	// ErrObjectNotSupported is returned for records a crosswalk cannot
	// disseminate.
	ErrObjectNotSupported = errors.New("crosswalk can only disseminate items")

	// ErrMultipleItemsUnsupported is returned by multi-record dissemination
	// when no multiple items template is configured.
	ErrMultipleItemsUnsupported = errors.New("multiple items dissemination is not supported")
)

// Config describes one crosswalk.
type Config struct {
	Name string
	// Template is the path of the single record template.
	Template string
	// MultipleItemsTemplate is the path of the optional multi-record
	// template.
	MultipleItemsTemplate string
	MIMEType              string
	FileName              string
	StrictGroups          bool
	Vocabulary            Vocabulary
}

// Deps are the collaborators of a crosswalk. All are optional.
type Deps struct {
	Virtual        virtual.Resolver
	Configurations discovery.ConfigurationService
	Searcher       discovery.Searcher
	// Converter rewrites every substituted value.
	Converter func(string) string
	// PostProcessor rewrites the rendered lines once before they are written.
	PostProcessor func([]string) []string
	Logger        *slog.Logger
}

// templates is an immutable snapshot of the parsed templates.
type templates struct {
	single   []Line
	// multiple is empty when no multiple items template is configured or
	// the configured file has no lines.
	multiple []Line
}

// Crosswalk disseminates records through its templates. It is safe for
// concurrent use; Reload swaps the templates without disturbing renders in
// progress.
type Crosswalk struct {
	cfg         Config
	renderer    *Renderer
	postProcess func([]string) []string
	tpl         atomic.Pointer[templates]
}

// New creates a crosswalk and loads its templates.
func New(cfg Config, deps Deps) (*Crosswalk, error) {
	if cfg.Template == "" {
		return nil, fmt.Errorf("crosswalk %s: no template configured", cfg.Name)
	}
	resolver := deps.Virtual
	if resolver == nil {
		resolver = virtual.Default()
	}

	c := &Crosswalk{
		cfg: cfg,
		renderer: &Renderer{
			Virtual:        resolver,
			Configurations: deps.Configurations,
			Searcher:       deps.Searcher,
			Converter:      deps.Converter,
			StrictGroups:   cfg.StrictGroups,
			Logger:         deps.Logger,
		},
		postProcess: deps.PostProcessor,
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload parses the template files again. On error the templates loaded
// before stay active.
func (c *Crosswalk) Reload() error {
	opts := LoadOptions{Vocabulary: c.cfg.Vocabulary, Virtual: c.renderer.Virtual}

	single, err := LoadTemplate(c.cfg.Template, opts)
	if err != nil {
		return fmt.Errorf("loading crosswalk %s: %w", c.cfg.Name, err)
	}
	t := &templates{single: single}

	if c.cfg.MultipleItemsTemplate != "" {
		multiple, err := LoadTemplate(c.cfg.MultipleItemsTemplate, opts)
		if err != nil {
			return fmt.Errorf("loading crosswalk %s: %w", c.cfg.Name, err)
		}
		t.multiple = multiple
	}

	c.tpl.Store(t)
	return nil
}

// Name returns the crosswalk name.
func (c *Crosswalk) Name() string { return c.cfg.Name }

// MIMEType returns the MIME type of the output.
func (c *Crosswalk) MIMEType() string { return c.cfg.MIMEType }

// FileName returns the suggested output file name.
func (c *Crosswalk) FileName() string { return c.cfg.FileName }

// SupportsMultipleItems reports whether a non-empty multiple items template
// is loaded.
func (c *Crosswalk) SupportsMultipleItems() bool { return len(c.tpl.Load().multiple) > 0 }

// TemplatePaths returns the cleaned paths of the configured template files.
func (c *Crosswalk) TemplatePaths() []string {
	paths := []string{filepath.Clean(c.cfg.Template)}
	if c.cfg.MultipleItemsTemplate != "" {
		paths = append(paths, filepath.Clean(c.cfg.MultipleItemsTemplate))
	}
	return paths
}

// Template returns the parsed single record template.
func (c *Crosswalk) Template() []Line { return c.tpl.Load().single }

// MultipleItemsTemplate returns the parsed multi-record template, nil when
// none is configured.
func (c *Crosswalk) MultipleItemsTemplate() []Line { return c.tpl.Load().multiple }

// CanDisseminate reports whether it can be rendered by the crosswalk.
func (c *Crosswalk) CanDisseminate(it *item.Item) bool {
	return it != nil && it.Type == item.TypeItem
}

// Render renders one record, following its relations, and returns the
// post-processed lines.
func (c *Crosswalk) Render(ctx context.Context, it *item.Item) ([]string, error) {
	lines, err := c.renderItem(ctx, c.tpl.Load(), it, true)
	if err != nil {
		return nil, err
	}
	return c.finish(lines), nil
}

// Disseminate renders one record to w.
func (c *Crosswalk) Disseminate(ctx context.Context, it *item.Item, w io.Writer) error {
	lines, err := c.Render(ctx, it)
	if err != nil {
		return err
	}
	return WriteLines(w, lines)
}

// RenderAll renders records through the multiple items template.
//
// Lines without a field are emitted once. The first field line is replaced
// by the lines of every record, rendered with the single record template
// without relations, each prefixed with the text before the marker; the
// text after the marker ends the last line of each record. The records are
// consumed once, so later field lines render nothing.
func (c *Crosswalk) RenderAll(ctx context.Context, records iter.Seq2[*item.Item, error]) ([]string, error) {
	t := c.tpl.Load()
	if len(t.multiple) == 0 {
		return nil, fmt.Errorf("crosswalk %s: %w", c.cfg.Name, ErrMultipleItemsUnsupported)
	}

	var out []string
	consumed := false
	for _, line := range t.multiple {
		if line.Field == "" {
			out = append(out, line.Before)
			continue
		}
		if consumed {
			continue
		}
		consumed = true

		for it, err := range records {
			if err != nil {
				return nil, err
			}
			lines, err := c.renderItem(ctx, t, it, false)
			if err != nil {
				return nil, err
			}
			if len(lines) > 0 {
				lines[len(lines)-1] += line.After
			}
			for _, l := range lines {
				out = append(out, line.Before+l)
			}
		}
	}
	return c.finish(out), nil
}

// DisseminateAll renders records through the multiple items template to w.
func (c *Crosswalk) DisseminateAll(ctx context.Context, records iter.Seq2[*item.Item, error], w io.Writer) error {
	lines, err := c.RenderAll(ctx, records)
	if err != nil {
		return err
	}
	return WriteLines(w, lines)
}

func (c *Crosswalk) renderItem(ctx context.Context, t *templates, it *item.Item, findRelated bool) ([]string, error) {
	if !c.CanDisseminate(it) {
		id := ""
		if it != nil {
			id = it.ID
		}
		return nil, fmt.Errorf("%w: %s", ErrObjectNotSupported, id)
	}
	return c.renderer.Render(ctx, it, t.single, findRelated)
}

func (c *Crosswalk) finish(lines []string) []string {
	if c.postProcess == nil {
		return lines
	}
	return c.postProcess(lines)
}
