package crosswalk

import (
	"context"
	"log/slog"

	"github.com/lehigh-university-libraries/refer/discovery"
	"github.com/lehigh-university-libraries/refer/item"
	"github.com/lehigh-university-libraries/refer/virtual"
)

// Renderer expands parsed template lines for one record.
//
// A Renderer holds no per-call state and may be shared between goroutines.
type Renderer struct {
	// Virtual resolves virtual fields; virtual.Default() when nil.
	Virtual virtual.Resolver
	// Configurations and Searcher find the records of relation groups.
	// Relation groups render nothing when either is nil.
	Configurations discovery.ConfigurationService
	Searcher       discovery.Searcher
	// Converter, when set, rewrites every value before substitution.
	Converter func(string) string
	// StrictGroups turns metadata group cardinality mismatches into
	// ErrGroupCardinality instead of a warning.
	StrictGroups bool
	Logger       *slog.Logger
}

// Render expands lines for it. Relation groups are only expanded when
// findRelated is set. The returned slice is owned by the caller.
func (r *Renderer) Render(ctx context.Context, it *item.Item, lines []Line, findRelated bool) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); {
		line := lines[i]
		switch line.Kind {
		case MetadataGroupStart:
			body, next := groupBody(lines, i, MetadataGroupEnd)
			rendered, err := r.metadataGroup(ctx, it, line.Group, body)
			if err != nil {
				return nil, err
			}
			out = append(out, rendered...)
			i = next
			continue

		case RelationGroupStart:
			body, next := groupBody(lines, i, RelationGroupEnd)
			if findRelated {
				rendered, err := r.relationGroup(ctx, it, line.Group, body)
				if err != nil {
					return nil, err
				}
				out = append(out, rendered...)
			}
			i = next
			continue
		}

		out = r.appendLine(ctx, out, it, line)
		i++
	}
	return out, nil
}

// appendLine renders a line outside of any group. End markers without a
// matching start render nothing, and placeholder values are skipped.
func (r *Renderer) appendLine(ctx context.Context, out []string, it *item.Item, line Line) []string {
	switch {
	case line.Kind == Literal:
		return append(out, line.Before)
	case line.HasValue():
		for _, v := range r.values(ctx, it, line) {
			if v == item.PlaceholderParentMetadataValue {
				continue
			}
			out = append(out, r.format(line, v))
		}
	}
	return out
}

// values resolves the values of a field line, in resolver order.
func (r *Renderer) values(ctx context.Context, it *item.Item, line Line) []string {
	if line.Kind != VirtualField {
		return it.Values(line.Field)
	}
	f, ok := r.resolver().Get(line.Virtual)
	if !ok {
		r.logger().Warn("virtual field not registered", "field", line.Field, "item", it.ID)
		return nil
	}
	return f.Values(ctx, it, line.Call)
}

func (r *Renderer) format(line Line, v string) string {
	if r.Converter != nil {
		v = r.Converter(v)
	}
	return line.Before + v + line.After
}

func (r *Renderer) resolver() virtual.Resolver {
	if r.Virtual == nil {
		return virtual.Default()
	}
	return r.Virtual
}

func (r *Renderer) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}
