//go:build property
// +build property

package crosswalk

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/lehigh-university-libraries/refer/item"
)

func parseProperty(lines []string) ([]Line, error) {
	return ParseTemplate(strings.NewReader(strings.Join(lines, "\n")+"\n"), "property", LoadOptions{})
}

// TestRenderProperties tests template rendering properties
func TestRenderProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	r := &Renderer{}

	// Property: templates without markers render verbatim
	properties.Property("literal templates render verbatim", prop.ForAll(
		func(lines []string) bool {
			if len(lines) == 0 {
				return true
			}
			parsed, err := parseProperty(lines)
			if err != nil {
				return false
			}
			got, err := r.Render(context.Background(), item.New("x"), parsed, true)
			if err != nil {
				return false
			}
			return reflect.DeepEqual(got, lines)
		},
		gen.SliceOf(gen.RegexMatch(`^[a-zA-Z0-9 ,.;:{}<>=-]{0,20}$`)),
	))

	// Property: a single valued field renders before + value + after
	properties.Property("single value substitution", prop.ForAll(
		func(before, after, value string) bool {
			it := item.New("x")
			if err := it.Add("dc.title", value, ""); err != nil {
				return false
			}
			parsed, err := parseProperty([]string{before + "@dc.title@" + after})
			if err != nil {
				return false
			}
			got, err := r.Render(context.Background(), it, parsed, true)
			if err != nil {
				return false
			}
			return len(got) == 1 && got[0] == before+value+after
		},
		gen.RegexMatch(`^[a-zA-Z ,;:{}=-]{0,10}$`),
		gen.RegexMatch(`^[a-zA-Z ,;:{}=-]{0,10}$`),
		gen.AlphaString(),
	))

	// Property: fields without values render no line
	properties.Property("missing fields render nothing", prop.ForAll(
		func(before, after string) bool {
			parsed, err := parseProperty([]string{before + "@dc.description.abstract@" + after})
			if err != nil {
				return false
			}
			got, err := r.Render(context.Background(), item.New("x"), parsed, true)
			return err == nil && len(got) == 0
		},
		gen.RegexMatch(`^[a-zA-Z ,;:{}=-]{0,10}$`),
		gen.RegexMatch(`^[a-zA-Z ,;:{}=-]{0,10}$`),
	))

	// Property: rendering is idempotent
	properties.Property("render idempotence", prop.ForAll(
		func(values []string) bool {
			it := item.New("x")
			for _, v := range values {
				if err := it.Add("dc.contributor.author", v, ""); err != nil {
					return false
				}
			}
			parsed, err := parseProperty([]string{
				"@group.dc.contributor.author.start@",
				"AU  - @dc.contributor.author@",
				"@group.end@",
				"ER  -",
			})
			if err != nil {
				return false
			}
			first, err1 := r.Render(context.Background(), it, parsed, true)
			second, err2 := r.Render(context.Background(), it, parsed, true)
			return err1 == nil && err2 == nil && reflect.DeepEqual(first, second) && len(first) == len(values)+1
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
