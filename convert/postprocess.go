package convert

import (
	"fmt"
	"sort"
	"strings"
)

// PostProcessor rewrites a rendered line list. It returns a new slice and
// leaves its input untouched.
type PostProcessor func([]string) []string

// Pipeline composes post-processors left to right. Nil entries are skipped.
func Pipeline(pps ...PostProcessor) PostProcessor {
	var active []PostProcessor
	for _, pp := range pps {
		if pp != nil {
			active = append(active, pp)
		}
	}
	if len(active) == 0 {
		return nil
	}
	return func(lines []string) []string {
		out := lines
		for _, pp := range active {
			out = pp(out)
		}
		return out
	}
}

// DropBlank removes lines that are empty or whitespace only.
func DropBlank(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

// TrimTrailingSpace removes trailing whitespace from every line.
func TrimTrailingSpace(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.TrimRight(l, " \t")
	}
	return out
}

// BibtexTrailingComma removes the comma after the last field of every
// BibTeX entry, i.e. on the last non-blank line before a closing "}" line.
func BibtexTrailingComma(lines []string) []string {
	out := make([]string, len(lines))
	copy(out, lines)
	for i, l := range out {
		if strings.TrimSpace(l) != "}" {
			continue
		}
		for j := i - 1; j >= 0; j-- {
			trimmed := strings.TrimRight(out[j], " \t")
			if trimmed == "" {
				continue
			}
			if strings.HasSuffix(trimmed, ",") {
				out[j] = strings.TrimSuffix(trimmed, ",")
			}
			break
		}
	}
	return out
}

// Dedupe collapses runs of identical consecutive lines.
func Dedupe(lines []string) []string {
	out := make([]string, 0, len(lines))
	for i, l := range lines {
		if i > 0 && l == lines[i-1] {
			continue
		}
		out = append(out, l)
	}
	return out
}

var postProcessors = map[string]PostProcessor{
	"dedupe":                Dedupe,
	"drop-blank":            DropBlank,
	"trim-trailing-space":   TrimTrailingSpace,
	"bibtex-trailing-comma": BibtexTrailingComma,
}

// LookupPostProcessor returns a named post-processor.
func LookupPostProcessor(name string) (PostProcessor, error) {
	pp, ok := postProcessors[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown post-processor: %s", name)
	}
	return pp, nil
}

// BuildPostProcessor pipes the named post-processors. No names yields nil.
func BuildPostProcessor(names []string) (PostProcessor, error) {
	pps := make([]PostProcessor, 0, len(names))
	for _, name := range names {
		pp, err := LookupPostProcessor(name)
		if err != nil {
			return nil, err
		}
		pps = append(pps, pp)
	}
	return Pipeline(pps...), nil
}

// PostProcessorNames returns the post-processor names, sorted.
func PostProcessorNames() []string {
	names := make([]string, 0, len(postProcessors))
	for name := range postProcessors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
