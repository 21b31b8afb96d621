package crosswalk

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/lehigh-university-libraries/refer/virtual"
)

var (
	// ErrTemplateNotFound is returned when a template file does not exist.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrUnbalancedGroup is returned for group markers that are not closed,
	// closed without being opened, or nested.
	ErrUnbalancedGroup = errors.New("unbalanced group marker")
)

// UnknownVirtualFieldError reports a template referencing a virtual field
// that is not registered.
type UnknownVirtualFieldError struct {
	Template string
	Name     string
	Line     int
}

func (e *UnknownVirtualFieldError) Error() string {
	return fmt.Sprintf("unknown virtual field found in the template %s (line %d): %q", e.Template, e.Line, e.Name)
}

// maxLineSize bounds a single template line.
const maxLineSize = 1024 * 1024

// LoadOptions configures template parsing.
type LoadOptions struct {
	Vocabulary Vocabulary
	// Virtual resolves virtual field names; virtual.Default() when nil.
	Virtual virtual.Resolver
}

// LoadTemplate reads and parses a template file.
func LoadTemplate(path string, opts LoadOptions) ([]Line, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrTemplateNotFound, err)
		}
		return nil, fmt.Errorf("opening template: %w", err)
	}
	defer f.Close()

	return ParseTemplate(f, path, opts)
}

// ParseTemplate parses template lines from r. name identifies the template
// in errors.
func ParseTemplate(r io.Reader, name string, opts LoadOptions) ([]Line, error) {
	vocab := opts.Vocabulary.withDefaults()
	resolver := opts.Virtual
	if resolver == nil {
		resolver = virtual.Default()
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var lines []Line
	for scanner.Scan() {
		line := parseLine(scanner.Text(), vocab)
		if line.Kind == VirtualField {
			if _, ok := resolver.Get(line.Virtual); !ok {
				return nil, &UnknownVirtualFieldError{Template: name, Name: line.Virtual, Line: len(lines) + 1}
			}
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading template %s: %w", name, err)
	}

	if err := checkGroups(lines, name); err != nil {
		return nil, err
	}
	return lines, nil
}

// checkGroups verifies group markers pair up without nesting.
func checkGroups(lines []Line, name string) error {
	open := -1
	for i, line := range lines {
		switch line.Kind {
		case MetadataGroupStart, RelationGroupStart:
			if open >= 0 {
				return fmt.Errorf("%w: %s line %d: %s opened inside the group of line %d", ErrUnbalancedGroup, name, i+1, line.Field, open+1)
			}
			if line.Group == "" {
				return fmt.Errorf("%w: %s line %d: group without a name", ErrUnbalancedGroup, name, i+1)
			}
			open = i
		case MetadataGroupEnd, RelationGroupEnd:
			if open < 0 {
				return fmt.Errorf("%w: %s line %d: %s closes no group", ErrUnbalancedGroup, name, i+1, line.Field)
			}
			start := lines[open]
			if start.Kind+1 != line.Kind || (line.Group != "" && line.Group != start.Group) {
				return fmt.Errorf("%w: %s line %d: %s does not close %s", ErrUnbalancedGroup, name, i+1, line.Field, start.Field)
			}
			open = -1
		}
	}
	if open >= 0 {
		return fmt.Errorf("%w: %s line %d: %s is never closed", ErrUnbalancedGroup, name, open+1, lines[open].Field)
	}
	return nil
}
