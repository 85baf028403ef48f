package config

import (
	"context"
	"fmt"
	"strings"

	domain "github.com/ahrav/drivescan/internal/domain/scanning"
)

// PatternSpec is one custom pattern definition.
type PatternSpec struct {
	Name  string `yaml:"name"`
	Shape string `yaml:"shape"`
}

// PatternFile is the document read from patterns_file.
type PatternFile struct {
	Patterns []PatternSpec `yaml:"patterns"`
}

// Loader provides pattern definition loading. It abstracts the source of the
// definitions to allow for different implementations like files or embedded
// defaults.
type Loader interface {
	// Load retrieves and parses the pattern definitions from the underlying
	// source.
	Load(ctx context.Context) (*PatternFile, error)
}

// ResolvePatterns compiles the named built-in templates followed by every
// definition from loader, which may be nil. Names must be unique across both.
func ResolvePatterns(
	ctx context.Context,
	builtins []string,
	loader Loader,
	classifier *domain.Classifier,
) ([]domain.PatternTemplate, error) {
	specs := make([]PatternSpec, 0, len(builtins))
	for _, name := range builtins {
		shape, ok := domain.BuiltinShapes[name]
		if !ok {
			return nil, fmt.Errorf("unknown built-in pattern %q (available: %s)", name, builtinNames())
		}
		specs = append(specs, PatternSpec{Name: name, Shape: shape})
	}

	if loader != nil {
		file, err := loader.Load(ctx)
		if err != nil {
			return nil, err
		}
		specs = append(specs, file.Patterns...)
	}

	seen := make(map[string]struct{}, len(specs))
	templates := make([]domain.PatternTemplate, 0, len(specs))
	for i, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("pattern definition %d has no name", i)
		}
		if _, dup := seen[spec.Name]; dup {
			return nil, fmt.Errorf("duplicate pattern name %q", spec.Name)
		}
		seen[spec.Name] = struct{}{}

		tmpl, err := domain.NewPatternTemplate(spec.Name, spec.Shape, classifier)
		if err != nil {
			return nil, err
		}
		templates = append(templates, tmpl)
	}
	if len(templates) == 0 {
		return nil, ErrNoPatterns
	}
	return templates, nil
}

func builtinNames() string {
	return strings.Join([]string{
		domain.PatternSSNExpanded,
		domain.PatternSSNCompact,
		domain.PatternCCCompact,
		domain.PatternCCExpanded,
	}, ", ")
}
