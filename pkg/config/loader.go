package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Common errors for configuration loading.
var (
	ErrFileNotFound     = errors.New("configuration file not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidYAML      = errors.New("invalid YAML syntax")
	ErrEmptyFile        = errors.New("configuration file is empty")
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// LoadFromFile reads a service file, expands environment variables, loads
// its includes and applies defaults. The result is not validated.
func LoadFromFile(path string) (*ServiceConfig, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := parse(data, path)
	if err != nil {
		return nil, err
	}
	cfg.path = filepath.Clean(path)

	if err := cfg.loadIncludes(filepath.Dir(cfg.path)); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Parse decodes a service file from memory and applies defaults. Include
// patterns are kept but not loaded.
func Parse(data []byte) (*ServiceConfig, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}
	cfg, err := parse(data, "input")
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func parse(data []byte, name string) (*ServiceConfig, error) {
	var cfg ServiceConfig
	if err := decodeYAML(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w in %s: %v", ErrInvalidYAML, name, err)
	}
	return &cfg, nil
}

// decodeYAML expands environment variables and decodes strictly, so a
// misspelled key is reported instead of silently ignored.
func decodeYAML(data []byte, out any) error {
	dec := yaml.NewDecoder(strings.NewReader(ExpandEnvVars(string(data))))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}
	return data, nil
}

// loadIncludes appends the operations of every included file, in pattern
// order and then lexical file order.
func (c *ServiceConfig) loadIncludes(baseDir string) error {
	for _, pattern := range c.Include {
		resolved := ResolvePath(baseDir, pattern)
		matches, err := expandGlob(resolved)
		if err != nil {
			return fmt.Errorf("invalid include pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 && !hasGlobMeta(pattern) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, resolved)
		}

		for _, file := range matches {
			file = filepath.Clean(file)
			if samePath(file, c.path) || slices.ContainsFunc(c.files, func(f string) bool { return samePath(f, file) }) {
				continue
			}
			data, err := readFile(file)
			if err != nil {
				return err
			}
			var inc operationsFile
			if err := decodeYAML(data, &inc); err != nil {
				return fmt.Errorf("%w in %s: %v", ErrInvalidYAML, file, err)
			}
			c.Operations = append(c.Operations, inc.Operations...)
			c.files = append(c.files, file)
		}
	}
	return nil
}

// samePath reports whether a and b name the same file once made absolute.
func samePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// Files returns the service file followed by every included file.
func (c *ServiceConfig) Files() []string {
	var out []string
	if c.path != "" {
		out = append(out, c.path)
	}
	return append(out, c.files...)
}

// expandGlob expands a glob pattern to a sorted list of matching file paths.
// Uses doublestar for ** support, falls back to filepath.Glob for simple patterns.
func expandGlob(pattern string) ([]string, error) {
	var (
		matches []string
		err     error
	)
	if strings.Contains(pattern, "**") {
		matches, err = doublestar.FilepathGlob(pattern)
	} else {
		matches, err = filepath.Glob(pattern)
	}
	if err != nil {
		return nil, err
	}
	slices.Sort(matches)
	return matches, nil
}

func hasGlobMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// ResolvePath resolves a potentially relative path against a base directory.
func ResolvePath(basePath, targetPath string) string {
	if filepath.IsAbs(targetPath) {
		return targetPath
	}
	if strings.HasPrefix(targetPath, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, targetPath[2:])
		}
	}
	return filepath.Join(basePath, targetPath)
}

// ExpandEnvVars expands environment variables in the input string.
// Supports ${VAR_NAME} and ${VAR_NAME:-default} syntax.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		submatch := envVarPattern.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}
		if val := os.Getenv(submatch[1]); val != "" {
			return val
		}
		if len(submatch) >= 3 {
			return submatch[2]
		}
		return ""
	})
}
