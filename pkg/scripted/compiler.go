package scripted

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Compiler compiles expressions and caches the programs. A Compiler is safe
// for concurrent use and may be shared across rebuilds of the same service.
type Compiler struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// NewCompiler returns an empty Compiler.
func NewCompiler() *Compiler {
	return &Compiler{cache: make(map[string]*vm.Program)}
}

// Compile returns the program for expression checked against env. Programs
// are cached by expression, env signature and whether a boolean is required.
func (c *Compiler) Compile(expression string, env map[string]any, wantBool bool) (*vm.Program, error) {
	key := expression + "\x00" + envSignature(env)
	if wantBool {
		key += "\x00bool"
	}

	c.mu.RLock()
	if program, ok := c.cache[key]; ok {
		c.mu.RUnlock()
		return program, nil
	}
	c.mu.RUnlock()

	opts := []expr.Option{expr.Env(env)}
	if wantBool {
		opts = append(opts, expr.AsBool())
	}
	program, err := expr.Compile(expression, opts...)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expression, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.cache[key]; ok {
		return existing, nil
	}
	c.cache[key] = program
	return program, nil
}

// Len returns the number of cached programs.
func (c *Compiler) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func envSignature(env map[string]any) string {
	if len(env) == 0 {
		return ""
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+":"+fmt.Sprintf("%T", env[k]))
	}
	return strings.Join(parts, ",")
}
