// Package backend resolves which AI CLI VoxTerm wraps: one of the
// built-in presets (codex, claude, gemini, aider, opencode) or a
// custom command line the operator supplies, split into argv with
// shell-word rules (github.com/google/shlex) rather than a naive
// strings.Fields that would mishandle quoted arguments.
package backend

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/shlex"

	"github.com/voxterm/voxterm/internal/config"
)

// Backend describes one wrapped CLI: how to launch it, and the prompt
// regex and idle/thinking heuristics VoxTerm uses to decide when it is
// ready for input.
type Backend struct {
	Name    string
	Command string
	Args    []string

	// PromptPattern matches the CLI's input-ready prompt line, or nil
	// if this backend relies on the rolling-window auto-learner.
	PromptPattern *regexp.Regexp

	// ThinkingPattern matches a line the backend emits while it is
	// computing a response (e.g. a spinner or "Thinking..." banner). It
	// is carried on the Backend only; neither the prompt tracker nor
	// transcript delivery consults it.
	ThinkingPattern *regexp.Regexp
}

// Registry holds the built-in backend presets plus any custom backend
// resolved from a user-supplied command string.
type Registry struct {
	builtins map[string]Backend
}

// NewRegistry returns a Registry seeded with VoxTerm's built-in
// backend presets.
func NewRegistry() *Registry {
	r := &Registry{builtins: map[string]Backend{}}
	for _, b := range builtinBackends() {
		r.builtins[strings.ToLower(b.Name)] = b
	}
	return r
}

func builtinBackends() []Backend {
	return []Backend{
		{
			Name:          "codex",
			Command:       "codex",
			PromptPattern: regexp.MustCompile(`(?m)^▌\s*$`),
		},
		{
			Name:            "claude",
			Command:         "claude",
			PromptPattern:   regexp.MustCompile(`(?m)^>\s*$`),
			ThinkingPattern: regexp.MustCompile(`(?m)^\s*(Thinking|Pondering|Working)…?\s*$`),
		},
		{
			Name:          "gemini",
			Command:       "gemini",
			PromptPattern: regexp.MustCompile(`(?m)^>\s*$`),
		},
		{
			Name:          "aider",
			Command:       "aider",
			PromptPattern: regexp.MustCompile(`(?m)^>\s*$`),
		},
		{
			Name:          "opencode",
			Command:       "opencode",
			PromptPattern: regexp.MustCompile(`(?m)^>\s*$`),
		},
	}
}

// Lookup resolves name against the built-in presets case-insensitively.
func (r *Registry) Lookup(name string) (Backend, bool) {
	b, ok := r.builtins[strings.ToLower(name)]
	return b, ok
}

// ResolveCustom splits an operator-supplied command line into a
// Backend using shell-style quoting rules, with no configured prompt
// pattern (the event loop falls back to the auto-learner for custom
// backends unless --prompt-regex is also given).
func ResolveCustom(commandLine string) (Backend, error) {
	argv, err := shlex.Split(commandLine)
	if err != nil {
		return Backend{}, fmt.Errorf("parse custom backend command: %w", err)
	}
	if len(argv) == 0 {
		return Backend{}, fmt.Errorf("custom backend command is empty")
	}
	return Backend{Name: argv[0], Command: argv[0], Args: argv[1:]}, nil
}

// CombineCodexArgs appends extra CLI-supplied arguments to a codex
// preset's own argv, validated against the configured size limits
// before being handed to exec.Command.
func CombineCodexArgs(base Backend, extra []string) ([]string, error) {
	combined := append(append([]string(nil), base.Args...), extra...)
	if err := config.ValidateCodexArgs(combined); err != nil {
		return nil, err
	}
	return combined, nil
}
