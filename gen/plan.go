// Package gen renders installation plans without running them.
package gen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/aexvir/provision"
)

// Format of a rendered plan.
type Format string

const (
	// Text is a human readable numbered list.
	Text Format = "text"
	// JSON is an array of [PlanStep].
	JSON Format = "json"
	// Shell is a posix shell script doing the same as the plan.
	Shell Format = "sh"
)

// Formats lists every supported format.
var Formats = []Format{Text, JSON, Shell}

// ParseFormat validates a user provided format name.
func ParseFormat(name string) (Format, error) {
	for _, format := range Formats {
		if string(format) == strings.ToLower(strings.TrimSpace(name)) {
			return format, nil
		}
	}
	return "", fmt.Errorf("unknown plan format %q, expected one of text, json, sh", name)
}

// PlanStep is the serializable description of a step.
type PlanStep struct {
	Index       int        `json:"index"`
	Name        string     `json:"name"`
	Dir         string     `json:"dir,omitempty"`
	Commands    [][]string `json:"commands,omitempty"`
	Description string     `json:"description,omitempty"`
}

// Describe converts steps to their serializable form, numbered from 1.
func Describe(steps []provision.Step) []PlanStep {
	described := make([]PlanStep, 0, len(steps))
	for i, step := range steps {
		described = append(described, PlanStep{
			Index:       i + 1,
			Name:        step.Name,
			Dir:         step.Dir,
			Commands:    step.Commands,
			Description: step.Description,
		})
	}
	return described
}

// Render writes steps to w in the given format.
func Render(w io.Writer, steps []provision.Step, format Format) error {
	switch format {
	case Text:
		return text(w, Describe(steps))
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(Describe(steps))
	case Shell:
		return script(w, Describe(steps))
	default:
		return fmt.Errorf("unknown plan format %q", format)
	}
}

// WritePlan renders steps into the file at path, creating missing parent directories.
func WritePlan(path string, steps []provision.Step, format Format) error {
	buf := new(bytes.Buffer)
	if err := Render(buf, steps, format); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	mode := os.FileMode(0o644)
	if format == Shell {
		mode = 0o755
	}

	if err := os.WriteFile(path, buf.Bytes(), mode); err != nil {
		return fmt.Errorf("failed to write plan file: %w", err)
	}

	provision.LogStep(fmt.Sprintf("wrote %d steps to %s", len(steps), path))
	return nil
}

func text(w io.Writer, steps []PlanStep) error {
	for _, step := range steps {
		fmt.Fprintf(w, "%2d. %s\n", step.Index, step.Name)
		if step.Description != "" {
			fmt.Fprintf(w, "    %s\n", step.Description)
		}
		if step.Dir != "" {
			fmt.Fprintf(w, "    in %s\n", step.Dir)
		}
		for _, argv := range step.Commands {
			line, err := quote(argv)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "    $ %s\n", line)
		}
	}
	return nil
}

func script(w io.Writer, steps []PlanStep) error {
	fmt.Fprintln(w, "#!/bin/sh")
	fmt.Fprintln(w, "# generated by talib-setup plan")
	fmt.Fprintln(w, "set -e")

	cwd := ""
	for _, step := range steps {
		fmt.Fprintf(w, "\n# %d. %s\n", step.Index, step.Name)

		// mkdir has to run before cd into the directory it creates
		if step.Dir != "" && step.Dir != cwd && !creates(step) {
			dir, err := syntax.Quote(step.Dir, syntax.LangPOSIX)
			if err != nil {
				return fmt.Errorf("step %s: %w", step.Name, err)
			}
			fmt.Fprintf(w, "cd %s\n", dir)
			cwd = step.Dir
		}

		for _, argv := range step.Commands {
			line, err := quote(argv)
			if err != nil {
				return fmt.Errorf("step %s: %w", step.Name, err)
			}
			fmt.Fprintln(w, line)
		}
	}

	return nil
}

func creates(step PlanStep) bool {
	return len(step.Commands) == 1 && len(step.Commands[0]) == 3 &&
		step.Commands[0][0] == "mkdir" && step.Commands[0][2] == step.Dir
}

// quote joins argv into a line a posix shell splits back into the same words.
func quote(argv []string) (string, error) {
	words := make([]string, 0, len(argv))
	for _, arg := range argv {
		word, err := syntax.Quote(arg, syntax.LangPOSIX)
		if err != nil {
			return "", err
		}
		words = append(words, word)
	}
	return strings.Join(words, " "), nil
}
