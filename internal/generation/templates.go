// Package generation builds prompts for test-case and step-definition
// generation and runs them against JumpStart chat endpoints.
package generation

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

//go:embed prompts/*.txt
var embeddedPrompts embed.FS

// Template file names inside a prompt directory.
const (
	fileTestCaseSystem = "testcase_system.txt"
	fileTestCaseQuery  = "testcase_query.txt"
	fileStepSystem     = "step_system.txt"
	fileStepQuery      = "step_query.txt"
)

// Placeholders substituted by Render.
const (
	placeholderAPI  = "{input_api}"
	placeholderTest = "{input_test}"
)

// Templates holds the system and query prompts for each generation task.
type Templates struct {
	TestCaseSystem string
	TestCaseQuery  string
	StepSystem     string
	StepQuery      string
}

// LoadTemplates reads prompts from dir. Files missing from dir fall back to
// the built-in prompts; an empty dir uses the built-in prompts only.
func LoadTemplates(dir string) (*Templates, error) {
	builtin, err := fs.Sub(embeddedPrompts, "prompts")
	if err != nil {
		return nil, fmt.Errorf("open built-in prompts: %w", err)
	}
	if dir == "" {
		return loadTemplates(builtin, nil)
	}
	return loadTemplates(os.DirFS(dir), builtin)
}

func loadTemplates(primary, fallback fs.FS) (*Templates, error) {
	read := func(name string) (string, error) {
		b, err := fs.ReadFile(primary, name)
		if err != nil && fallback != nil {
			b, err = fs.ReadFile(fallback, name)
		}
		if err != nil {
			return "", fmt.Errorf("read prompt %s: %w", name, err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	var t Templates
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{fileTestCaseSystem, &t.TestCaseSystem},
		{fileTestCaseQuery, &t.TestCaseQuery},
		{fileStepSystem, &t.StepSystem},
		{fileStepQuery, &t.StepQuery},
	} {
		s, err := read(f.name)
		if err != nil {
			return nil, err
		}
		*f.dst = s
	}
	return &t, nil
}

// Render substitutes the API specification and test case into a prompt.
func Render(prompt, apiSpec, testCase string) string {
	return strings.NewReplacer(placeholderAPI, apiSpec, placeholderTest, testCase).Replace(prompt)
}
