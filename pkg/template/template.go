// Package template expands run-step commands with job variables and process
// environment values before execution.
package template

import (
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"
)

// RenderCommand expands a run command. Job variables are reachable as
// {{.variables.name}} and process environment values as {{.env.NAME}}.
// Commands without template markers pass through untouched.
func RenderCommand(command string, variables map[string]any) (string, error) {
	if !strings.Contains(command, "{{") {
		return command, nil
	}

	data := map[string]any{
		"variables": variables,
		"vars":      variables,
		"env":       getEnvVars(),
	}

	return render(command, data)
}

func render(templateStr string, data any) (string, error) {
	tmpl, err := template.
		New("command").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
		}).Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	return buf.String(), nil
}

func getEnvVars() map[string]string {
	envVars := make(map[string]string)

	for _, envVar := range os.Environ() {
		parts := strings.SplitN(envVar, "=", 2)
		if len(parts) == 2 {
			envVars[parts[0]] = parts[1]
		}
	}

	return envVars
}
