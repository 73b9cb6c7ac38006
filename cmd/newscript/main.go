package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

const scriptsDir = "internal/scripts"

const tmpl = `package scripts

import "mirgo/internal/engine"

func init() {
	engine.RegisterComponent("{{.Name}}", func() engine.Component {
		return &{{.Name}}{Speed: 1}
	})
}

type {{.Name}} struct {
	engine.BaseComponent
	Speed  float32
	Target engine.GameObjectRef
}
`

var errBadName = errors.New("script name must be an exported Go identifier")

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: go run ./cmd/newscript <ScriptName>\n")
		fmt.Fprintf(os.Stderr, "Example: go run ./cmd/newscript EnemyChaser\n")
		os.Exit(1)
	}

	name := os.Args[1]
	outPath, err := create(scriptsDir, name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Created %s\n", outPath)
	fmt.Printf("Component %q registered. Fields of exported types are saved in scenes and\n", name)
	fmt.Printf("prefabs; tag a field with `prefab:\"-\"` to keep it runtime only.\n")
}

// create writes the source of a new script component into dir.
func create(dir, name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	outPath := filepath.Join(dir, toSnakeCase(name)+".go")
	if _, err := os.Stat(outPath); err == nil {
		return "", fmt.Errorf("%s already exists", outPath)
	}
	if err := os.WriteFile(outPath, []byte(render(name)), 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return outPath, nil
}

func render(name string) string {
	return strings.ReplaceAll(tmpl, "{{.Name}}", name)
}

func validateName(name string) error {
	if name == "" || !unicode.IsUpper(rune(name[0])) {
		return fmt.Errorf("%w: %q", errBadName, name)
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return fmt.Errorf("%w: %q", errBadName, name)
		}
	}
	return nil
}

func toSnakeCase(s string) string {
	var result []rune
	for i, r := range s {
		if unicode.IsUpper(r) && i > 0 {
			result = append(result, '_')
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}
