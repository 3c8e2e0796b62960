// Package dot renders patches as Graphviz documents.
package dot

import (
	"bytes"
	"embed"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/vsariola/modsynth"
)

type Exporter struct {
	Template *template.Template
	Name     string // graph name, "modsynth" if empty
}

//go:embed templates/*
var templateFS embed.FS

// New returns an exporter using the default template.
func New(name string) (*Exporter, error) {
	tmpl, err := template.New("base").Funcs(sprig.TxtFuncMap()).ParseFS(templateFS, "templates/*.dot")
	if err != nil {
		return nil, fmt.Errorf(`could not create templates: %v`, err)
	}
	return &Exporter{Template: tmpl, Name: name}, nil
}

// NewFromTemplates returns an exporter using the templates in a directory,
// which must include patch.dot.
func NewFromTemplates(name, templateDirectory string) (*Exporter, error) {
	globPtrn := filepath.Join(templateDirectory, "*.dot")
	tmpl, err := template.New("base").Funcs(sprig.TxtFuncMap()).ParseGlob(globPtrn)
	if err != nil {
		return nil, fmt.Errorf(`could not create template based on directory "%v": %v`, templateDirectory, err)
	}
	return &Exporter{Template: tmpl, Name: name}, nil
}

type patchMacros struct {
	Name  string
	Patch modsynth.Patch
}

// Label is the node label of a module: its id, kind and parameters, one per
// line.
func (m *patchMacros) Label(s modsynth.ModuleSpec) string {
	lines := []string{string(s.ID), "(" + string(s.Kind) + ")"}
	for _, c := range s.Changes() {
		lines = append(lines, fmt.Sprintf("%s = %v", c.Name, c.Value))
	}
	return strings.Join(lines, "\n")
}

func (m *patchMacros) IsCV(c modsynth.Connection) bool {
	return c.Normalized().IsCV()
}

// Patch renders the patch as a dot document.
func (e *Exporter) Patch(p modsynth.Patch) (string, error) {
	var buf bytes.Buffer
	data := &patchMacros{Name: e.Name, Patch: p}
	if err := e.Template.ExecuteTemplate(&buf, "patch.dot", data); err != nil {
		return "", fmt.Errorf(`could not execute template "patch.dot": %v`, err)
	}
	return buf.String(), nil
}
