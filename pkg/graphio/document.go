// Package graphio reads operator graph documents and writes schedule documents.
//
// A graph document is YAML or JSON:
//
//	name: l2svm
//	nodes:
//	  - id: 1
//	    name: X
//	    op: read
//	    memory: 8MiB
//	  - id: 2
//	    name: tX
//	    op: r'
//	    inputs: [1]
//
// The order of nodes in the document is the graph's enumeration order.
package graphio

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/dagline/pkg/opgraph"
)

//go:embed schema.json
var schemaJSON []byte

// ErrInvalidDocument is wrapped by every decode failure.
var ErrInvalidDocument = errors.New("invalid graph document")

// ValidationError lists the schema violations of a document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidDocument, strings.Join(e.Problems, "; "))
}

// Unwrap returns ErrInvalidDocument.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidDocument
}

// Document is a decoded graph document.
type Document struct {
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Nodes []Node `json:"nodes"          yaml:"nodes"`
}

// Node is one operator in a Document.
type Node struct {
	Level  *int       `json:"level,omitempty"  yaml:"level,omitempty"`
	Name   string     `json:"name,omitempty"   yaml:"name,omitempty"`
	Op     string     `json:"op,omitempty"     yaml:"op,omitempty"`
	Inputs []int64    `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	ID     int64      `json:"id"               yaml:"id"`
	Memory MemorySize `json:"memory"           yaml:"memory"`
}

// Schema returns the embedded JSON schema of graph documents.
func Schema() []byte {
	return schemaJSON
}

// ReadFile reads and decodes the graph document at path.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph document: %w", err)
	}

	doc, decodeErr := Decode(data)
	if decodeErr != nil {
		return nil, fmt.Errorf("%s: %w", path, decodeErr)
	}

	return doc, nil
}

// Decode validates data against the document schema and decodes it.
func Decode(data []byte) (*Document, error) {
	var raw any

	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	problems, checkErr := Check(raw)
	if checkErr != nil {
		return nil, checkErr
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	var doc Document

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	return &doc, nil
}

// Check validates a generic decoded document against the schema and returns
// one line per violation.
func Check(raw any) ([]string, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(raw),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if result.Valid() {
		return nil, nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", verr.Field(), verr.Description()))
	}

	return problems, nil
}

// Build turns the document into a validated graph.
func (d *Document) Build() (*opgraph.Graph, error) {
	b := opgraph.NewBuilder()

	for _, n := range d.Nodes {
		addErr := b.AddNode(opgraph.NodeSpec{
			ID:           n.ID,
			Name:         n.Name,
			Op:           n.Op,
			Inputs:       n.Inputs,
			Level:        n.Level,
			OutputMemory: float64(n.Memory),
		})
		if addErr != nil {
			return nil, fmt.Errorf("graph %q: %w", d.Name, addErr)
		}
	}

	g, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("graph %q: %w", d.Name, err)
	}

	return g, nil
}

// FromGraph converts a graph back into a document. Levels are written explicitly.
func FromGraph(name string, g *opgraph.Graph) *Document {
	doc := &Document{Name: name, Nodes: make([]Node, g.Len())}

	for i := range g.Len() {
		n := g.Node(i)
		level := n.Level

		doc.Nodes[i] = Node{
			ID:     n.ID,
			Name:   n.Name,
			Op:     n.Op,
			Inputs: g.IDs(n.Inputs),
			Level:  &level,
			Memory: MemorySize(n.OutputMemory),
		}
	}

	return doc
}
