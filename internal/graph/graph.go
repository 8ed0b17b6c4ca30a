// Package graph renders the resource dependency graph of a synthesized
// template in DOT or Mermaid format.
package graph

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/emicklei/dot"

	logexport "github.com/lex00/logexport-aws-go"
	"github.com/lex00/logexport-aws-go/internal/template"
)

// Format specifies the output format for the graph.
type Format string

const (
	// FormatDOT outputs Graphviz DOT format.
	FormatDOT Format = "dot"
	// FormatMermaid outputs Mermaid format for GitHub/markdown rendering.
	FormatMermaid Format = "mermaid"
)

// ParseFormat maps a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatDOT:
		return FormatDOT, nil
	case FormatMermaid:
		return FormatMermaid, nil
	default:
		return "", fmt.Errorf("unknown graph format %q (want dot or mermaid)", s)
	}
}

// Generator creates dependency graphs from templates.
type Generator struct {
	// IncludeOutputs adds a node per template output.
	IncludeOutputs bool

	// Format specifies the output format (dot or mermaid). Defaults to dot.
	Format Format

	// ClusterByType groups resources by AWS service.
	ClusterByType bool
}

// Generate creates a dependency graph and writes it to w.
func (g *Generator) Generate(t *logexport.Template, w io.Writer) error {
	graph := g.buildGraph(t)

	format := g.Format
	if format == "" {
		format = FormatDOT
	}

	var output string
	if format == FormatMermaid {
		output = dot.MermaidGraph(graph, dot.MermaidTopToBottom)
	} else {
		output = graph.String()
	}

	_, err := io.WriteString(w, output)
	return err
}

// GenerateString is a convenience method that returns the graph as a string.
func (g *Generator) GenerateString(t *logexport.Template) (string, error) {
	var sb strings.Builder
	if err := g.Generate(t, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (g *Generator) buildGraph(t *logexport.Template) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "TB")

	graph.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})

	graph.EdgeInitializer(func(e dot.Edge) {
		e.Attr("fontname", "Arial")
		e.Attr("fontsize", "10")
	})

	names := sortedResources(t)

	nodes := make(map[string]dot.Node, len(names))
	if g.ClusterByType {
		g.addClusteredNodes(graph, t, names, nodes)
	} else {
		for _, name := range names {
			nodes[name] = addNode(graph, name, t.Resources[name].Type)
		}
	}

	for _, name := range names {
		def := t.Resources[name]
		getAtt := getAttTargets(def.Properties)
		for _, dep := range template.Dependencies(def) {
			to, ok := nodes[dep]
			if !ok {
				continue
			}
			e := graph.Edge(nodes[name], to)
			if getAtt[dep] {
				e.Attr("color", "blue")
			}
		}
	}

	if g.IncludeOutputs {
		outputs := make([]string, 0, len(t.Outputs))
		for name := range t.Outputs {
			outputs = append(outputs, name)
		}
		sort.Strings(outputs)

		for _, name := range outputs {
			n := graph.Node("output_" + name)
			n.Attr("shape", "ellipse")
			n.Attr("style", "dashed")
			n.Label(name)
			for _, ref := range template.References(t.Outputs[name].Value) {
				if to, ok := nodes[ref.Target]; ok {
					e := graph.Edge(n, to)
					e.Attr("style", "dashed")
				}
			}
		}
	}

	return graph
}

// getAttTargets returns the resources referenced through an attribute
// (Fn::GetAtt or ${Name.Attr}), which are drawn as blue edges.
func getAttTargets(props map[string]any) map[string]bool {
	targets := make(map[string]bool)
	for _, ref := range template.References(props) {
		if ref.Attribute != "" {
			targets[ref.Target] = true
		}
	}
	return targets
}

func addNode(graph *dot.Graph, name, cfType string) dot.Node {
	n := graph.Node(name)
	n.Label(name + "\\n[" + cfType + "]")
	return n
}

// addClusteredNodes groups resources by AWS service. A service with a single
// resource gets no cluster.
func (g *Generator) addClusteredNodes(graph *dot.Graph, t *logexport.Template, names []string, nodes map[string]dot.Node) {
	serviceResources := make(map[string][]string)
	var services []string

	for _, name := range names {
		service := extractService(t.Resources[name].Type)
		if _, seen := serviceResources[service]; !seen {
			services = append(services, service)
		}
		serviceResources[service] = append(serviceResources[service], name)
	}
	sort.Strings(services)

	for _, service := range services {
		resNames := serviceResources[service]
		if len(resNames) == 1 {
			name := resNames[0]
			nodes[name] = addNode(graph, name, t.Resources[name].Type)
			continue
		}

		cluster := graph.Subgraph("cluster_"+service, dot.ClusterOption{})
		cluster.Attr("label", service)
		cluster.Attr("style", "rounded")
		cluster.Attr("bgcolor", "lightyellow")

		for _, name := range resNames {
			nodes[name] = addNode(cluster, name, t.Resources[name].Type)
		}
	}
}

// extractService extracts the service from a CloudFormation type.
// e.g., "AWS::S3::Bucket" -> "S3"
func extractService(cfType string) string {
	parts := strings.Split(cfType, "::")
	if len(parts) == 3 {
		return parts[1]
	}
	return "Other"
}

func sortedResources(t *logexport.Template) []string {
	names := make([]string, 0, len(t.Resources))
	for name := range t.Resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
