package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mirgo/internal/asset"
	"mirgo/internal/diff"
	"mirgo/internal/engine"
	"mirgo/internal/prefab"
	"mirgo/internal/world"
)

func newDiffCommand(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "diff SCENE OBJECT",
		Short: "Show what an instance changes relative to its prefab",
		Long: `Show the modifications of the instance rooted at OBJECT.

Formats:
  text     one line per changed field (default)
  yaml     the same changes as a YAML document
  unified  a unified diff of the prefab against the instance`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := a.newWorld(false)
			if err := w.LoadScene(args[0]); err != nil {
				return err
			}
			obj, err := findObject(w.Scene, args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "text":
				return printModsText(out, w, obj)
			case "yaml":
				return printModsYAML(out, w, obj)
			case "unified":
				return printUnified(out, w, obj, args[1])
			default:
				return fmt.Errorf("unknown format %q (want text, yaml or unified)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "o", "text", "Output format: text, yaml or unified")
	return cmd
}

// change is one modification prepared for display.
type change struct {
	Kind      string      `yaml:"kind"`
	Node      string      `yaml:"node"`
	Component string      `yaml:"component,omitempty"`
	Index     *int        `yaml:"index,omitempty"`
	Fields    []diff.Line `yaml:"fields,omitempty"`
}

type modsView struct {
	Asset    string   `yaml:"asset"`
	Revision string   `yaml:"revision"`
	Changes  []change `yaml:"changes"`
}

func viewMods(w *world.World, root *engine.GameObject) (*modsView, error) {
	l, ok := w.Prefabs.Link(root)
	if !ok {
		return nil, fmt.Errorf("%q: %w", root.Name, prefab.ErrNoLink)
	}
	mods, err := w.Prefabs.Modifications(root)
	if err != nil {
		return nil, err
	}

	v := &modsView{Asset: l.AssetID, Revision: string(l.Revision), Changes: []change{}}
	for _, o := range mods.Objects {
		v.Changes = append(v.Changes, change{Kind: "override", Node: o.Node.String(), Fields: diff.Describe(o.Record)})
	}
	for _, c := range mods.Components {
		v.Changes = append(v.Changes, change{
			Kind: "override", Node: c.Node.String(),
			Component: fmt.Sprintf("%s #%d", c.Type, c.Component),
			Fields:    diff.Describe(c.Record),
		})
	}
	for _, c := range mods.RemovedComponents {
		v.Changes = append(v.Changes, change{Kind: "removed", Node: c.Node.String(), Component: fmt.Sprintf("#%d", c.Component)})
	}
	for _, n := range mods.RemovedChildren {
		v.Changes = append(v.Changes, change{Kind: "removed", Node: n.String()})
	}
	for _, c := range mods.AddedComponents {
		v.Changes = append(v.Changes, change{Kind: "added", Node: c.Node.String(), Component: c.Type, Fields: diff.Describe(c.Record)})
	}
	for _, c := range mods.AddedChildren {
		index := c.Index
		v.Changes = append(v.Changes, change{Kind: "added", Node: c.Parent.String(), Index: &index, Fields: diff.Describe(c.Object.Props)})
	}
	return v, nil
}

func printModsText(out io.Writer, w *world.World, root *engine.GameObject) error {
	v, err := viewMods(w, root)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %s (asset %s, revision %s)\n", objectPath(root), plural(len(v.Changes), "modification"), v.Asset, asset.Revision(v.Revision).Short())

	for _, c := range v.Changes {
		target := c.Node
		if c.Index != nil {
			target = fmt.Sprintf("%s[%d]", target, *c.Index)
		}
		if c.Component != "" {
			target += " " + c.Component
		}
		switch c.Kind {
		case "added":
			addedColor.Fprintf(out, "  + %s\n", target)
		case "removed":
			removedColor.Fprintf(out, "  - %s\n", target)
		default:
			changedColor.Fprintf(out, "  ~ %s\n", target)
		}
		for _, f := range c.Fields {
			if f.Value == nil {
				fmt.Fprintf(out, "      %s %s\n", f.Path, dimColor.Sprint(f.Op))
				continue
			}
			fmt.Fprintf(out, "      %s %s %v\n", f.Path, dimColor.Sprint(f.Op), f.Value)
		}
	}
	return nil
}

func printModsYAML(out io.Writer, w *world.World, root *engine.GameObject) error {
	v, err := viewMods(w, root)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// nodeView is a document node without ids, for textual comparison.
type nodeView struct {
	Name       string          `yaml:"name"`
	Tags       []string        `yaml:"tags,omitempty,flow"`
	Active     bool            `yaml:"active"`
	Position   asset.Vec3      `yaml:"position,flow"`
	Rotation   asset.Vec3      `yaml:"rotation,flow"`
	Scale      asset.Vec3      `yaml:"scale,flow"`
	Components []componentView `yaml:"components,omitempty"`
	Children   []nodeView      `yaml:"children,omitempty"`
}

type componentView struct {
	Type string `yaml:"type"`
	Data any    `yaml:"data,omitempty"`
}

func viewNode(n *asset.Node) nodeView {
	v := nodeView{
		Name:     n.Name,
		Tags:     n.Tags,
		Active:   n.Active,
		Position: n.Position,
		Rotation: n.Rotation,
		Scale:    n.Scale,
	}
	for _, c := range n.Components {
		var data any
		if err := cbor.Unmarshal(c.Data, &data); err != nil {
			data = fmt.Sprintf("<undecodable: %v>", err)
		}
		v.Components = append(v.Components, componentView{Type: c.Type, Data: data})
	}
	for _, child := range n.Children {
		v.Children = append(v.Children, viewNode(child))
	}
	return v
}

func documentYAML(doc *asset.Document) (string, error) {
	data, err := yaml.Marshal(viewNode(doc.Root))
	if err != nil {
		return "", fmt.Errorf("encode yaml: %w", err)
	}
	return string(data), nil
}

func printUnified(out io.Writer, w *world.World, root *engine.GameObject, objPath string) error {
	source, current, err := w.Prefabs.Snapshot(root)
	if err != nil {
		return err
	}
	a, err := documentYAML(source)
	if err != nil {
		return err
	}
	b, err := documentYAML(current)
	if err != nil {
		return err
	}
	l, _ := w.Prefabs.Link(root)

	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(a),
		B:        difflib.SplitLines(b),
		FromFile: fmt.Sprintf("%s@%s", l.AssetID, l.Revision.Short()),
		ToFile:   objPath,
		Context:  3,
	})
	if err != nil {
		return fmt.Errorf("unified diff: %w", err)
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			fmt.Fprint(out, line)
		case strings.HasPrefix(line, "+"):
			addedColor.Fprint(out, line)
		case strings.HasPrefix(line, "-"):
			removedColor.Fprint(out, line)
		case strings.HasPrefix(line, "@@"):
			changedColor.Fprint(out, line)
		default:
			fmt.Fprint(out, line)
		}
	}
	return nil
}
