package manifest

import (
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// document is the layout of deploy.yaml
type document struct {
	Units []unit `yaml:"units"`
}

// unit is one entry of deploy.yaml
type unit struct {
	ID       string   `yaml:"id"`
	Contract string   `yaml:"contract"`
	From     string   `yaml:"from,omitempty"`
	Args     args     `yaml:"args,omitempty"`
	Tags     []string `yaml:"tags,omitempty"`
	Verify   *bool    `yaml:"verify,omitempty"`
}

// args holds constructor arguments. Integers that do not fit an int are
// kept as *big.Int parsed from the source text.
type args []any

func (a *args) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: args must be a list", node.Line)
	}
	out := make(args, 0, len(node.Content))
	for _, child := range node.Content {
		v, err := decodeValue(child)
		if err != nil {
			return err
		}
		out = append(out, v)
	}
	*a = out
	return nil
}

func decodeValue(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.AliasNode:
		return decodeValue(node.Alias)
	case yaml.SequenceNode:
		list := make([]any, 0, len(node.Content))
		for _, child := range node.Content {
			v, err := decodeValue(child)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	case yaml.MappingNode:
		m := make(map[string]any, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			v, err := decodeValue(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			m[node.Content[i].Value] = v
		}
		return m, nil
	case yaml.ScalarNode:
		// yaml resolves integers wider than 64 bits to !!float, so plain
		// scalars are matched on their text
		if node.Style == 0 && integerText.MatchString(strings.ReplaceAll(node.Value, "_", "")) {
			return decodeInt(node)
		}
	}

	var v any
	if err := node.Decode(&v); err != nil {
		return nil, fmt.Errorf("line %d: %w", node.Line, err)
	}
	return v, nil
}

var integerText = regexp.MustCompile(`^[-+]?(0x[0-9a-fA-F]+|0o[0-7]+|0b[01]+|[0-9]+)$`)

func decodeInt(node *yaml.Node) (any, error) {
	text := strings.TrimPrefix(strings.ReplaceAll(node.Value, "_", ""), "+")
	n, ok := new(big.Int).SetString(text, 0)
	if !ok {
		return nil, fmt.Errorf("line %d: invalid integer %q", node.Line, node.Value)
	}
	if n.IsInt64() && n.Int64() >= math.MinInt && n.Int64() <= math.MaxInt {
		return int(n.Int64()), nil
	}
	return n, nil
}
