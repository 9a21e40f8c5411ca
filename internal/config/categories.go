package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Category is one configured top-level section of the site.
type Category struct {
	Key   string
	Label string
}

// Categories keeps category definitions in the order they are written.
type Categories []Category

// Has reports whether key is a configured category.
func (cs Categories) Has(key string) bool {
	_, ok := cs.Label(key)
	return ok
}

// Label returns the display label of key.
func (cs Categories) Label(key string) (string, bool) {
	for _, c := range cs {
		if c.Key == key {
			return c.Label, true
		}
	}
	return "", false
}

// Keys returns the category keys in configuration order.
func (cs Categories) Keys() []string {
	keys := make([]string, len(cs))
	for i, c := range cs {
		keys[i] = c.Key
	}
	return keys
}

// UnmarshalYAML decodes a key→label mapping while preserving its order.
func (cs *Categories) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("categories: expected a mapping at line %d", node.Line)
	}
	out := make(Categories, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var label string
		if err := node.Content[i+1].Decode(&label); err != nil {
			return fmt.Errorf("categories.%s: %w", node.Content[i].Value, err)
		}
		out = append(out, Category{Key: node.Content[i].Value, Label: label})
	}
	*cs = out
	return nil
}

// MarshalYAML encodes the categories as an ordered mapping.
func (cs Categories) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, c := range cs {
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: c.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Value: c.Label})
	}
	return n, nil
}

// MarshalJSON encodes the categories as an object with keys in configuration order.
func (cs Categories) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range cs {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(c.Label)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
