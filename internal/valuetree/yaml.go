// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package valuetree

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseYAML decodes a YAML document into a Value tree, preserving
// mapping-key order and comment annotations via yaml.Node.
func ParseYAML(data []byte) (*Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("valuetree: parse yaml: %w", err)
	}
	if len(doc.Content) == 0 {
		return NewNull(), nil
	}
	return fromNode(doc.Content[0])
}

func fromNode(n *yaml.Node) (*Value, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return fromScalarNode(n)
	case yaml.MappingNode:
		m := NewMapping()
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode, valNode := n.Content[i], n.Content[i+1]
			val, err := fromNode(valNode)
			if err != nil {
				return nil, err
			}
			val.Comment = Comment{
				Head: commentText(firstNonEmpty(keyNode.HeadComment, valNode.HeadComment)),
				Line: commentText(firstNonEmpty(valNode.LineComment, keyNode.LineComment)),
				Foot: commentText(valNode.FootComment),
			}
			m.Set(keyNode.Value, val)
		}
		return NewMappingValue(m), nil
	case yaml.SequenceNode:
		items := make([]*Value, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromNode(c)
			if err != nil {
				return nil, err
			}
			v.Comment = Comment{Head: commentText(c.HeadComment), Line: commentText(c.LineComment), Foot: commentText(c.FootComment)}
			items = append(items, v)
		}
		return NewSequence(items), nil
	case yaml.AliasNode:
		return fromNode(n.Alias)
	default:
		return NewNull(), nil
	}
}

// commentText drops the "#" marker (and one following space) that
// yaml.v3 keeps at the start of each comment line; the encoder puts
// the marker back when marshalling.
func commentText(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimPrefix(strings.TrimPrefix(l, "#"), " ")
	}
	return strings.Join(lines, "\n")
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func fromScalarNode(n *yaml.Node) (*Value, error) {
	switch n.Tag {
	case "!!null":
		return NewNull(), nil
	case "!!bool":
		b, err := strconv.ParseBool(n.Value)
		if err != nil {
			return nil, fmt.Errorf("valuetree: bad bool %q: %w", n.Value, err)
		}
		return NewBool(b), nil
	case "!!int":
		i, err := strconv.ParseInt(n.Value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("valuetree: bad int %q: %w", n.Value, err)
		}
		return NewInt(i), nil
	case "!!float":
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("valuetree: bad float %q: %w", n.Value, err)
		}
		return NewFloat(f), nil
	default:
		return NewString(n.Value), nil
	}
}

// MarshalYAML serialises v back into a YAML document, reproducing
// mapping key order and comment annotations.
func MarshalYAML(v *Value) ([]byte, error) {
	node := toNode(v)
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{node}}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("valuetree: marshal yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("valuetree: marshal yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func toNode(v *Value) *yaml.Node {
	if v == nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
	switch v.Kind {
	case KindNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v.Bool)}
	case KindInt:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(v.Int, 10)}
	case KindFloat:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(v.Float, 'g', -1, 64)}
	case KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.Str}
	case KindSequence:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.Seq {
			child := toNode(item)
			applyComment(child, item.Comment)
			node.Content = append(node.Content, child)
		}
		return node
	case KindMapping:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range v.Map.Keys() {
			val, _ := v.Map.Get(k)
			keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k, HeadComment: val.Comment.Head}
			valNode := toNode(val)
			valNode.LineComment = val.Comment.Line
			valNode.FootComment = val.Comment.Foot
			node.Content = append(node.Content, keyNode, valNode)
		}
		return node
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

func applyComment(n *yaml.Node, c Comment) {
	n.HeadComment = c.Head
	n.LineComment = c.Line
	n.FootComment = c.Foot
}
