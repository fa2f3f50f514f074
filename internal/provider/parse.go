package provider

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// xmlNode is a minimal element tree for the arrival feed. The feed's rows
// carry arbitrary tags, occasionally nested and occasionally repeated, so
// parsing goes through a generic tree instead of fixed structs.
type xmlNode struct {
	Tag      string
	Text     string
	Children []*xmlNode
}

func (n *xmlNode) child(tag string) *xmlNode {
	for _, c := range n.Children {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

func (n *xmlNode) childText(tag string) string {
	if c := n.child(tag); c != nil {
		return strings.TrimSpace(c.Text)
	}
	return ""
}

// parseTree decodes an XML document into an element tree rooted at the
// document element.
func parseTree(data []byte) (*xmlNode, error) {
	dec := xml.NewDecoder(strings.NewReader(string(data)))

	var root *xmlNode
	var stack []*xmlNode

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := &xmlNode{Tag: t.Name.Local}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			} else if root == nil {
				root = node
			}
			stack = append(stack, node)
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("parsing xml: empty document")
	}
	return root, nil
}

// ParseArrivalXML parses one arrival API response into its result code,
// result message, optional reported total row count, and the flat
// string-keyed rows.
//
// Total count fallback order follows the feed's observed variants: RESULT's
// "total" element, then a root-level "totalCount", then a "totalCount"
// inside the first row.
func ParseArrivalXML(data []byte) (code, message string, totalCount *int, rows []map[string]string, err error) {
	root, err := parseTree(data)
	if err != nil {
		return "", "", nil, nil, err
	}

	result := root.child("RESULT")
	if result == nil {
		return "", "", nil, nil, fmt.Errorf("response has no RESULT element")
	}

	// The feed sometimes lowercases these tags.
	code = result.childText("CODE")
	if code == "" {
		code = result.childText("code")
	}
	message = result.childText("MESSAGE")
	if message == "" {
		message = result.childText("message")
	}

	totalCount = parseCount(result.childText("total"))
	if totalCount == nil {
		totalCount = parseCount(root.childText("totalCount"))
	}

	for _, child := range root.Children {
		if child.Tag != "row" {
			continue
		}
		row := make(map[string]string)
		flattenRow(child, "", row)
		rows = append(rows, row)
	}

	if totalCount == nil && len(rows) > 0 {
		if first := root.child("row"); first != nil {
			totalCount = parseCount(first.childText("totalCount"))
		}
	}

	return code, message, totalCount, rows, nil
}

// flattenRow converts a row element into a flat map without losing tags:
// nested elements are flattened with an underscore-joined prefix, and
// repeated tags get a "__N" suffix instead of overwriting.
func flattenRow(elem *xmlNode, prefix string, row map[string]string) {
	for _, child := range elem.Children {
		key := child.Tag
		if prefix != "" {
			key = prefix + child.Tag
		}

		if len(child.Children) > 0 {
			flattenRow(child, key+"_", row)
			continue
		}

		if _, exists := row[key]; exists {
			n := 1
			candidate := fmt.Sprintf("%s__%d", key, n)
			for {
				if _, taken := row[candidate]; !taken {
					break
				}
				n++
				candidate = fmt.Sprintf("%s__%d", key, n)
			}
			key = candidate
		}
		row[key] = strings.TrimSpace(child.Text)
	}
}

func parseCount(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &n
}
