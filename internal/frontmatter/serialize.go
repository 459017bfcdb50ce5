package frontmatter

import (
	"bytes"
	"sort"

	"gopkg.in/yaml.v3"
)

// SerializeYAML serializes flat header fields into YAML (without delimiters).
//
// Keys are sorted so the output is stable for hashing. Values are always emitted
// as strings. If fields is empty, SerializeYAML returns an empty string.
func SerializeYAML(fields map[string]string, style Style) (string, error) {
	if len(fields) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: fields[k]},
		)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		_ = enc.Close()
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}

	out := buf.Bytes()
	if style.Newline != "" && style.Newline != "\n" {
		out = bytes.ReplaceAll(out, []byte("\n"), []byte(style.Newline))
	}
	return string(out), nil
}
