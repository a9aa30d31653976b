// SPDX-License-Identifier: Apache-2.0

package parsers

import (
	"fmt"
	"math"
	"strings"

	"github.com/gemaraproj/credsniff/internal/content"
	"github.com/goccy/go-yaml"
)

// YAMLRecognizer parses indentation key-value notation. It accepts nearly any
// colon-bearing multi-line text, so it must run after the stricter recognizers.
type YAMLRecognizer struct{}

func NewYAMLRecognizer() *YAMLRecognizer {
	return &YAMLRecognizer{}
}

func (r *YAMLRecognizer) Name() string {
	return "yaml"
}

// CanHandle requires a colon and more than two line feeds.
func (r *YAMLRecognizer) CanHandle(text string) bool {
	return strings.Contains(text, ":") && strings.Count(text, "\n") > 2
}

func (r *YAMLRecognizer) Recognize(text string) (content.Structure, error) {
	var doc interface{}
	if err := yaml.UnmarshalWithOptions([]byte(text), &doc, yaml.UseOrderedMap()); err != nil {
		return content.Structure{}, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}
	return fromYAML(doc, 0)
}

func fromYAML(value interface{}, depth int) (content.Structure, error) {
	if depth > maxNestingDepth {
		return content.Structure{}, errTooDeep
	}
	switch v := value.(type) {
	case yaml.MapSlice:
		var obj content.ObjectBuilder
		for _, item := range v {
			member, err := fromYAML(item.Value, depth+1)
			if err != nil {
				return content.Structure{}, err
			}
			obj.Set(yamlKey(item.Key), member)
		}
		return obj.Structure(), nil
	case []interface{}:
		items := make([]content.Structure, 0, len(v))
		for _, item := range v {
			s, err := fromYAML(item, depth+1)
			if err != nil {
				return content.Structure{}, err
			}
			items = append(items, s)
		}
		return content.NewArray(items...), nil
	case float64:
		// .nan and .inf have no JSON form
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return content.NewScalar(fmt.Sprint(v)), nil
		}
		return content.NewScalar(v), nil
	case map[string]interface{}, map[interface{}]interface{}:
		return content.FromValue(v), nil
	}
	return content.NewScalar(value), nil
}

func yamlKey(key interface{}) string {
	if s, ok := key.(string); ok {
		return s
	}
	if key == nil {
		return "null"
	}
	return fmt.Sprint(key)
}
