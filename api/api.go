// Package api holds the OpenAPI description of the HTTP surface.
package api

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openAPIYAML []byte

// YAML returns the OpenAPI document as written.
func YAML() []byte {
	return openAPIYAML
}

var openAPIJSON = sync.OnceValues(func() ([]byte, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(openAPIYAML, &doc); err != nil {
		return nil, fmt.Errorf("parse openapi document: %w", err)
	}
	return json.Marshal(doc)
})

// JSON returns the OpenAPI document converted to JSON. The conversion runs
// once.
func JSON() ([]byte, error) {
	return openAPIJSON()
}
