// Package docs embeds the OpenAPI description of the dashboard endpoints.
package docs

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openAPIYAML []byte

var (
	jsonOnce sync.Once
	jsonDoc  []byte
	jsonErr  error
)

func YAML() []byte {
	return openAPIYAML
}

// JSON returns the document converted to JSON. The conversion runs once.
func JSON() ([]byte, error) {
	jsonOnce.Do(func() {
		var doc map[string]interface{}
		if err := yaml.Unmarshal(openAPIYAML, &doc); err != nil {
			jsonErr = fmt.Errorf("failed to parse openapi.yaml: %w", err)
			return
		}
		jsonDoc, jsonErr = json.Marshal(doc)
	})
	return jsonDoc, jsonErr
}
