// internal/records/yaml.go
package records

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tamzrod/modbus-acquire/internal/config"
)

// YAMLSource re-reads the channels and math_channels sections of a YAML
// file on every load. The file may be the engine config itself.
type YAMLSource struct {
	Path string
}

type yamlRecords struct {
	Channels     []config.ChannelConfig     `yaml:"channels"`
	MathChannels []config.MathChannelConfig `yaml:"math_channels"`
}

func (s *YAMLSource) Load(ctx context.Context) (Set, error) {
	if err := ctx.Err(); err != nil {
		return Set{}, err
	}

	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return Set{}, fmt.Errorf("records yaml: read %s: %w", s.Path, err)
	}

	var doc yamlRecords
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Set{}, fmt.Errorf("records yaml: decode %s: %w", s.Path, err)
	}

	if err := config.ValidateChannels(doc.Channels, doc.MathChannels); err != nil {
		return Set{}, err
	}

	return finish(Set{Channels: doc.Channels, Math: doc.MathChannels}), nil
}
