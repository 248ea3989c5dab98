package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SaveTimerDefaults replaces the timer section of the config file.
// Comments and formatting in other sections are preserved by editing the
// yaml.Node tree instead of re-marshaling the whole Config.
func SaveTimerDefaults(configPath string, timer TimerConfig) error {
	var node yaml.Node
	if err := node.Encode(timer); err != nil {
		return fmt.Errorf("building timer node: %w", err)
	}
	return saveSection(configPath, "timer", &node)
}

// SaveSoundEnabled sets sound.enabled in the config file.
func SaveSoundEnabled(configPath string, enabled bool) error {
	var node yaml.Node
	if err := node.Encode(map[string]bool{"enabled": enabled}); err != nil {
		return fmt.Errorf("building sound node: %w", err)
	}
	return saveSection(configPath, "sound", &node)
}

// saveSection sets the top-level key to value, creating the file if needed.
func saveSection(configPath, key string, value *yaml.Node) error {
	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}

	// Parse into yaml.Node to preserve comments
	var doc yaml.Node
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	if doc.Kind == 0 {
		doc = yaml.Node{
			Kind: yaml.DocumentNode,
			Content: []*yaml.Node{
				{Kind: yaml.MappingNode},
			},
		}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return fmt.Errorf("parsing config: top level is not a mapping")
	}

	root := doc.Content[0]
	found := false
	for i := 0; i < len(root.Content)-1; i += 2 {
		if root.Content[i].Value == key {
			// Keep comments attached to the old section.
			value.HeadComment = root.Content[i+1].HeadComment
			value.LineComment = root.Content[i+1].LineComment
			root.Content[i+1] = value
			found = true
			break
		}
	}
	if !found {
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: key},
			value,
		)
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	return writeAtomic(configPath, buf.Bytes())
}

// writeAtomic writes to a temp file in the same directory, then renames.
func writeAtomic(configPath string, data []byte) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".standclock.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
