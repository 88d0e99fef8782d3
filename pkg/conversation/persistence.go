package conversation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type transcript struct {
	ConversationID string `json:"conversation_id" yaml:"conversation_id"`
	Turns          []Turn `json:"turns" yaml:"turns"`
}

func isYAMLFile(filename string) bool {
	return strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml")
}

// SaveToFile writes the history to filename, as YAML when the name ends in
// .yaml or .yml and as indented JSON otherwise.
func (s *Store) SaveToFile(filename string) error {
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "could not create directory for %s", filename)
		}
	}

	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	t := transcript{
		ConversationID: s.id.String(),
		Turns:          s.FullHistory(),
	}

	if isYAMLFile(filename) {
		encoder := yaml.NewEncoder(f)
		defer func() {
			_ = encoder.Close()
		}()
		return encoder.Encode(t)
	}

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(t)
}

// LoadFromFile restores a store saved with SaveToFile. The transcript must start
// with its only system turn.
func LoadFromFile(filename string) (*Store, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	var t transcript
	if isYAMLFile(filename) {
		err = yaml.NewDecoder(f).Decode(&t)
	} else {
		err = json.NewDecoder(f).Decode(&t)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not decode transcript %s", filename)
	}

	if len(t.Turns) == 0 || t.Turns[0].Role != RoleSystem {
		return nil, errors.Errorf("transcript %s does not start with a system turn", filename)
	}

	var options []StoreOption
	if t.ConversationID != "" {
		id, err := uuid.Parse(t.ConversationID)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid conversation id in %s", filename)
		}
		options = append(options, WithConversationID(id))
	}

	s := NewStore(t.Turns[0].Content, options...)
	for i, turn := range t.Turns[1:] {
		if !turn.Role.IsValid() || turn.Role == RoleSystem {
			return nil, errors.Errorf("transcript %s: turn %d has invalid role %q", filename, i+1, turn.Role)
		}
		s.Append(turn.Role, turn.Content)
	}

	return s, nil
}
