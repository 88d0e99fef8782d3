// Package profile describes the brand domain the assistant is locked to: the
// prompts sent to the model, the canned replies, and the keyword vocabularies
// used by the topic gate.
package profile

import (
	"bytes"
	_ "embed"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultProfileYAML []byte

type Keywords struct {
	Topic          []string `yaml:"topic"`
	Recommendation []string `yaml:"recommendation"`
	BudgetLow      []string `yaml:"budget_low"`
	BudgetMid      []string `yaml:"budget_mid"`
	BudgetHigh     []string `yaml:"budget_high"`
}

type Profile struct {
	Name              string   `yaml:"name"`
	Title             string   `yaml:"title"`
	SystemPrompt      string   `yaml:"system_prompt"`
	ProxySystemPrompt string   `yaml:"proxy_system_prompt"`
	Intro             string   `yaml:"intro"`
	Refusal           string   `yaml:"refusal"`
	Clarify           string   `yaml:"clarify"`
	DemoNotice        string   `yaml:"demo_notice"`
	NoResponse        string   `yaml:"no_response"`
	DefaultMessage    string   `yaml:"default_message"`
	FallbackAnswer    string   `yaml:"fallback_answer"`
	Keywords          Keywords `yaml:"keywords"`
}

// Default returns a fresh copy of the built-in L'Oréal profile.
func Default() *Profile {
	p, err := parse(defaultProfileYAML)
	if err != nil {
		panic(errors.Wrap(err, "embedded default profile is invalid"))
	}
	return p
}

func parse(b []byte) (*Profile, error) {
	p := &Profile{}
	decoder := yaml.NewDecoder(bytes.NewReader(b))
	decoder.KnownFields(true)
	if err := decoder.Decode(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Load reads the profile at path and fills every field left empty from the
// default profile. An empty path returns the default profile.
func Load(path string) (*Profile, error) {
	if path == "" {
		return Default(), nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read profile %s", path)
	}

	p, err := parse(b)
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse profile %s", path)
	}
	p.MergeDefaults(Default())

	if err := p.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid profile %s", path)
	}

	return p, nil
}

// MergeDefaults copies every empty field from d.
func (p *Profile) MergeDefaults(d *Profile) {
	mergeString(&p.Name, d.Name)
	mergeString(&p.Title, d.Title)
	mergeString(&p.SystemPrompt, d.SystemPrompt)
	mergeString(&p.ProxySystemPrompt, d.ProxySystemPrompt)
	mergeString(&p.Intro, d.Intro)
	mergeString(&p.Refusal, d.Refusal)
	mergeString(&p.Clarify, d.Clarify)
	mergeString(&p.DemoNotice, d.DemoNotice)
	mergeString(&p.NoResponse, d.NoResponse)
	mergeString(&p.DefaultMessage, d.DefaultMessage)
	mergeString(&p.FallbackAnswer, d.FallbackAnswer)

	mergeList(&p.Keywords.Topic, d.Keywords.Topic)
	mergeList(&p.Keywords.Recommendation, d.Keywords.Recommendation)
	mergeList(&p.Keywords.BudgetLow, d.Keywords.BudgetLow)
	mergeList(&p.Keywords.BudgetMid, d.Keywords.BudgetMid)
	mergeList(&p.Keywords.BudgetHigh, d.Keywords.BudgetHigh)
}

func mergeString(dst *string, def string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = def
	}
}

func mergeList(dst *[]string, def []string) {
	if len(*dst) == 0 {
		*dst = append([]string(nil), def...)
	}
}

func (p *Profile) Validate() error {
	if strings.TrimSpace(p.SystemPrompt) == "" {
		return errors.New("system_prompt must not be empty")
	}
	if len(p.Keywords.Topic) == 0 {
		return errors.New("keywords.topic must not be empty")
	}
	for _, k := range p.Keywords.Topic {
		if strings.TrimSpace(k) == "" {
			return errors.New("keywords.topic contains an empty keyword")
		}
	}
	return nil
}
