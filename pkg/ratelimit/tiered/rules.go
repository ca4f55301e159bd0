package tiered

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vnykmshr/gatekeep/pkg/common/validation"
)

const module = "tiered"

// Rule is the limit applied to one (service, tier) pair.
type Rule struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

// Validate reports whether r can be enforced.
func (r Rule) Validate() error {
	if err := validation.ValidatePositive(module, "limit", r.Limit); err != nil {
		return err
	}
	return validation.ValidatePositiveDuration(module, "window", r.Window)
}

// Rules is the full rule table.
type Rules struct {
	Default  Rule                       `yaml:"default"`
	Services map[string]map[string]Rule `yaml:"services"`
}

// DefaultRules returns the built-in rule table.
func DefaultRules() *Rules {
	return &Rules{
		Default: Rule{Limit: 100, Window: time.Hour},
		Services: map[string]map[string]Rule{
			"payments": {
				"free":       {Limit: 10, Window: time.Minute},
				"pro":        {Limit: 100, Window: time.Minute},
				"enterprise": {Limit: 1000, Window: time.Minute},
			},
			"marketing": {
				"free":       {Limit: 50, Window: time.Hour},
				"pro":        {Limit: 500, Window: time.Hour},
				"enterprise": {Limit: 5000, Window: time.Hour},
			},
		},
	}
}

// LoadRules decodes and validates a YAML rule table.
func LoadRules(r io.Reader) (*Rules, error) {
	var rules Rules
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&rules); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return &rules, nil
}

// LoadRulesFile reads a rule table from path.
func LoadRulesFile(path string) (*Rules, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules: %w", err)
	}
	defer f.Close()

	rules, err := LoadRules(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// Validate checks the default rule and every service rule.
func (rs *Rules) Validate() error {
	if err := rs.Default.Validate(); err != nil {
		return fmt.Errorf("default: %w", err)
	}
	for service, tiers := range rs.Services {
		for tier, rule := range tiers {
			if err := rule.Validate(); err != nil {
				return fmt.Errorf("%s.%s: %w", service, tier, err)
			}
		}
	}
	return nil
}

// Lookup returns the rule for service and tier, falling back to the default
// rule when either is unknown.
func (rs *Rules) Lookup(service, tier string) Rule {
	if rule, ok := rs.Services[service][tier]; ok {
		return rule
	}
	return rs.Default
}

// Entry is one row of the flattened rule table.
type Entry struct {
	Service string
	Tier    string
	Rule
}

// Entries returns every service rule sorted by service then tier.
func (rs *Rules) Entries() []Entry {
	var entries []Entry
	for service, tiers := range rs.Services {
		for tier, rule := range tiers {
			entries = append(entries, Entry{Service: service, Tier: tier, Rule: rule})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Service != entries[j].Service {
			return entries[i].Service < entries[j].Service
		}
		return entries[i].Tier < entries[j].Tier
	})
	return entries
}
