// Package rules loads and validates the compliance checklist the review
// engine evaluates documents against. The checklist is read once at startup
// and is immutable for the process lifetime.
package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/soc-review/backend/pkg/utils"
)

// ErrConfig marks any failure to load or validate the rule checklist.
// It is fatal at startup: the service refuses to serve without a valid
// rule set.
var ErrConfig = errors.New("invalid rules configuration")

type Importance string

const (
	ImportanceCritical Importance = "critical"
	ImportanceStandard Importance = "standard"
)

// Rule is one compliance checklist item. The description is the sole input
// steering evaluation; importance carries reporting weight only and never
// influences the verdict.
type Rule struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Importance  Importance `json:"importance"`
}

type checklist struct {
	Rules []Rule `json:"rules"`
}

// Store holds the ordered rule list. Read-only after construction.
type Store struct {
	rules       []Rule
	fingerprint string
}

// Load reads and validates a JSON checklist file. An empty rules array is
// valid; every other defect (missing file, malformed JSON, duplicate id,
// missing field, unknown importance) wraps ErrConfig.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrConfig, path, err)
	}

	var cl checklist
	if err := json.Unmarshal(data, &cl); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrConfig, path, err)
	}

	return New(cl.Rules)
}

// New builds a Store from an already-decoded rule list, applying the same
// validation as Load.
func New(list []Rule) (*Store, error) {
	seen := make(map[string]struct{}, len(list))
	for i, r := range list {
		if strings.TrimSpace(r.ID) == "" {
			return nil, fmt.Errorf("%w: rule %d has no id", ErrConfig, i)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate rule id %q", ErrConfig, r.ID)
		}
		seen[r.ID] = struct{}{}

		if strings.TrimSpace(r.Name) == "" {
			return nil, fmt.Errorf("%w: rule %q has no name", ErrConfig, r.ID)
		}
		if strings.TrimSpace(r.Description) == "" {
			return nil, fmt.Errorf("%w: rule %q has no description", ErrConfig, r.ID)
		}
		switch r.Importance {
		case ImportanceCritical, ImportanceStandard:
		default:
			return nil, fmt.Errorf("%w: rule %q has unknown importance %q", ErrConfig, r.ID, r.Importance)
		}
	}

	rules := make([]Rule, len(list))
	copy(rules, list)

	return &Store{rules: rules, fingerprint: fingerprint(rules)}, nil
}

// Rules returns a copy of the ordered rule list. The order is a user-facing
// contract: review results align with it.
func (s *Store) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

func (s *Store) Count() int {
	return len(s.rules)
}

// Fingerprint is a stable hash of the loaded checklist content, used as a
// cache key component so cached reviews never outlive a rule change.
func (s *Store) Fingerprint() string {
	return s.fingerprint
}

func fingerprint(rules []Rule) string {
	parts := make([]string, 0, len(rules)*4)
	for _, r := range rules {
		parts = append(parts, r.ID, r.Name, r.Description, string(r.Importance))
	}
	return utils.Digest(parts...)
}
