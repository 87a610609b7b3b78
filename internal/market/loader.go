package market

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadRuleSet reads a rule-set YAML file. KnownFields(true) makes typos and
// unused fields fail immediately instead of silently falling back to zero.
func LoadRuleSet(path string) (RuleSet, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, nil, err
	}

	var rs RuleSet
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rs); err != nil {
		return RuleSet{}, nil, err
	}

	if err := rs.Validate(); err != nil {
		return RuleSet{}, data, err
	}

	return rs, data, nil
}

// HashRuleSet produces a reproducible SHA-256 of the rule table (canonical
// JSON via struct field order), recorded alongside backtest results so a run
// can be tied to the exact rules it was executed under.
func HashRuleSet(rs RuleSet) (string, error) {
	jsonBytes, err := json.Marshal(rs)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
