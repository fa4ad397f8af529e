// Package redaction scrubs subject identifiers, key material, and other
// sensitive fields from structured log output. Adapted from the embedding platform's
// secret-leak redactor (infrastructure/redaction), retargeted from API
// credentials to the data categories a compliance engine must itself
// avoid leaking: raw subject ids, key bytes, and ciphertext.
package redaction

import "strings"

// Config controls which field names get replaced wholesale.
type Config struct {
	Enabled         bool
	RedactionText   string
	BlockedPatterns []string
}

// DefaultConfig blocks the field names the compliance packages are known
// to pass into structured log fields.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		RedactionText: "***REDACTED***",
		BlockedPatterns: []string{
			"data_subject_id",
			"subject_id",
			"plaintext",
			"key_material",
			"master_key",
			"share_data",
			"signing_key",
			"raw_key",
		},
	}
}

type Redactor struct {
	config Config
}

func NewRedactor(cfg Config) *Redactor {
	if cfg.RedactionText == "" {
		cfg.RedactionText = "***REDACTED***"
	}
	return &Redactor{config: cfg}
}

// RedactMap returns a shallow copy of m with blocked field names replaced.
// Fields not matching a blocked pattern pass through unchanged; nested
// maps are redacted recursively.
func (r *Redactor) RedactMap(m map[string]interface{}) map[string]interface{} {
	if !r.config.Enabled || m == nil {
		return m
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if r.isBlocked(k) {
			out[k] = r.config.RedactionText
			continue
		}
		if nested, ok := v.(map[string]interface{}); ok {
			out[k] = r.RedactMap(nested)
			continue
		}
		out[k] = v
	}
	return out
}

func (r *Redactor) isBlocked(fieldName string) bool {
	lower := strings.ToLower(fieldName)
	for _, blocked := range r.config.BlockedPatterns {
		if strings.Contains(lower, blocked) {
			return true
		}
	}
	return false
}
