package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration for a ripsfix run.
type Config struct {
	DSN       string
	LogFormat string // "text" or "json"
	LogLevel  string

	RecordsPath   string
	ReferencePath string
	NullifyPath   string
	RulesPath     string
	OutPath       string

	// Reference table reading; inference is not attempted.
	Delimiter string
	Encoding  string
	Sheet     string

	Backup            bool
	Force             bool
	DryRun            bool
	Audit             bool
	AllowEmptyIndex   bool
	Workers           int
	MaxUnmatchedRatio float64

	Rules Rules
}

// Rules is the repair rule table: the default values written by each
// normalization rule, the nullification codes, and the matcher settings.
type Rules struct {
	PatientDocType         string              `yaml:"patient_document_type"`
	CountryOfResidence     string              `yaml:"country_of_residence"`
	PrincipalDiagnosisType string              `yaml:"principal_diagnosis_type"`
	TechnologyPurpose      string              `yaml:"technology_purpose"`
	MedicationType         string              `yaml:"medication_type"`
	Modality               string              `yaml:"modality"`
	NullifyCodes           []string            `yaml:"nullify_codes"`
	SuffixDigits           int                 `yaml:"suffix_digits"`
	DocumentTypeAliases    map[string][]string `yaml:"document_type_aliases"`
}

// DefaultSuffixDigits is the number of trailing document digits compared by
// the suffix matcher.
const DefaultSuffixDigits = 6

// DefaultRules returns the rule table used when no rules file is given.
func DefaultRules() Rules {
	return Rules{
		PatientDocType:         "CC",
		CountryOfResidence:     "170",
		PrincipalDiagnosisType: "03",
		TechnologyPurpose:      "44",
		MedicationType:         "01",
		Modality:               "01",
		SuffixDigits:           DefaultSuffixDigits,
		DocumentTypeAliases:    DefaultAliases(),
	}
}

// DefaultAliases returns the document type alias groups, keyed by canonical type.
func DefaultAliases() map[string][]string {
	return map[string][]string{
		"CC": {"CC", "CEDULA", "C.C.", "CI"},
		"TI": {"TI", "TARJETA", "T.I."},
		"CE": {"CE", "C.E.", "EXTRANJERIA"},
		"RC": {"RC", "R.C.", "REGISTRO"},
		"PA": {"PA", "PASAPORTE"},
	}
}

// withDefaults fills unset fields from DefaultRules.
func (r Rules) withDefaults() Rules {
	d := DefaultRules()
	if r.PatientDocType == "" {
		r.PatientDocType = d.PatientDocType
	}
	if r.CountryOfResidence == "" {
		r.CountryOfResidence = d.CountryOfResidence
	}
	if r.PrincipalDiagnosisType == "" {
		r.PrincipalDiagnosisType = d.PrincipalDiagnosisType
	}
	if r.TechnologyPurpose == "" {
		r.TechnologyPurpose = d.TechnologyPurpose
	}
	if r.MedicationType == "" {
		r.MedicationType = d.MedicationType
	}
	if r.Modality == "" {
		r.Modality = d.Modality
	}
	if r.SuffixDigits == 0 {
		r.SuffixDigits = d.SuffixDigits
	}
	if len(r.DocumentTypeAliases) == 0 {
		r.DocumentTypeAliases = d.DocumentTypeAliases
	}
	return r
}

// Validate checks the rule table for values the engine cannot use.
func (r Rules) Validate() error {
	if r.SuffixDigits < 1 {
		return fmt.Errorf("suffix_digits must be positive, got %d", r.SuffixDigits)
	}
	for canon, group := range r.DocumentTypeAliases {
		if strings.TrimSpace(canon) == "" {
			return fmt.Errorf("document_type_aliases: empty group name")
		}
		if len(group) == 0 {
			return fmt.Errorf("document_type_aliases: group %q has no aliases", canon)
		}
	}
	return nil
}

// AliasGroups returns the alias groups in a stable order (sorted by
// canonical type), each group uppercased and trimmed.
func (r Rules) AliasGroups() [][]string {
	names := make([]string, 0, len(r.DocumentTypeAliases))
	for k := range r.DocumentTypeAliases {
		names = append(names, k)
	}
	sort.Strings(names)

	groups := make([][]string, 0, len(names))
	for _, n := range names {
		var g []string
		for _, a := range r.DocumentTypeAliases[n] {
			a = strings.ToUpper(strings.TrimSpace(a))
			if a != "" {
				g = append(g, a)
			}
		}
		groups = append(groups, g)
	}
	return groups
}

// LoadFromFile reads a YAML rules file and merges its values into Config.
// Unset rule fields keep their defaults.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read rules file: %w", err)
	}
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("parse rules file: %w", err)
	}
	c.Rules = r.withDefaults()
	return c.Rules.Validate()
}

// ApplyDefaults fills the rule table and numeric settings left at their
// zero values.
func (c *Config) ApplyDefaults() {
	c.Rules = c.Rules.withDefaults()
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.Delimiter == "" {
		c.Delimiter = ","
	}
	if c.Encoding == "" {
		c.Encoding = "utf-8"
	}
}

// Validate checks required fields and returns an error if the config is invalid.
func (c *Config) Validate() error {
	if c.RecordsPath == "" {
		return fmt.Errorf("--records is required")
	}
	if _, err := os.Stat(c.RecordsPath); err != nil {
		return fmt.Errorf("records file not accessible: %w", err)
	}
	if c.ReferencePath == "" {
		return fmt.Errorf("--reference is required")
	}
	if _, err := os.Stat(c.ReferencePath); err != nil {
		return fmt.Errorf("reference file not accessible: %w", err)
	}
	if c.NullifyPath != "" {
		if _, err := os.Stat(c.NullifyPath); err != nil {
			return fmt.Errorf("nullify file not accessible: %w", err)
		}
	}
	if len([]rune(c.Delimiter)) != 1 {
		return fmt.Errorf("--delimiter must be a single character, got %q", c.Delimiter)
	}
	switch strings.ToLower(c.Encoding) {
	case "utf-8", "utf8", "latin-1", "latin1", "iso-8859-1", "cp1252", "windows-1252":
	default:
		return fmt.Errorf("unsupported --encoding %q (utf-8, latin-1, cp1252)", c.Encoding)
	}
	if c.MaxUnmatchedRatio < 0 || c.MaxUnmatchedRatio > 1 {
		return fmt.Errorf("--max-unmatched-ratio must be within [0, 1], got %g", c.MaxUnmatchedRatio)
	}
	return c.Rules.Validate()
}

// ValidateWithDSN checks both file and DSN fields.
func (c *Config) ValidateWithDSN() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.DSN == "" {
		return fmt.Errorf("--dsn or RIPSFIX_DB_URL is required")
	}
	return nil
}

// DelimiterRune returns the configured reference delimiter.
func (c *Config) DelimiterRune() rune {
	r := []rune(c.Delimiter)
	if len(r) == 0 {
		return ','
	}
	return r[0]
}
