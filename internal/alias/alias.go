package alias

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Normalizer folds issuing-authority name variants onto one canonical string
// so "DNV GL" and "Det Norske Veritas" stop producing distinct records. The
// table is immutable after construction; lookups are case-insensitive and
// unknown names pass through trimmed but otherwise unchanged.
type Normalizer struct {
	table  map[string]string // lowercased variant -> canonical
	logger *slog.Logger
}

// Classification societies and flag-state bodies that show up on ship
// certificates, keyed by the variants their paperwork actually carries.
var builtinTable = map[string]string{
	"dnv":                          "DNV",
	"dnv gl":                       "DNV",
	"dnv-gl":                       "DNV",
	"det norske veritas":           "DNV",
	"abs":                          "ABS",
	"american bureau of shipping":  "ABS",
	"lr":                           "Lloyd's Register",
	"lloyds register":              "Lloyd's Register",
	"lloyd's register":             "Lloyd's Register",
	"bv":                           "Bureau Veritas",
	"bureau veritas":               "Bureau Veritas",
	"nk":                           "ClassNK",
	"classnk":                      "ClassNK",
	"class nk":                     "ClassNK",
	"nippon kaiji kyokai":          "ClassNK",
	"rina":                         "RINA",
	"registro italiano navale":     "RINA",
	"kr":                           "Korean Register",
	"korean register":              "Korean Register",
	"korean register of shipping":  "Korean Register",
	"ccs":                          "CCS",
	"china classification society": "CCS",
	"rs":                           "RS",
	"russian maritime register":    "RS",
	"irs":                          "IRS",
	"indian register of shipping":  "IRS",
	"prs":                          "PRS",
	"polski rejestr statkow":       "PRS",
}

type tableFile struct {
	Aliases map[string]string `toml:"aliases"` // variant -> canonical
}

// New builds a Normalizer from the built-in table, optionally overlaid with
// entries from a TOML file:
//
//	[aliases]
//	"dnv as" = "DNV"
func New(path string, logger *slog.Logger) (*Normalizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	table := make(map[string]string, len(builtinTable))
	for k, v := range builtinTable {
		table[k] = v
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read alias table: %w", err)
		}
		var tf tableFile
		if err := toml.Unmarshal(raw, &tf); err != nil {
			return nil, fmt.Errorf("parse alias table: %w", err)
		}
		for variant, canonical := range tf.Aliases {
			table[strings.ToLower(strings.TrimSpace(variant))] = strings.TrimSpace(canonical)
		}
		logger.Info("alias.table.loaded", "path", path, "entries", len(tf.Aliases))
	}

	return &Normalizer{table: table, logger: logger}, nil
}

// Normalize returns the canonical form of an organization name, or the
// trimmed input when no alias matches.
func (n *Normalizer) Normalize(orgName string) string {
	trimmed := strings.TrimSpace(orgName)
	if trimmed == "" {
		return ""
	}
	key := strings.ToLower(strings.Join(strings.Fields(trimmed), " "))
	key = strings.TrimSuffix(key, ".")
	if canonical, ok := n.table[key]; ok {
		return canonical
	}
	return trimmed
}
