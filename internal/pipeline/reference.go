package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/ripsfix/internal/config"
	"github.com/gyeh/ripsfix/internal/diagindex"
	"github.com/gyeh/ripsfix/internal/model"
	"github.com/gyeh/ripsfix/internal/reftable"
)

// ReferenceResult holds the index and nullification set built from the
// side-loaded reference files.
type ReferenceResult struct {
	Index    *diagindex.Index
	Stats    diagindex.BuildStats
	Nullify  model.NullificationSet
	Degraded bool
	Duration time.Duration
}

// LoadReference reads the reference table and the optional nullification
// code list. A reference table without the required columns fails unless
// cfg.AllowEmptyIndex is set, in which case an empty index is returned and
// the run continues degraded.
func LoadReference(log zerolog.Logger, cfg *config.Config) (*ReferenceResult, error) {
	start := time.Now()
	opts := reftable.Options{
		Delimiter: cfg.DelimiterRune(),
		Encoding:  cfg.Encoding,
		Sheet:     cfg.Sheet,
	}

	res := &ReferenceResult{}

	nullify := model.NewNullificationSet()
	if cfg.NullifyPath != "" {
		set, err := reftable.LoadNullificationSet(cfg.NullifyPath, opts)
		if err != nil {
			return nil, fmt.Errorf("load nullification codes: %w", err)
		}
		nullify = set
		log.Info().
			Str("file", filepath.Base(cfg.NullifyPath)).
			Int("codes", set.Len()).
			Msg("nullification codes loaded")
		log.Debug().Strs("codes", set.Codes()).Msg("nullification list")
	}
	res.Nullify = nullify

	rows, mapping, err := reftable.LoadReference(cfg.ReferencePath, opts)
	var cie *reftable.ColumnIdentificationError
	switch {
	case errors.As(err, &cie) && cfg.AllowEmptyIndex:
		log.Warn().
			Strs("missing", cie.Missing).
			Strs("available", cie.Available).
			Msg("reference columns not identified, continuing with an empty index")
		res.Index = diagindex.Empty()
		res.Degraded = true
		res.Duration = time.Since(start)
		return res, nil
	case err != nil:
		return nil, fmt.Errorf("load reference table: %w", err)
	}

	headers := zerolog.Dict()
	for role := reftable.RolePatientDocType; role <= reftable.RoleProfessionalDocNumber; role++ {
		h := mapping.Header[role]
		if mapping.Partial[role] {
			h += " (partial)"
		}
		headers.Str(role.String(), h)
	}
	log.Info().Dict("columns", headers).Msg("reference columns identified")

	idx, stats := diagindex.BuildWithStats(rows, diagindex.ChainFromRules(cfg.Rules))
	res.Index = idx
	res.Stats = stats
	res.Duration = time.Since(start)

	if e := log.Debug(); e.Enabled() {
		keys := zerolog.Arr()
		for _, k := range idx.Keys(5) {
			keys.Str(k.String())
		}
		e.Array("first_keys", keys).Msg("reference sample")
	}
	log.Info().
		Str("file", filepath.Base(cfg.ReferencePath)).
		Int("rows", stats.Rows).
		Int("indexed", stats.Indexed).
		Int("skipped", stats.Skipped).
		Int("duplicates", stats.Duplicates).
		Dur("duration", res.Duration).
		Msg("diagnostic index built")

	return res, nil
}
