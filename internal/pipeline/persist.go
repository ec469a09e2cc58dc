package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	"github.com/gyeh/ripsfix/internal/normalize"
	"github.com/gyeh/ripsfix/internal/rips"
)

// backupSuffix is appended to the record path for the pre-overwrite copy.
const backupSuffix = ".backup"

// PersistResult describes the written output.
type PersistResult struct {
	OutputPath   string
	OutputSHA256 string
	BackupPath   string
	Bytes        int
	Duration     time.Duration
}

// Persist encodes doc and writes it to outPath, or over recordsPath when
// outPath is empty. With backup set, an in-place overwrite first copies the
// original bytes to recordsPath + ".backup". Both files are replaced
// atomically.
func Persist(log zerolog.Logger, doc *rips.Document, recordsPath, outPath string, backup bool) (*PersistResult, error) {
	start := time.Now()

	data, err := rips.Encode(doc)
	if err != nil {
		return nil, fmt.Errorf("persist encode: %w", err)
	}

	res := &PersistResult{OutputPath: outPath, Bytes: len(data)}
	if res.OutputPath == "" {
		res.OutputPath = recordsPath
	}

	if backup && sameFile(res.OutputPath, recordsPath) {
		res.BackupPath = recordsPath + backupSuffix
		if err := copyFile(recordsPath, res.BackupPath); err != nil {
			return nil, fmt.Errorf("persist backup: %w", err)
		}
		log.Info().Str("backup", res.BackupPath).Msg("backup written")
	}

	if err := writeAtomic(res.OutputPath, data); err != nil {
		return nil, fmt.Errorf("persist write: %w", err)
	}
	res.OutputSHA256 = normalize.ContentHash(data)
	res.Duration = time.Since(start)

	log.Info().
		Str("output", res.OutputPath).
		Int("bytes", res.Bytes).
		Str("sha256", res.OutputSHA256).
		Dur("duration", res.Duration).
		Msg("records written")
	return res, nil
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	return renameio.WriteFile(dst, data, info.Mode().Perm())
}

// writeAtomic replaces path with data through a synced temp file and a
// rename. An existing file keeps its mode; a new one gets 0644.
func writeAtomic(path string, data []byte) error {
	return renameio.WriteFile(path, data, 0644, renameio.WithExistingPermissions())
}
