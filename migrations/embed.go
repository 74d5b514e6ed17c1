// Package migrations embeds the star schema migration files and
// validates them: filename format, up/down pairing, gap-free sequence
// and checksum integrity. The migrator CLI and the integration test
// helpers both run migrations from this embedded set, so a deployed
// binary never depends on files on disk.
package migrations

import (
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// Files holds every migration embedded at build time.
//
//go:embed *.sql
var Files embed.FS

// Info contains parsed information about one migration file.
type Info struct {
	Sequence  int
	Name      string
	Direction string // "up" or "down"
	Filename  string
}

// Migration filename format: 001_migration_name.up.sql or 001_migration_name.down.sql.
var filenameRegex = regexp.MustCompile(`^(\d{3})_([a-zA-Z0-9_]+)\.(up|down)\.sql$`)

// Set is a validated collection of migration files with checksum
// tracking across repeated validations.
type Set struct {
	fs        fs.FS
	checksums map[string]string // filename -> checksum
}

// NewSet creates a migration set over the given filesystem. Pass nil to
// use the embedded migrations.
func NewSet(filesystem fs.FS) *Set {
	if filesystem == nil {
		filesystem = Files
	}

	return &Set{
		fs:        filesystem,
		checksums: make(map[string]string),
	}
}

// FS returns the underlying migration filesystem.
func (s *Set) FS() fs.FS {
	return s.fs
}

// List returns all migration files that conform to the strict naming
// standard, sorted. Nonconforming filenames are rejected to prevent
// operational mistakes.
func (s *Set) List() ([]string, error) {
	entries, err := fs.ReadDir(s.fs, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		filename := entry.Name()
		if filepath.Ext(filename) == ".sql" && filenameRegex.MatchString(filename) {
			files = append(files, filename)
		}
	}

	// Lexicographic sort matches sequence order under this naming standard.
	sort.Strings(files)

	return files, nil
}

// Validate performs full validation of the migration set: filename
// format, up/down pairing, sequence continuity and checksum integrity
// against any previously recorded checksums.
func (s *Set) Validate() error {
	files, err := s.List()
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("no migration files found")
	}

	infos := make([]*Info, 0, len(files))

	for _, file := range files {
		info, err := parseFilename(file)
		if err != nil {
			return fmt.Errorf("filename validation failed for %s: %w", file, err)
		}

		infos = append(infos, info)
	}

	if err := validatePairing(infos); err != nil {
		return err
	}

	if err := validateSequence(infos); err != nil {
		return err
	}

	return s.validateChecksums(files)
}

// Content returns the content of one migration file.
func (s *Set) Content(filename string) ([]byte, error) {
	return fs.ReadFile(s.fs, filename)
}

// MaxSequence returns the highest migration sequence number in the set,
// or 0 if the set cannot be read.
func (s *Set) MaxSequence() int {
	files, err := s.List()
	if err != nil {
		return 0
	}

	maxSeq := 0

	for _, filename := range files {
		if info, err := parseFilename(filename); err == nil && info.Sequence > maxSeq {
			maxSeq = info.Sequence
		}
	}

	return maxSeq
}

func parseFilename(filename string) (*Info, error) {
	matches := filenameRegex.FindStringSubmatch(filename)
	if len(matches) != 4 {
		return nil, fmt.Errorf(
			"invalid migration filename format: %s (expected: 001_name.up.sql or 001_name.down.sql)",
			filename,
		)
	}

	sequence, err := strconv.Atoi(matches[1])
	if err != nil {
		return nil, fmt.Errorf("invalid sequence number in filename %s: %w", filename, err)
	}

	return &Info{
		Sequence:  sequence,
		Name:      matches[2],
		Direction: matches[3],
		Filename:  filename,
	}, nil
}

// validatePairing ensures every up migration has a matching down migration.
func validatePairing(infos []*Info) error {
	pairs := make(map[string]map[string]bool) // sequence_name -> direction

	for _, info := range infos {
		key := fmt.Sprintf("%03d_%s", info.Sequence, info.Name)
		if pairs[key] == nil {
			pairs[key] = make(map[string]bool)
		}

		pairs[key][info.Direction] = true
	}

	for key, directions := range pairs {
		if !directions["up"] {
			return fmt.Errorf("orphaned down migration: missing up migration for %s", key)
		}

		if !directions["down"] {
			return fmt.Errorf("orphaned up migration: missing down migration for %s", key)
		}
	}

	return nil
}

// validateSequence ensures migrations start at 001 with no gaps.
func validateSequence(infos []*Info) error {
	seen := make(map[int]bool)
	for _, info := range infos {
		seen[info.Sequence] = true
	}

	sequences := make([]int, 0, len(seen))
	for seq := range seen {
		sequences = append(sequences, seq)
	}

	sort.Ints(sequences)

	if len(sequences) == 0 {
		return nil
	}

	if sequences[0] != 1 {
		return fmt.Errorf("migration sequence should start with 001, but found %03d", sequences[0])
	}

	for i := 1; i < len(sequences); i++ {
		if sequences[i] != sequences[i-1]+1 {
			return fmt.Errorf("gap in migration sequence: expected %03d, found %03d",
				sequences[i-1]+1, sequences[i])
		}
	}

	return nil
}

// validateChecksums verifies files have not changed since the last
// validation, then records current checksums for the next one.
func (s *Set) validateChecksums(files []string) error {
	for _, file := range files {
		content, err := s.Content(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		checksum := fmt.Sprintf("%x", sha256.Sum256(content))

		if stored, exists := s.checksums[file]; exists && stored != checksum {
			return fmt.Errorf("checksum mismatch for %s: file has been modified", file)
		}

		s.checksums[file] = checksum
	}

	return nil
}
