package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedSetValidates(t *testing.T) {
	set := NewSet(nil)

	require.NoError(t, set.Validate())

	files, err := set.List()
	require.NoError(t, err)
	assert.Contains(t, files, "001_create_star_schema.up.sql")
	assert.Contains(t, files, "001_create_star_schema.down.sql")
}

func TestSet_ListRejectsNonconformingNames(t *testing.T) {
	set := NewSet(fstest.MapFS{
		"001_valid.up.sql":      {Data: []byte("SELECT 1;")},
		"001_valid.down.sql":    {Data: []byte("SELECT 1;")},
		"2_bad_sequence.up.sql": {Data: []byte("SELECT 1;")},
		"notes.txt":             {Data: []byte("not a migration")},
		"001_bad-dash.up.sql":   {Data: []byte("SELECT 1;")},
	})

	files, err := set.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"001_valid.down.sql", "001_valid.up.sql"}, files)
}

func TestSet_ValidateDetectsOrphans(t *testing.T) {
	set := NewSet(fstest.MapFS{
		"001_schema.up.sql": {Data: []byte("CREATE TABLE t (id INT);")},
	})

	err := set.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing down migration")
}

func TestSet_ValidateDetectsSequenceGap(t *testing.T) {
	set := NewSet(fstest.MapFS{
		"001_first.up.sql":   {Data: []byte("SELECT 1;")},
		"001_first.down.sql": {Data: []byte("SELECT 1;")},
		"003_third.up.sql":   {Data: []byte("SELECT 1;")},
		"003_third.down.sql": {Data: []byte("SELECT 1;")},
	})

	err := set.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gap in migration sequence")
}

func TestSet_ValidateRequiresStartAtOne(t *testing.T) {
	set := NewSet(fstest.MapFS{
		"002_second.up.sql":   {Data: []byte("SELECT 1;")},
		"002_second.down.sql": {Data: []byte("SELECT 1;")},
	})

	err := set.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "should start with 001")
}

func TestSet_ValidateDetectsModifiedContent(t *testing.T) {
	fsys := fstest.MapFS{
		"001_schema.up.sql":   {Data: []byte("CREATE TABLE t (id INT);")},
		"001_schema.down.sql": {Data: []byte("DROP TABLE t;")},
	}
	set := NewSet(fsys)

	require.NoError(t, set.Validate())

	fsys["001_schema.up.sql"].Data = []byte("CREATE TABLE tampered (id INT);")

	err := set.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
}

func TestSet_MaxSequence(t *testing.T) {
	assert.Equal(t, 3, NewSet(nil).MaxSequence())

	empty := NewSet(fstest.MapFS{})
	assert.Equal(t, 0, empty.MaxSequence())
}
