package lexicon

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDict = `;;; sample entries
HELLO  HH AH0 L OW1
HELLO(1)  HH EH0 L OW1
WORLD  W ER1 L D
DON'T  D OW1 N T
`

func TestLoadParsesVariantsInOrder(t *testing.T) {
	dict, err := Load(strings.NewReader(sampleDict))
	require.NoError(t, err)

	variants, ok := dict.Lookup("hello")
	require.True(t, ok)
	require.Len(t, variants, 2)
	assert.Equal(t, []string{"HH", "AH0", "L", "OW1"}, variants[0])
	assert.Equal(t, []string{"HH", "EH0", "L", "OW1"}, variants[1])

	variants, ok = dict.Lookup("don't")
	require.True(t, ok)
	assert.Equal(t, []string{"D", "OW1", "N", "T"}, variants[0])
}

func TestLookupMissing(t *testing.T) {
	dict, err := Load(strings.NewReader(sampleDict))
	require.NoError(t, err)
	_, ok := dict.Lookup("xyzzyplonk")
	assert.False(t, ok)
}

func TestLoadRejectsMalformedLine(t *testing.T) {
	_, err := Load(strings.NewReader("HELLO\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cmudict.dict")
	require.NoError(t, os.WriteFile(path, []byte(sampleDict), 0o644))
	dict, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, dict, 3)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.dict"))
	require.Error(t, err)
}
