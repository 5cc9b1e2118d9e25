package synthcorona

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalSource = `
CFG
TEMPO: 140
BEAT: 4
RATE: 44100
DEPTH: 16
NAME: Test Song
STEREO
NORMALIZE: F

INS
a: 9

SEQ tune
C4: |a--|

SNG
tune
`

func writeSource(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.sc")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestParseMinimalSong(t *testing.T) {
	path := writeSource(t, minimalSource)

	p := NewParser()
	require.NoError(t, p.Parse(path))

	assert.Equal(t, 140, p.Tempo)
	assert.Equal(t, 4, p.Beat)
	assert.Equal(t, 44100, p.Rate)
	assert.Equal(t, 16, p.Depth)
	assert.Equal(t, "Test Song", p.Name)
	assert.True(t, p.Stereo)
	assert.False(t, p.Normalize)

	song := p.Song()
	require.NotNil(t, song)
	assert.Greater(t, song.Length(), 0.0)
}

func TestParseImportMerge(t *testing.T) {
	dir := t.TempDir()
	libPath := filepath.Join(dir, "lib.sc")
	mainPath := filepath.Join(dir, "main.sc")

	require.NoError(t, os.WriteFile(libPath, []byte(`
INS
a: 9
`), 0o644))
	require.NoError(t, os.WriteFile(mainPath, []byte(`
IMP lib.sc

SEQ tune
C4: |a--|

SNG
tune
`), 0o644))

	p := NewParser()
	require.NoError(t, p.Parse(mainPath))
	assert.Contains(t, p.insts, "a")
}

func TestParseMissingMetaCloseBracket(t *testing.T) {
	path := writeSource(t, `
INS
a<period=100: 9
`)
	p := NewParser()
	err := p.Parse(path)
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Msg, "Missing '>'")
}

func TestParseUnrecognizedInstrumentInSeqLine(t *testing.T) {
	path := writeSource(t, `
SEQ melody
C4: |z--|

SNG
melody
`)
	p := NewParser()
	err := p.Parse(path)
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Msg, "Unrecognized Instrument")
}

func TestParseInvalidPitch(t *testing.T) {
	path := writeSource(t, `
SEQ melody
ZZ9: |a--|
`)
	p := NewParser()
	err := p.Parse(path)
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Msg, "Invalid Pitch")
}

func TestParseModuleCrossRejectsNonBinaryOperator(t *testing.T) {
	p := NewParser()
	_, _, err := p.parseModule("9xi9", kindInst, 1)
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Msg, "Invalid Operator for Cross module")
}

func TestParseModuleStackedUnaryPrefixes(t *testing.T) {
	p := NewParser()
	mdl, _, err := p.parseModule("-c5", kindInst, 1)
	require.NoError(t, err)

	inv, ok := mdl.(*Invert)
	require.True(t, ok, "-c5 must parse as Invert wrapping Const")
	_, ok = inv.mdl.(*Const)
	assert.True(t, ok, "-c5 must wrap a Const, not resolve the prefixes out of order")
}

func TestParseBaseMetaCopiesFromExistingInstrument(t *testing.T) {
	path := writeSource(t, `
INS
a<period=200,loop=T,sus=T>: 9
b<BASE=a>: 4
`)
	p := NewParser()
	require.NoError(t, p.Parse(path))

	a, b := p.insts["a"], p.insts["b"]
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Equal(t, a.period, b.period)
	assert.Equal(t, a.loop, b.loop)
	assert.Equal(t, a.sus, b.sus)
}

func TestParseModuleLengthOperator(t *testing.T) {
	p := NewParser()
	mdl, _, err := p.parseModule("5n3", kindInst, 1)
	require.NoError(t, err)

	ln, ok := mdl.(*Length)
	require.True(t, ok, "'n' must parse as a Length module")
	assert.Equal(t, 3.0, ln.Length())
}

func TestParsePanMetaAcceptsNegativeLiteral(t *testing.T) {
	p := NewParser()
	m, err := p.parsePanMeta("-9")
	require.NoError(t, err)
	require.NotNil(t, m)
	_, ok := m.(*Invert)
	assert.True(t, ok)
}
