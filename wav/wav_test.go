package wav

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*os.File, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	return f, path
}

func TestNewWriterRejectsUnsupportedChannelsAndDepth(t *testing.T) {
	f, _ := openTemp(t)
	defer f.Close()

	_, err := NewWriter(f, 44100, 3, 16)
	assert.Error(t, err)

	_, err = NewWriter(f, 44100, 2, 12)
	assert.Error(t, err)
}

func TestWriterHeaderFieldsMatchChannelsAndDepth(t *testing.T) {
	f, path := openTemp(t)
	w, err := NewWriter(f, 22050, 2, 24)
	require.NoError(t, err)
	_, err = w.Finish()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	require.Equal(t, "RIFF", string(data[0:4]))
	require.Equal(t, "WAVE", string(data[8:12]))
	require.Equal(t, "fmt ", string(data[12:16]))

	channels := binary.LittleEndian.Uint16(data[22:24])
	sampleRate := binary.LittleEndian.Uint32(data[24:28])
	blockAlign := binary.LittleEndian.Uint16(data[32:34])
	bitsPerSample := binary.LittleEndian.Uint16(data[34:36])

	assert.Equal(t, uint16(2), channels)
	assert.Equal(t, uint32(22050), sampleRate)
	assert.Equal(t, uint16(2*3), blockAlign, "24-bit stereo is 3 bytes/sample * 2 channels")
	assert.Equal(t, uint16(24), bitsPerSample)
	assert.Equal(t, "data", string(data[36:40]))
}

func TestWriteFrameRejectsMismatchedChannelCount(t *testing.T) {
	f, _ := openTemp(t)
	defer f.Close()
	w, err := NewWriter(f, 44100, 2, 16)
	require.NoError(t, err)

	err = w.WriteFrame([][]float64{{0}})
	assert.Error(t, err, "a mono frame must be rejected by a stereo writer")
}

func TestWriteFrame8BitIsUnsignedAndBiased(t *testing.T) {
	f, path := openTemp(t)
	w, err := NewWriter(f, 8000, 1, 8)
	require.NoError(t, err)
	require.NoError(t, w.WriteFrame([][]float64{{0, 1, -1}}))
	_, err = w.Finish()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	sampleBytes := data[44:]
	require.Len(t, sampleBytes, 3)
	assert.Equal(t, byte(127), sampleBytes[0], "silence sits at the bias (maxInt = 2^7-1 = 127)")
	assert.Equal(t, byte(254), sampleBytes[1], "full-scale positive rounds to maxInt+maxInt")
	assert.Equal(t, byte(0), sampleBytes[2], "full-scale negative wraps to -maxInt+maxInt mod 256")
}

func TestWriteFrame16BitIsSignedLittleEndian(t *testing.T) {
	f, path := openTemp(t)
	w, err := NewWriter(f, 8000, 1, 16)
	require.NoError(t, err)
	require.NoError(t, w.WriteFrame([][]float64{{-1}}))
	_, err = w.Finish()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	sample := int16(binary.LittleEndian.Uint16(data[44:46]))
	assert.Equal(t, int16(-32767), sample)
}

func TestWriteFrameClampsOutOfRangeSamples(t *testing.T) {
	f, path := openTemp(t)
	w, err := NewWriter(f, 8000, 1, 16)
	require.NoError(t, err)
	require.NoError(t, w.WriteFrame([][]float64{{5}}))
	_, err = w.Finish()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	sample := int16(binary.LittleEndian.Uint16(data[44:46]))
	assert.Equal(t, int16(32767), sample, "samples beyond +1 must clamp to +1 before scaling")
}

func TestFinishPatchesRiffAndDataSizes(t *testing.T) {
	f, path := openTemp(t)
	w, err := NewWriter(f, 8000, 1, 16)
	require.NoError(t, err)
	require.NoError(t, w.WriteFrame([][]float64{{0, 0, 0}}))
	wlen, err := w.Finish()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.EqualValues(t, wlen, len(data))

	riffSize := binary.LittleEndian.Uint32(data[4:8])
	dataSize := binary.LittleEndian.Uint32(data[40:44])
	assert.EqualValues(t, len(data)-8, riffSize)
	assert.EqualValues(t, len(data)-44, dataSize)
	assert.EqualValues(t, 3*2, dataSize, "3 mono 16-bit samples = 6 bytes of data")
}
