package session

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams_Defaults(t *testing.T) {
	q := url.Values{}
	q.Set("uid", "user-1")

	p, err := ParseParams(q)
	require.NoError(t, err)

	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, ModeEdge, p.Mode, "no negotiated audio format means an edge session")
	assert.Equal(t, "en-US", p.Language)
}

func TestParseParams_AudioFormat(t *testing.T) {
	q := url.Values{}
	q.Set("uid", "user-1")
	q.Set("language", "de-DE")
	q.Set("sample_rate", "44100")
	q.Set("codec", "OGG_OPUS")
	q.Set("channels", "2")

	p, err := ParseParams(q)
	require.NoError(t, err)

	assert.Equal(t, ModeAudio, p.Mode)
	assert.Equal(t, "de-DE", p.Language)
	assert.Equal(t, "de-DE", p.Audio.LanguageCode)
	assert.Equal(t, 44100, p.Audio.SampleRateHz)
	assert.Equal(t, "OGG_OPUS", p.Audio.Encoding)
	assert.Equal(t, 2, p.Audio.Channels)
}

func TestParseParams_EdgeCodec(t *testing.T) {
	q := url.Values{}
	q.Set("uid", "user-1")
	q.Set("codec", "edge")
	q.Set("sample_rate", "16000")

	p, err := ParseParams(q)
	require.NoError(t, err)
	assert.Equal(t, ModeEdge, p.Mode)
	assert.Equal(t, "LINEAR16", p.Audio.Encoding, "the edge marker is not an audio encoding")
}

func TestParseParams_MissingUserID(t *testing.T) {
	_, err := ParseParams(url.Values{})
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestParseParams_InvalidNumbersIgnored(t *testing.T) {
	q := url.Values{}
	q.Set("uid", "user-1")
	q.Set("sample_rate", "not-a-number")
	q.Set("channels", "-3")

	p, err := ParseParams(q)
	require.NoError(t, err)
	assert.Equal(t, ModeAudio, p.Mode)
	assert.Equal(t, 16000, p.Audio.SampleRateHz)
	assert.Equal(t, 1, p.Audio.Channels)
}
