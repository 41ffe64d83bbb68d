package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRational(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Rational
		wantErr bool
	}{
		{name: "ntsc rate", input: "30000/1001", want: Rational{Num: 30000, Den: 1001}},
		{name: "integer rate", input: "25", want: Rational{Num: 25, Den: 1}},
		{name: "simple ratio", input: "30/1", want: Rational{Num: 30, Den: 1}},
		{name: "zero denominator", input: "30/0", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "abc/def", wantErr: true},
		{name: "expression is not evaluated", input: "30*2/1", wantErr: true},
		{name: "trailing junk", input: "30/1; rm -rf /", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRational(tt.input)

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRationalFloat(t *testing.T) {
	assert.InDelta(t, 29.97, Rational{Num: 30000, Den: 1001}.Float(), 0.001)
	assert.Equal(t, 25.0, Rational{Num: 25, Den: 1}.Float())
	assert.Equal(t, 0.0, Rational{}.Float())
}

func TestParseProbeOutput(t *testing.T) {
	withAudio := []byte(`{
		"streams": [
			{"codec_type": "video", "codec_name": "h264", "width": 1280, "height": 720, "r_frame_rate": "30000/1001"},
			{"codec_type": "audio", "codec_name": "aac"}
		],
		"format": {"duration": "12.480000"}
	}`)

	info, err := parseProbeOutput(withAudio)
	require.NoError(t, err)

	assert.Equal(t, 1280, info.Width)
	assert.Equal(t, 720, info.Height)
	assert.Equal(t, "1280x720", info.Resolution())
	assert.Equal(t, "h264", info.CodecName)
	assert.Equal(t, Rational{Num: 30000, Den: 1001}, info.FrameRate)
	assert.InDelta(t, 12.48, info.DurationSeconds, 0.0001)
	assert.True(t, info.HasAudio)
}

func TestParseProbeOutputVideoOnly(t *testing.T) {
	videoOnly := []byte(`{
		"streams": [
			{"codec_type": "video", "codec_name": "vp9", "width": 640, "height": 360, "r_frame_rate": "24/1"}
		],
		"format": {"duration": "3.5"}
	}`)

	info, err := parseProbeOutput(videoOnly)
	require.NoError(t, err)

	assert.False(t, info.HasAudio)
	assert.Equal(t, "640x360", info.Resolution())
}

func TestParseProbeOutputNoVideoStream(t *testing.T) {
	audioOnly := []byte(`{
		"streams": [{"codec_type": "audio", "codec_name": "mp3"}],
		"format": {"duration": "180.1"}
	}`)

	_, err := parseProbeOutput(audioOnly)
	assert.ErrorIs(t, err, ErrNoVideoStream)
}

func TestParseProbeOutputMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "invalid json", input: `{"streams": [`},
		{
			name: "malformed frame rate",
			input: `{"streams": [{"codec_type": "video", "width": 1, "height": 1, "r_frame_rate": "eval(x)"}]}`,
		},
		{
			name: "malformed duration",
			input: `{"streams": [{"codec_type": "video", "width": 1, "height": 1}], "format": {"duration": "abc"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseProbeOutput([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}
