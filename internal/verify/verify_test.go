package verify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/reelfix/internal/probe"
	"github.com/backmassage/reelfix/internal/testutil"
)

type fakeProber struct {
	desc *probe.MediaDescriptor
	err  error
}

func (f fakeProber) Probe(context.Context, string) (*probe.MediaDescriptor, error) {
	return f.desc, f.err
}

func withVideo(codec, profile, pixfmt string) fakeProber {
	return fakeProber{desc: &probe.MediaDescriptor{Streams: []probe.StreamDescriptor{
		{Index: 0, CodecType: probe.CodecAudio, CodecName: "aac"},
		{Index: 1, CodecType: probe.CodecVideo, CodecName: codec, Profile: profile, PixelFormat: pixfmt},
	}}}
}

func TestVerify_CompatibleFilePasses(t *testing.T) {
	for _, profile := range []string{"High", "Main", "Baseline"} {
		r, err := Verify(context.Background(), withVideo("h264", profile, "yuv420p"), "out.mp4", DefaultProfile())
		require.NoError(t, err)
		assert.True(t, r.Passed, profile)
		assert.Equal(t, map[string]bool{CheckCodec: true, CheckProfile: true, CheckPixFmt: true}, r.Checks)
		assert.Empty(t, r.Details)
		assert.Equal(t, 1, r.Stream.Index)
	}
}

func TestVerify_Mismatches(t *testing.T) {
	r, err := Verify(context.Background(), withVideo("hevc", "Main 10", "yuv420p10le"), "out.mkv", DefaultProfile())
	require.NoError(t, err)

	assert.False(t, r.Passed)
	assert.Equal(t, []string{CheckCodec, CheckProfile, CheckPixFmt}, r.Order)
	assert.Equal(t, []string{
		"codec_name: got hevc, want h264",
		"profile: got Main 10, want one of High, Main, Baseline",
		"pix_fmt: got yuv420p10le, want yuv420p",
	}, r.Details)
}

func TestCheck_SingleFailure(t *testing.T) {
	r := Check(probe.StreamDescriptor{CodecName: "h264", Profile: "High 4:4:4 Predictive", PixelFormat: "yuv420p"}, DefaultProfile())
	assert.False(t, r.Passed)
	assert.True(t, r.Checks[CheckCodec])
	assert.False(t, r.Checks[CheckProfile])
	assert.True(t, r.Checks[CheckPixFmt])
	assert.Len(t, r.Details, 1)
}

func TestCheck_MissingProfileFails(t *testing.T) {
	r := Check(probe.StreamDescriptor{CodecName: "h264", PixelFormat: "yuv420p"}, DefaultProfile())
	assert.False(t, r.Passed)
	assert.Contains(t, r.Details[0], "(none)")
}

func TestVerify_ProbeFailureIsNotAPass(t *testing.T) {
	probeErr := &probe.Error{Path: "out.mp4", Stderr: "moov atom not found", Err: errors.New("exit status 1")}
	r, err := Verify(context.Background(), fakeProber{err: probeErr}, "out.mp4", DefaultProfile())

	assert.Nil(t, r)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.ErrorIs(t, err, probe.ErrProbeFailed)
	assert.Contains(t, err.Error(), "moov atom not found")
}

func TestVerify_NoVideoStream(t *testing.T) {
	p := fakeProber{desc: &probe.MediaDescriptor{Streams: []probe.StreamDescriptor{{CodecType: probe.CodecAudio, CodecName: "aac"}}}}
	_, err := Verify(context.Background(), p, "out.m4a", DefaultProfile())
	assert.ErrorIs(t, err, ErrVerificationFailed)
}

func TestVerify_Timeout(t *testing.T) {
	bin := testutil.WriteScript(t, t.TempDir(), "ffprobe", "exec sleep 5")
	v := &Verifier{Prober: probe.New(bin), Profile: DefaultProfile(), Timeout: 100 * time.Millisecond}

	start := time.Now()
	_, err := v.Verify(context.Background(), "out.mp4")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)
	assert.ErrorIs(t, err, ErrVerificationFailed)

	var ve *Error
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Reason, "timed out")
}
