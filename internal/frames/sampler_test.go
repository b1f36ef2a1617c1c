package frames

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screencast-insights-go/internal/config"
)

type fakeDecoder struct {
	duration    float64
	durationErr error
	failAt      map[float64]error
	seeks       []float64
}

func (d *fakeDecoder) Duration(context.Context) (float64, error) {
	return d.duration, d.durationErr
}

func (d *fakeDecoder) FrameAt(_ context.Context, t float64) ([]byte, error) {
	d.seeks = append(d.seeks, t)
	if err, ok := d.failAt[t]; ok {
		return nil, err
	}
	return []byte(fmt.Sprintf("jpeg@%.3f", t)), nil
}

func keyframeSampler(fractions ...float64) *Sampler {
	cfg := config.Default()
	if len(fractions) > 0 {
		cfg.SampleFractions = fractions
	}
	return NewSampler(cfg)
}

func cadenceSampler(every float64) *Sampler {
	cfg := config.Default()
	cfg.SampleMode = config.SampleCadence
	cfg.CadenceSeconds = every
	return NewSampler(cfg)
}

func cappedKeyframeSampler(max int, fractions ...float64) *Sampler {
	cfg := config.Default()
	cfg.MaxFrames = max
	cfg.SampleFractions = fractions
	return NewSampler(cfg)
}

func TestLongCadenceClipStaysWithinFrameCap(t *testing.T) {
	dec := &fakeDecoder{duration: 600}
	got, err := cadenceSampler(2).Sample(context.Background(), dec)
	require.NoError(t, err)
	assert.Len(t, got, config.DefaultMaxFrames)
	assert.Len(t, dec.seeks, config.DefaultMaxFrames, "one seek per kept point")
	assert.Equal(t, 540.0, got[len(got)-1].OffsetSeconds)
}

func TestTwoSecondClipGivesThreeKeyFrames(t *testing.T) {
	dec := &fakeDecoder{duration: 2}
	got, err := keyframeSampler(0.1, 0.5, 0.9).Sample(context.Background(), dec)
	require.NoError(t, err)
	require.Len(t, got, 3)

	seen := map[float64]bool{}
	for _, f := range got {
		assert.Less(t, f.OffsetSeconds, 2.0)
		assert.False(t, seen[f.OffsetSeconds], "timestamps must be distinct")
		seen[f.OffsetSeconds] = true
	}
	assert.Equal(t, []float64{0.2, 1.0, 1.8}, dec.seeks)
}

func TestTimes(t *testing.T) {
	tests := []struct {
		name     string
		sampler  *Sampler
		duration float64
		want     []float64
	}{
		{name: "keyframes", sampler: keyframeSampler(), duration: 10, want: []float64{1, 5, 9}},
		{name: "zero duration", sampler: keyframeSampler(), duration: 0, want: nil},
		{name: "duplicate fractions collapse", sampler: keyframeSampler(0.5, 0.5), duration: 4, want: []float64{2}},
		{name: "tiny clip rounds together", sampler: keyframeSampler(0.1, 0.1001), duration: 0.001, want: []float64{0}},
		{name: "cadence", sampler: cadenceSampler(2), duration: 7, want: []float64{0, 2, 4, 6}},
		{name: "cadence boundary skipped", sampler: cadenceSampler(2), duration: 6, want: []float64{0, 2, 4}},
		{name: "cadence short clip", sampler: cadenceSampler(5), duration: 1, want: []float64{0}},
		{name: "cadence widens to the frame cap", sampler: cadenceSampler(2), duration: 30,
			want: []float64{0, 3, 6, 9, 12, 15, 18, 21, 24, 27}},
		{name: "keyframes truncate to the frame cap", sampler: cappedKeyframeSampler(2, 0.1, 0.5, 0.9), duration: 10,
			want: []float64{1, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sampler.Times(tt.duration))
		})
	}
}

func TestPastEndPointsAreSkipped(t *testing.T) {
	dec := &fakeDecoder{duration: 10, failAt: map[float64]error{9: ErrPastEnd}}
	got, err := keyframeSampler().Sample(context.Background(), dec)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, []float64{1, 5, 9}, dec.seeks, "skipped point is not retried")
}

func TestDecodeFailureIsFatal(t *testing.T) {
	boom := errors.New("corrupt stream")
	dec := &fakeDecoder{duration: 10, failAt: map[float64]error{5: boom}}
	got, err := keyframeSampler().Sample(context.Background(), dec)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, boom)
}

func TestProbeFailureIsFatal(t *testing.T) {
	dec := &fakeDecoder{durationErr: errors.New("not a video")}
	_, err := keyframeSampler().Sample(context.Background(), dec)
	assert.ErrorContains(t, err, "probe duration")
}

func TestNoFrames(t *testing.T) {
	dec := &fakeDecoder{duration: 0}
	_, err := keyframeSampler().Sample(context.Background(), dec)
	assert.ErrorIs(t, err, ErrNoFrames)
}

func TestFramesIsLazyAndRestartable(t *testing.T) {
	dec := &fakeDecoder{duration: 10}
	seq := keyframeSampler().Frames(context.Background(), dec)

	for f, err := range seq {
		require.NoError(t, err)
		assert.Equal(t, 1.0, f.OffsetSeconds)
		break
	}
	assert.Len(t, dec.seeks, 1, "only one seek before the consumer stopped")

	count := 0
	for _, err := range seq {
		require.NoError(t, err)
		count++
	}
	assert.Equal(t, 3, count)
}

func TestParseDuration(t *testing.T) {
	d, ok := parseDuration([]byte("12.480000\n"))
	assert.True(t, ok)
	assert.Equal(t, 12.48, d)

	_, ok = parseDuration([]byte("N/A\n"))
	assert.False(t, ok)

	d, ok = maxTimestamp([]byte("0.000000\n0.033000,\n4.967000\n\n"))
	assert.True(t, ok)
	assert.Equal(t, 4.967, d)
}
