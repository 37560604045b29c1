package presence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	reports []time.Time
	err     error
}

func (r *recordingReporter) ReportAlive(t time.Time) error {
	if r.err != nil {
		return r.err
	}
	r.reports = append(r.reports, t)
	return nil
}

func TestDetectorThrottlesSignals(t *testing.T) {
	reporter := &recordingReporter{}
	detector := NewDetector(reporter)

	base := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	for i := 0; i <= 11; i++ {
		require.NoError(t, detector.Signal(base.Add(time.Duration(i)*time.Second)))
	}

	require.Len(t, reporter.reports, 2)
	require.Equal(t, base, reporter.reports[0])
	require.Equal(t, base.Add(10*time.Second), reporter.reports[1])
	require.Equal(t, StateListening, detector.State())
}

func TestDetectorFirstSignalReportsImmediately(t *testing.T) {
	reporter := &recordingReporter{}
	detector := NewDetector(reporter)

	at := time.Date(2026, time.March, 2, 14, 30, 0, 0, time.UTC)
	require.NoError(t, detector.Signal(at))
	require.Len(t, reporter.reports, 1)
}

func TestDetectorDisablesPermanentlyOnReportFailure(t *testing.T) {
	reporter := &recordingReporter{err: errors.New("runtime torn down")}
	detector := NewDetector(reporter)

	base := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	require.ErrorIs(t, detector.Signal(base), ErrDisabled)
	require.Equal(t, StateDisabled, detector.State())

	// Even a healthy reporter cannot resurrect a disabled detector.
	reporter.err = nil
	for i := 1; i < 30; i++ {
		require.ErrorIs(t, detector.Signal(base.Add(time.Duration(i)*time.Minute)), ErrDisabled)
	}
	require.Empty(t, reporter.reports)
	require.True(t, detector.Disabled())
}

func TestDetectorRunStopsWhenDisabled(t *testing.T) {
	reporter := &recordingReporter{err: errors.New("gone")}
	detector := NewDetector(reporter)

	signals := make(chan time.Time, 2)
	signals <- time.Now()
	signals <- time.Now()
	close(signals)

	err := detector.Run(context.Background(), signals)
	require.ErrorIs(t, err, ErrDisabled)
}

func TestDetectorRunDrainsClosedChannel(t *testing.T) {
	reporter := &recordingReporter{}
	detector := NewDetector(reporter)

	signals := make(chan time.Time, 1)
	signals <- time.Now()
	close(signals)

	require.NoError(t, detector.Run(context.Background(), signals))
	require.Len(t, reporter.reports, 1)
}
