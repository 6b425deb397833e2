package utils

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug", "console")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1)) // debug

	logger, err = NewLogger("loud", "xml")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1))
	assert.True(t, logger.Core().Enabled(0)) // info

	assert.NotNil(t, OrNop(nil))
	assert.Same(t, logger, OrNop(logger))
}

func TestGuideMetrics(t *testing.T) {
	before := testutil.ToFloat64(guideRequests.WithLabelValues("historian", "ok"))

	MetricsGuideRequestStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(guideInFlight))
	MetricsGuideRequestFinished("historian", "ok", 120*time.Millisecond)
	assert.Equal(t, 0.0, testutil.ToFloat64(guideInFlight))
	assert.Equal(t, before+1, testutil.ToFloat64(guideRequests.WithLabelValues("historian", "success")))

	MetricsSetGuideSessions(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(guideSessions))
}

func TestCameraAndSocketMetrics(t *testing.T) {
	before := testutil.ToFloat64(cameraFocus.WithLabelValues("science-museum"))
	MetricsCameraFocus("science-museum")
	assert.Equal(t, before+1, testutil.ToFloat64(cameraFocus.WithLabelValues("science-museum")))

	MetricsWebSocketOpened("camera")
	MetricsWebSocketOpened("camera")
	MetricsWebSocketClosed("camera")
	assert.Equal(t, 1.0, testutil.ToFloat64(wsConnections.WithLabelValues("camera")))
}
