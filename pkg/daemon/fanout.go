package daemon

import (
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/wle/pkg/events"
	"github.com/charlie0129/wle/pkg/level"
	"github.com/charlie0129/wle/pkg/metrics"
	"github.com/charlie0129/wle/pkg/status"
)

// Fanout delivers an accepted level to every output channel.
type Fanout struct {
	detector  *level.Detector
	page      *status.Page
	hub       *events.Hub
	telemetry Telemetry
	metrics   *metrics.Metrics
}

// Emit records newLevel as the last emitted level, then updates the status
// page, pushes the event and publishes it to the telemetry broker if a
// session is up. Every channel sees the level truncated toward zero.
func (f *Fanout) Emit(newLevel float64) {
	f.detector.Set(newLevel)
	lvl := int(newLevel)

	if f.page != nil {
		if err := f.page.Render(lvl); err != nil {
			logrus.Errorf("failed to update status page: %v", err)
		}
	}

	delivered := f.hub.Publish(events.NewLevelEvent(lvl))

	if f.telemetry != nil && f.telemetry.Connected() {
		if err := f.telemetry.PublishLevel(lvl); err != nil {
			f.metrics.TelemetryPublishError()
			logrus.Errorf("failed to publish level: %v", err)
		}
	}

	f.metrics.Emission(lvl)

	logrus.WithFields(logrus.Fields{
		"level":     lvl,
		"delivered": delivered,
	}).Infof("water level changed to %d%%", lvl)
}
