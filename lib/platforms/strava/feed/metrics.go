package feed

import (
	"go.opentelemetry.io/otel"
)

var meter = otel.Meter("stravatools/platforms/strava/feed")

var activitiesMerged, _ = meter.Int64Counter("feed.merged")
var kudosSent, _ = meter.Int64Counter("kudo.sent")
