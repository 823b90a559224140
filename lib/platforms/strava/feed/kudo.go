package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"stravatools/lib/platforms/strava/core"
	"stravatools/lib/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const report_kudo_send = "kudo.send"

// KudoSuccess is the value of the "success" field of an accepted kudo.
const KudoSuccess = "true"

type kudoResponse struct {
	Success any `json:"success"`
}

// SendKudo gives a kudo to the activity. It reports whether the site accepted
// it, every failure is reported through `tel` and turns into false.
func SendKudo(ctx context.Context, client *core.Client, activityId string, tel telemetry.API) bool {
	return GiveKudo(ctx, client, activityId, tel) == nil
}

// GiveKudo is SendKudo with the reason of a refused kudo, a logged-out reply
// wraps core.ErrNotAuthenticated.
func GiveKudo(ctx context.Context, client *core.Client, activityId string, tel telemetry.API) error {
	ctx, span := tracer.Start(ctx, "kudo:Send", trace.WithAttributes(
		attribute.String("activity_id", activityId),
	))
	defer span.End()

	if tel == nil {
		tel = telemetry.SlogAPI{}
	}

	res, err := client.Post(ctx, fmt.Sprintf(core.PathKudo, activityId), nil, core.RequestOptions{RequireAuth: true})
	if err != nil {
		tel.ReportWarning(report_kudo_send, activityId, err)
		return err
	}

	var body kudoResponse
	err = json.Unmarshal(res.Body(), &body)
	if err != nil {
		err = fmt.Errorf("decode response: %w", err)
		tel.ReportWarning(report_kudo_send, activityId, err)
		return err
	}
	success, _ := body.Success.(string)
	if success != KudoSuccess {
		err = fmt.Errorf("not accepted: %v", body.Success)
		tel.ReportWarning(report_kudo_send, activityId, err)
		return err
	}

	kudosSent.Add(ctx, 1)
	return nil
}
