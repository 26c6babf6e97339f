// internal/pipeline/synthesize/fallback.go
package synthesize

import (
	"fmt"

	"portlink-orchestrator/internal/models"
)

// fallbackCarrier renders a deterministic conversational answer straight from
// the aggregation counts. No network dependency.
func fallbackCarrier(classification *models.IntentClassification, aggregated *models.AggregatedResponse) *models.CarrierOutput {
	completed := len(aggregated.CompletedTasks)
	failed := len(aggregated.FailedTasks)

	out := &models.CarrierOutput{
		Summary: fmt.Sprintf("%d of %d requested operations completed", completed, completed+failed),
	}

	switch {
	case failed == 0:
		out.Message = "All done. Your request was completed successfully."
		out.NextSteps = []string{"You will receive a confirmation shortly."}
	case completed == 0:
		out.Message = "Sorry, none of the requested operations could be completed right now. Please try again later."
		out.Warnings = failedToolWarnings(aggregated)
	default:
		out.Message = fmt.Sprintf("Part of your request was completed: %d operation(s) succeeded, %d failed.", completed, failed)
		out.Warnings = failedToolWarnings(aggregated)
		out.NextSteps = []string{"Retry the failed operations or contact the terminal office."}
	}

	if details := bookingDetails(aggregated); len(details) > 0 {
		out.BookingDetails = details
	}

	return out
}

// fallbackDashboard renders the structured shape from the same counts.
func fallbackDashboard(classification *models.IntentClassification, aggregated *models.AggregatedResponse) *models.DashboardOutput {
	completed := len(aggregated.CompletedTasks)
	failed := len(aggregated.FailedTasks)

	out := &models.DashboardOutput{
		Title:   dashboardTitle(classification.Intent),
		Summary: fmt.Sprintf("%d of %d operations completed", completed, completed+failed),
		KPIs: []models.KPI{
			{Label: "Completed", Value: fmt.Sprintf("%d", completed)},
			{Label: "Failed", Value: fmt.Sprintf("%d", failed)},
		},
	}

	for _, id := range aggregated.CompletedTasks {
		result := aggregated.Results[id]
		out.Widgets = append(out.Widgets, models.Widget{
			Type:  "table",
			Title: result.ToolName,
			Data:  result.Data,
		})
	}

	if failed > 0 {
		out.Warnings = failedToolWarnings(aggregated)
		out.Actions = append(out.Actions, "Review failed operations")
	}

	return out
}

func dashboardTitle(intent models.Intent) string {
	switch intent {
	case models.IntentBookings:
		return "Booking Operations"
	case models.IntentSlotsAvailability:
		return "Capacity & Availability"
	default:
		return "Terminal Overview"
	}
}

func failedToolWarnings(aggregated *models.AggregatedResponse) []string {
	var warnings []string
	for _, id := range aggregated.FailedTasks {
		if result, ok := aggregated.Results[id]; ok {
			warnings = append(warnings, fmt.Sprintf("%s could not be completed", result.ToolName))
		}
	}
	return warnings
}

// bookingDetails surfaces the createBooking or getBookingStatus payload when
// one is present, since that is what a carrier asked about.
func bookingDetails(aggregated *models.AggregatedResponse) map[string]interface{} {
	for _, id := range aggregated.CompletedTasks {
		result := aggregated.Results[id]
		if result.ToolName == "createBooking" || result.ToolName == "getBookingStatus" {
			return result.Data
		}
	}
	return nil
}
