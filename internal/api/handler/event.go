package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	enumspb "go.temporal.io/api/enums/v1"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/rservers/RightClaw-Build/internal/api/request"
	"github.com/rservers/RightClaw-Build/internal/api/response"
	"github.com/rservers/RightClaw-Build/internal/metrics"
	"github.com/rservers/RightClaw-Build/internal/model"
)

// TierResolver decides whether a product is an OpenClaw tier.
type TierResolver interface {
	Resolve(ref model.ProductRef) (model.Tier, bool)
}

// Event accepts billing lifecycle hooks and starts the matching workflow.
type Event struct {
	tc       temporalclient.Client
	tiers    TierResolver
	settings model.Settings
	logger   zerolog.Logger
}

func NewEvent(tc temporalclient.Client, tiers TierResolver, settings model.Settings, logger zerolog.Logger) *Event {
	return &Event{
		tc:       tc,
		tiers:    tiers,
		settings: settings.WithDefaults(),
		logger:   logger.With().Str("component", "event-handler").Logger(),
	}
}

// Receive handles POST /events/{event}.
//
// Events for products that are not OpenClaw tiers are acknowledged with 204
// and never reach Temporal. The workflow repeats the tier check, so the
// pre-check only saves a round trip.
func (h *Event) Receive(w http.ResponseWriter, r *http.Request) {
	kind, ok := model.ParseEventKind(chi.URLParam(r, "event"))
	if !ok {
		response.WriteError(w, http.StatusNotFound, "unknown event: "+chi.URLParam(r, "event"))
		return
	}

	var req request.LifecycleEvent
	raw, err := request.DecodeRaw(r, &req)
	if err != nil {
		metrics.EventsReceived.WithLabelValues(string(kind), "rejected").Inc()
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !h.settings.DumpEvent {
		raw = nil
	}
	ev := req.ToModel(kind, raw)

	if _, ok := h.tiers.Resolve(ev.Ref()); !ok {
		metrics.EventsReceived.WithLabelValues(string(kind), "ignored").Inc()
		h.logger.Debug().Int("service_id", ev.ServiceID).Str("kind", string(kind)).Msg("not an OpenClaw product, ignoring")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	name := model.WorkflowFor(kind)
	// A duplicate delivery while the first run is still going attaches to
	// it. Once that run closes, the next event for the service starts anew.
	run, err := h.tc.ExecuteWorkflow(r.Context(), temporalclient.StartWorkflowOptions{
		ID:                       model.WorkflowID(kind, ev.ServiceID),
		TaskQueue:                model.TaskQueue,
		WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_USE_EXISTING,
	}, name, model.EventRequest{Event: ev, Settings: h.settings})
	if err != nil {
		metrics.EventsReceived.WithLabelValues(string(kind), "failed").Inc()
		h.logger.Error().Err(err).Int("service_id", ev.ServiceID).Str("workflow", name).Msg("failed to start workflow")
		response.WriteError(w, http.StatusServiceUnavailable, "failed to start workflow")
		return
	}

	metrics.EventsReceived.WithLabelValues(string(kind), "started").Inc()
	h.logger.Info().
		Int("service_id", ev.ServiceID).
		Str("workflow", name).
		Str("workflow_id", run.GetID()).
		Msg("workflow started")

	response.WriteAccepted(w, response.WorkflowStarted{
		WorkflowID: run.GetID(),
		RunID:      run.GetRunID(),
		Workflow:   name,
	})
}
