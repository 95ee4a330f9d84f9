package connector

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"payhub/internal/config"
	"payhub/internal/domain/flow"
	"payhub/internal/metrics"
)

// Executor performs the network call for a built Request. Timeouts,
// retries and cancellation are its concern.
type Executor interface {
	Do(ctx context.Context, req *Request) (Response, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, req *Request) (Response, error)

func (f ExecutorFunc) Do(ctx context.Context, req *Request) (Response, error) { return f(ctx, req) }

// Execute runs one flow: build the request, send it, and turn the answer
// into an updated envelope.
//
// The returned envelope carries either Response or Error. An error return
// means the call never produced an answer: the request could not be built,
// or the executor failed. When the connector has nothing to send, a clone
// of rd is returned untouched. A body that does not match the connector's
// schema becomes an ErrorResponse, never an error return.
//
// sink may be nil.
func Execute[F flow.Flow, Req, Resp any](ctx context.Context, in Integration[F, Req, Resp], rd *RouterData[F, Req, Resp], cfg config.Connectors, exec Executor, sink EventSink) (*RouterData[F, Req, Resp], error) {
	flowName := flow.NameOf[F]()
	req, err := in.BuildRequest(rd, cfg)
	if err != nil {
		return nil, Attach(err, "building "+flowName+" request for "+rd.Connector.String())
	}
	if req == nil {
		log.Debug().Str("connector", rd.Connector.String()).Str("flow", flowName).Msg("connector has nothing to send")
		return rd.Clone(), nil
	}

	var ev *Event
	if sink != nil {
		ev = NewEvent(rd.MerchantID, rd.Connector.String(), flowName, rd.PaymentID, rd.AttemptID)
		ev.SetRequest(req)
		defer func() {
			ev.Finish()
			sink.Record(ev)
		}()
	}

	start := time.Now()
	res, err := exec.Do(ctx, req)
	metrics.ConnectorLatency.WithLabelValues(rd.Connector.String(), flowName).Observe(time.Since(start).Seconds())
	metrics.ConnectorCalls.WithLabelValues(rd.Connector.String(), flowName, metrics.StatusClass(res.StatusCode)).Inc()
	if err != nil {
		return nil, ExecutionFailed(err).Attach(flowName + " call to " + rd.Connector.String())
	}
	ev.SetStatusCode(res.StatusCode)

	out, err := in.HandleResponse(rd, ev, res)
	if err != nil {
		if !errors.Is(err, ErrResponseDeserializationFailed) {
			return nil, Attach(err, "handling "+flowName+" response")
		}
		er := ErrorResponse{
			StatusCode: res.StatusCode,
			Code:       ResponseDeserializationFailedCode,
			Message:    NoErrorMessage,
			Reason:     err.Error(),
		}
		log.Warn().
			Str("connector", rd.Connector.String()).
			Str("flow", flowName).
			Int("status_code", res.StatusCode).
			Err(err).
			Msg("connector response did not match schema")
		ev.SetErrorResponse(er)
		return rd.WithError(er), nil
	}
	if out.Error != nil {
		ev.SetErrorResponse(*out.Error)
	}
	return out, nil
}
