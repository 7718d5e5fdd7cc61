// Package transport exposes a dispatcher over HTTP: a JSON command API
// routed with gorilla/mux, and a net/rpc endpoint for Go clients.
package transport

import (
	"context"
	"errors"
	"time"

	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// ServiceName is the net/rpc service name.
const ServiceName = "Synth"

// Dispatcher runs named commands.
type Dispatcher interface {
	Dispatch(ctx context.Context, method string, args map[string]any) (any, error)
}

// Request is one command call.
type Request struct {
	Method string
	Args   map[string]any
}

// Response carries either a result or an error code and message. Failures
// travel in the response rather than as an rpc error so the code survives.
type Response struct {
	Result  any    `json:"result,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Err rebuilds the *contracts.Error carried by r, or nil.
func (r *Response) Err() error {
	if r.Code == "" {
		return nil
	}
	return &contracts.Error{Code: contracts.Code(r.Code), Message: r.Message}
}

// Service is the net/rpc receiver.
type Service struct {
	d      Dispatcher
	ctx    context.Context
	logger contracts.Logger
}

// NewService returns a Service. ctx bounds every call, so cancelling it
// cuts settle waits short during shutdown.
func NewService(ctx context.Context, d Dispatcher, logger contracts.Logger) *Service {
	return &Service{d: d, ctx: ctx, logger: logger}
}

// Call runs req.
func (s *Service) Call(req Request, resp *Response) error {
	*resp = s.run(s.ctx, req.Method, req.Args, "rpc")
	return nil
}

func (s *Service) run(ctx context.Context, method string, args map[string]any, via string) Response {
	start := time.Now()
	res, err := s.d.Dispatch(ctx, method, args)
	fields := []contracts.Field{
		s.logger.Field().String("transport", via),
		s.logger.Field().String("method", method),
		s.logger.Field().Duration("took", time.Since(start)),
	}
	if err != nil {
		code := contracts.CodeOf(err)
		if code == "" {
			code = contracts.CodeEngineUnavailable
		}
		s.logger.Info("request failed", append(fields, s.logger.Field().String("code", string(code)))...)
		msg := err.Error()
		var ce *contracts.Error
		if errors.As(err, &ce) {
			msg = ce.Message
		}
		return Response{Code: string(code), Message: msg}
	}
	s.logger.Debug("request handled", fields...)
	return Response{Result: res}
}
