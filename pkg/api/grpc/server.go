// Package grpcapi implements the calc.v1.Calculator gRPC service. Requests
// and responses are protobuf well-known types, so clients need no generated
// code beyond the service descriptor in this package.
package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"
	"unicode/utf8"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/lemonberrylabs/calc/pkg/api"
	"github.com/lemonberrylabs/calc/pkg/calc"
	"github.com/lemonberrylabs/calc/pkg/store"
)

// DefaultMaxExpressionLength bounds request expressions when Options leaves
// MaxExpressionLength unset. It matches the REST limit.
const DefaultMaxExpressionLength = api.DefaultMaxExpressionLength

// Options configures the gRPC server.
type Options struct {
	MaxExpressionLength int
	Strict              bool
	Logger              *slog.Logger
}

// Server implements CalculatorServer on top of the evaluation store.
type Server struct {
	store *store.Store
	opts  Options
	log   *slog.Logger
	grpc  *grpc.Server
}

// New creates a new gRPC server wrapping the given store.
func New(s *store.Store, opts Options) *Server {
	if opts.MaxExpressionLength <= 0 {
		opts.MaxExpressionLength = DefaultMaxExpressionLength
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{
		store: s,
		opts:  opts,
		log:   logger.With("component", "grpc"),
	}

	gs := grpc.NewServer(grpc.UnaryInterceptor(srv.logUnary))
	RegisterCalculatorServer(gs, srv)
	srv.grpc = gs

	return srv
}

// Serve starts listening on the given address and serves gRPC requests.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return s.ServeListener(lis)
}

// ServeListener serves gRPC requests on an existing listener.
func (s *Server) ServeListener(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// GracefulStop gracefully stops the gRPC server.
func (s *Server) GracefulStop() {
	s.grpc.GracefulStop()
}

// Evaluate evaluates and records an expression. A failed evaluation is
// still recorded; the InvalidArgument status carries the record as a detail.
func (s *Server) Evaluate(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	expr, err := s.checkExpression(req.GetValue())
	if err != nil {
		return nil, err
	}

	ev := s.store.Evaluate(expr, s.opts.Strict)
	record := EvaluationToStruct(ev)
	if ev.Error == nil {
		return record, nil
	}

	st, detailErr := status.New(codes.InvalidArgument, ev.Error.Message).WithDetails(record)
	if detailErr != nil {
		return nil, status.Error(codes.InvalidArgument, ev.Error.Message)
	}
	return nil, st.Err()
}

// Tokenize returns the token sequence of an expression.
func (s *Server) Tokenize(ctx context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	expr, err := s.checkExpression(req.GetValue())
	if err != nil {
		return nil, err
	}

	tokens, err := calc.Tokenize(expr)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	list := &structpb.ListValue{Values: make([]*structpb.Value, len(tokens))}
	for i, tok := range tokens {
		list.Values[i] = structpb.NewStructValue(TokenToStruct(tok))
	}
	return list, nil
}

// GetEvaluation looks up a recorded evaluation by name or ID.
func (s *Server) GetEvaluation(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	ev, err := s.store.Get(req.GetValue())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, status.Error(codes.NotFound, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	return EvaluationToStruct(ev), nil
}

// ListEvaluations returns the evaluation history, newest first.
func (s *Server) ListEvaluations(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	evaluations := s.store.List()

	list := &structpb.ListValue{Values: make([]*structpb.Value, len(evaluations))}
	for i, ev := range evaluations {
		list.Values[i] = structpb.NewStructValue(EvaluationToStruct(ev))
	}
	return list, nil
}

// --- Internal helpers ---

func (s *Server) checkExpression(expr string) (string, error) {
	if expr == "" {
		return "", status.Error(codes.InvalidArgument, "expression is required")
	}
	if n := utf8.RuneCountInString(expr); n > s.opts.MaxExpressionLength {
		return "", status.Errorf(codes.InvalidArgument, "expression is %d characters long, the limit is %d", n, s.opts.MaxExpressionLength)
	}
	return expr, nil
}

func (s *Server) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.log.Debug("rpc", "method", info.FullMethod, "code", status.Code(err).String(), "elapsed", time.Since(start))
	return resp, err
}

// EvaluationToStruct renders an evaluation as a protobuf Struct with the same
// fields as the REST resource.
func EvaluationToStruct(ev *store.Evaluation) *structpb.Struct {
	fields := map[string]*structpb.Value{
		"name":       structpb.NewStringValue(ev.Name),
		"expression": structpb.NewStringValue(ev.Expression),
		"state":      structpb.NewStringValue(string(ev.State)),
		"tokens":     structpb.NewNumberValue(float64(ev.Tokens)),
		"createTime": structpb.NewStringValue(ev.CreateTime.Format(time.RFC3339Nano)),
		"endTime":    structpb.NewStringValue(ev.EndTime.Format(time.RFC3339Nano)),
	}
	if ev.Error != nil {
		fields["error"] = structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"kind":    structpb.NewStringValue(ev.Error.Kind),
			"message": structpb.NewStringValue(ev.Error.Message),
		}})
	} else {
		fields["result"] = numberValue(ev.Result)
	}
	return &structpb.Struct{Fields: fields}
}

// TokenToStruct renders a token as a protobuf Struct.
func TokenToStruct(tok calc.Token) *structpb.Struct {
	fields := map[string]*structpb.Value{
		"type": structpb.NewStringValue(tok.Type.String()),
		"pos":  structpb.NewNumberValue(float64(tok.Pos)),
	}
	if tok.Type == calc.TokenNumber {
		fields["value"] = numberValue(tok.Value)
	}
	return &structpb.Struct{Fields: fields}
}

// numberValue keeps non-finite numbers as text, since they have no JSON
// mapping.
func numberValue(v float64) *structpb.Value {
	if calc.IsFinite(v) {
		return structpb.NewNumberValue(v)
	}
	return structpb.NewStringValue(calc.FormatResult(v))
}
