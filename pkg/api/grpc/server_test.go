package grpcapi

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/lemonberrylabs/calc/pkg/store"
)

func startTestServer(t *testing.T, opts Options) (string, *store.Store, func()) {
	t.Helper()
	s := store.New(0)
	srv := New(s, opts)

	lis, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	go srv.ServeListener(lis)

	return lis.Addr().String(), s, func() {
		srv.grpc.Stop()
	}
}

func dial(t *testing.T, addr string) *grpc.ClientConn {
	t.Helper()
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	return conn
}

func TestEvaluateAndGet(t *testing.T) {
	addr, _, cleanup := startTestServer(t, Options{})
	defer cleanup()

	conn := dial(t, addr)
	defer conn.Close()

	client := NewCalculatorClient(conn)
	ctx := context.Background()

	ev, err := client.Evaluate(ctx, wrapperspb.String("(1 + 2) ** 2"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	fields := ev.GetFields()
	if got := fields["result"].GetNumberValue(); got != 9 {
		t.Fatalf("expected 9, got %v", got)
	}
	if got := fields["state"].GetStringValue(); got != "SUCCEEDED" {
		t.Fatalf("expected SUCCEEDED, got %s", got)
	}
	name := fields["name"].GetStringValue()
	if name != "evaluations/eval-1" {
		t.Fatalf("unexpected name: %s", name)
	}

	got, err := client.GetEvaluation(ctx, wrapperspb.String(name))
	if err != nil {
		t.Fatalf("GetEvaluation: %v", err)
	}
	if got.GetFields()["expression"].GetStringValue() != "(1 + 2) ** 2" {
		t.Fatalf("unexpected expression: %v", got.GetFields()["expression"])
	}
}

func TestEvaluateFailure(t *testing.T) {
	addr, s, cleanup := startTestServer(t, Options{})
	defer cleanup()

	conn := dial(t, addr)
	defer conn.Close()

	client := NewCalculatorClient(conn)

	_, err := client.Evaluate(context.Background(), wrapperspb.String("2 & 1.5"))
	if err == nil {
		t.Fatal("expected error")
	}
	st := status.Convert(err)
	if st.Code() != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", st.Code())
	}
	if st.Message() != "calc: unexpected Not a integer number! token: 1.5" {
		t.Fatalf("unexpected message: %s", st.Message())
	}

	var record *structpb.Struct
	for _, d := range st.Details() {
		if s, ok := d.(*structpb.Struct); ok {
			record = s
		}
	}
	if record == nil {
		t.Fatal("expected the evaluation record as a status detail")
	}
	if record.GetFields()["state"].GetStringValue() != "FAILED" {
		t.Fatalf("expected FAILED detail, got %v", record.GetFields()["state"])
	}

	if s.Stats().Failed != 1 {
		t.Fatalf("failed evaluation should be recorded, stats: %+v", s.Stats())
	}
}

func TestEvaluateInvalidRequest(t *testing.T) {
	addr, s, cleanup := startTestServer(t, Options{MaxExpressionLength: 5})
	defer cleanup()

	conn := dial(t, addr)
	defer conn.Close()

	client := NewCalculatorClient(conn)
	ctx := context.Background()

	for _, expr := range []string{"", "1 + 2 + 3"} {
		_, err := client.Evaluate(ctx, wrapperspb.String(expr))
		if status.Code(err) != codes.InvalidArgument {
			t.Errorf("Evaluate(%q): expected InvalidArgument, got %v", expr, err)
		}
	}
	if len(s.List()) != 0 {
		t.Fatalf("rejected requests must not be recorded, got %d", len(s.List()))
	}
}

func TestTokenize(t *testing.T) {
	addr, _, cleanup := startTestServer(t, Options{})
	defer cleanup()

	conn := dial(t, addr)
	defer conn.Close()

	client := NewCalculatorClient(conn)
	ctx := context.Background()

	list, err := client.Tokenize(ctx, wrapperspb.String("3² >> 1"))
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []string{"Number", "Square", "RShift", "Number"}
	if len(list.GetValues()) != len(want) {
		t.Fatalf("expected %d tokens, got %d", len(want), len(list.GetValues()))
	}
	for i, w := range want {
		tok := list.GetValues()[i].GetStructValue().GetFields()
		if tok["type"].GetStringValue() != w {
			t.Errorf("token %d: expected %s, got %s", i, w, tok["type"].GetStringValue())
		}
	}

	_, err = client.Tokenize(ctx, wrapperspb.String("1 @ 2"))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
	if status.Convert(err).Message() != "calc: unrecognized token: @" {
		t.Fatalf("unexpected message: %s", status.Convert(err).Message())
	}
}

func TestGetEvaluationNotFound(t *testing.T) {
	addr, _, cleanup := startTestServer(t, Options{})
	defer cleanup()

	conn := dial(t, addr)
	defer conn.Close()

	client := NewCalculatorClient(conn)

	_, err := client.GetEvaluation(context.Background(), wrapperspb.String("eval-42"))
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestListEvaluations(t *testing.T) {
	addr, s, cleanup := startTestServer(t, Options{})
	defer cleanup()

	s.Evaluate("1", false)
	s.Evaluate("1 / 0", false)

	conn := dial(t, addr)
	defer conn.Close()

	client := NewCalculatorClient(conn)

	list, err := client.ListEvaluations(context.Background(), &emptypb.Empty{})
	if err != nil {
		t.Fatalf("ListEvaluations: %v", err)
	}
	if len(list.GetValues()) != 2 {
		t.Fatalf("expected 2 evaluations, got %d", len(list.GetValues()))
	}
	first := list.GetValues()[0].GetStructValue().GetFields()
	if first["state"].GetStringValue() != "FAILED" {
		t.Fatalf("expected newest (failed) evaluation first, got %v", first["state"])
	}
	if first["error"].GetStructValue().GetFields()["kind"].GetStringValue() != "DivideByZero" {
		t.Fatalf("unexpected error kind: %v", first["error"])
	}
}
