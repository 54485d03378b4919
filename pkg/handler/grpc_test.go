package handler

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func setupGRPC(t *testing.T) *grpc.ClientConn {
	t.Helper()

	svc, _ := setupTestService(t)
	lis := bufconn.Listen(1024 * 1024)

	s := grpc.NewServer()
	s.RegisterService(&PlaySessionServiceDesc, NewPlaySession(svc))
	go func() {
		_ = s.Serve(lis)
	}()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

func invoke(t *testing.T, conn *grpc.ClientConn, method string, in map[string]interface{}) (*structpb.Struct, error) {
	t.Helper()

	req, err := structpb.NewStruct(in)
	if err != nil {
		t.Fatalf("NewStruct() error = %v", err)
	}
	out := new(structpb.Struct)
	err = conn.Invoke(context.Background(), "/"+PlaySessionServiceName+"/"+method, req, out)
	return out, err
}

func TestGRPC_Flow(t *testing.T) {
	conn := setupGRPC(t)

	out, err := invoke(t, conn, "EnsureSession", map[string]interface{}{"code": "room"})
	if err != nil {
		t.Fatalf("EnsureSession() error = %v", err)
	}
	if got := out.GetFields()["sessionId"].GetStringValue(); got != "room" {
		t.Fatalf("sessionId = %q, expected room", got)
	}

	for _, u := range []string{"A", "B", "C", "D"} {
		if _, err := invoke(t, conn, "JoinSession", map[string]interface{}{"sessionId": "room", "userId": u}); err != nil {
			t.Fatalf("JoinSession(%s) error = %v", u, err)
		}
	}

	out, err = invoke(t, conn, "ReadState", map[string]interface{}{"sessionId": "room", "userId": "D"})
	if err != nil {
		t.Fatalf("ReadState() error = %v", err)
	}
	fields := out.GetFields()
	if got := fields["status"].GetStringValue(); got != "locked" {
		t.Errorf("status = %q, expected locked", got)
	}
	// D joined after the automatic grouping and stays ungrouped
	if _, ok := fields["myGroupId"]; ok {
		t.Errorf("myGroupId = %v, expected absent", fields["myGroupId"])
	}

	if _, err := invoke(t, conn, "Start", map[string]interface{}{"sessionId": "room"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	out, err = invoke(t, conn, "Finish", map[string]interface{}{"sessionId": "room"})
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if got := out.GetFields()["status"].GetStringValue(); got != "done" {
		t.Errorf("status = %q, expected done", got)
	}
}

func TestGRPC_CreateGroups(t *testing.T) {
	conn := setupGRPC(t)

	invoke(t, conn, "EnsureSession", map[string]interface{}{"code": "room"})
	for _, u := range []string{"A", "B"} {
		invoke(t, conn, "JoinSession", map[string]interface{}{"sessionId": "room", "userId": u})
	}

	out, err := invoke(t, conn, "CreateGroups", map[string]interface{}{
		"sessionId":     "room",
		"groupSize":     2,
		"fixedByUserId": map[string]interface{}{"B": 0},
		"countdownMs":   60000,
	})
	if err != nil {
		t.Fatalf("CreateGroups() error = %v", err)
	}

	fields := out.GetFields()
	g0 := fields["groups"].GetStructValue().GetFields()["g0"].GetStructValue()
	members := g0.GetFields()["memberUserIds"].GetListValue().GetValues()
	if len(members) != 2 || members[0].GetStringValue() != "B" || members[1].GetStringValue() != "A" {
		t.Errorf("g0 = %v, expected [B A]", g0)
	}
	ends := int64(fields["countdownEndsAt"].GetNumberValue())
	updated := int64(fields["updatedAt"].GetNumberValue())
	if ends != updated+60000 {
		t.Errorf("countdownEndsAt = %d, expected %d", ends, updated+60000)
	}
}

func TestGRPC_ErrorCodes(t *testing.T) {
	conn := setupGRPC(t)
	invoke(t, conn, "EnsureSession", map[string]interface{}{"code": "room"})
	invoke(t, conn, "JoinSession", map[string]interface{}{"sessionId": "room", "userId": "A"})

	tests := []struct {
		name     string
		method   string
		in       map[string]interface{}
		expected codes.Code
	}{
		{"unknown session", "ReadState", map[string]interface{}{"sessionId": "nope"}, codes.NotFound},
		{"missing user", "JoinSession", map[string]interface{}{"sessionId": "room"}, codes.InvalidArgument},
		{"missing group size", "CreateGroups", map[string]interface{}{"sessionId": "room"}, codes.InvalidArgument},
		{"start while forming", "Start", map[string]interface{}{"sessionId": "room"}, codes.FailedPrecondition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := invoke(t, conn, tt.method, tt.in)
			if got := status.Code(err); got != tt.expected {
				t.Errorf("code = %v, expected %v (%v)", got, tt.expected, err)
			}
		})
	}

	if _, err := invoke(t, conn, "LockIfReady", map[string]interface{}{"sessionKey": "nope"}); err != nil {
		t.Errorf("LockIfReady() error = %v, expected none", err)
	}
}
