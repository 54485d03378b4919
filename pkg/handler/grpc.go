package handler

import (
	"context"
	"encoding/json"

	"github.com/AccelByte/extend-play-session/pkg/common"
	"github.com/AccelByte/extend-play-session/pkg/service"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// PlaySessionServiceName is the fully qualified gRPC service name.
const PlaySessionServiceName = "playsession.v1.PlaySessionService"

// PlaySessionServer is the gRPC surface of the service. Requests and
// replies are google.protobuf.Struct with the same field names as the
// REST API.
type PlaySessionServer interface {
	EnsureSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	JoinSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateGroups(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Start(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Finish(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReadState(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LockIfReady(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(PlaySessionServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(PlaySessionServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + PlaySessionServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(PlaySessionServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// PlaySessionServiceDesc registers a PlaySessionServer on a grpc.Server.
var PlaySessionServiceDesc = grpc.ServiceDesc{
	ServiceName: PlaySessionServiceName,
	HandlerType: (*PlaySessionServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("EnsureSession", PlaySessionServer.EnsureSession),
		unaryMethod("JoinSession", PlaySessionServer.JoinSession),
		unaryMethod("CreateGroups", PlaySessionServer.CreateGroups),
		unaryMethod("Start", PlaySessionServer.Start),
		unaryMethod("Finish", PlaySessionServer.Finish),
		unaryMethod("ReadState", PlaySessionServer.ReadState),
		unaryMethod("LockIfReady", PlaySessionServer.LockIfReady),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "playsession/v1/play_session.proto",
}

// PlaySession implements PlaySessionServer on top of the service.
type PlaySession struct {
	svc *service.Service
}

func NewPlaySession(svc *service.Service) *PlaySession {
	return &PlaySession{svc: svc}
}

func (p *PlaySession) EnsureSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	scope := common.GetScopeFromContext(ctx, "PlaySession.EnsureSession")
	defer scope.Finish()

	id, err := p.svc.EnsureSession(scope.Ctx, stringField(in, "code"))
	if err != nil {
		return nil, toStatus(scope, err)
	}
	return structpb.NewStruct(map[string]interface{}{"sessionId": id})
}

func (p *PlaySession) JoinSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	scope := common.GetScopeFromContext(ctx, "PlaySession.JoinSession")
	defer scope.Finish()

	id := stringField(in, "sessionId")
	userID := stringField(in, "userId")
	if err := p.svc.JoinSession(scope.Ctx, id, userID, stringField(in, "name")); err != nil {
		return nil, toStatus(scope, err)
	}
	return p.state(scope, id, userID)
}

func (p *PlaySession) CreateGroups(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	scope := common.GetScopeFromContext(ctx, "PlaySession.CreateGroups")
	defer scope.Finish()

	id := stringField(in, "sessionId")
	fields := in.GetFields()

	var fixed map[string]int
	if v, ok := fields["fixedByUserId"]; ok {
		fixed = make(map[string]int)
		for userID, idx := range v.GetStructValue().GetFields() {
			fixed[userID] = int(idx.GetNumberValue())
		}
	}

	var countdownMs *int64
	if v, ok := fields["countdownMs"]; ok {
		if _, isNumber := v.GetKind().(*structpb.Value_NumberValue); isNumber {
			ms := int64(v.GetNumberValue())
			countdownMs = &ms
		}
	}

	groupSize := int(fields["groupSize"].GetNumberValue())
	if err := p.svc.AdminCreateGroups(scope.Ctx, id, groupSize, fixed, countdownMs); err != nil {
		return nil, toStatus(scope, err)
	}
	return p.state(scope, id, "")
}

func (p *PlaySession) Start(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	scope := common.GetScopeFromContext(ctx, "PlaySession.Start")
	defer scope.Finish()

	id := stringField(in, "sessionId")
	if err := p.svc.AdminStart(scope.Ctx, id); err != nil {
		return nil, toStatus(scope, err)
	}
	return p.state(scope, id, "")
}

func (p *PlaySession) Finish(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	scope := common.GetScopeFromContext(ctx, "PlaySession.Finish")
	defer scope.Finish()

	id := stringField(in, "sessionId")
	if err := p.svc.Finish(scope.Ctx, id); err != nil {
		return nil, toStatus(scope, err)
	}
	return p.state(scope, id, "")
}

func (p *PlaySession) ReadState(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	scope := common.GetScopeFromContext(ctx, "PlaySession.ReadState")
	defer scope.Finish()

	return p.state(scope, stringField(in, "sessionId"), stringField(in, "userId"))
}

// LockIfReady always succeeds with an empty reply.
func (p *PlaySession) LockIfReady(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	p.svc.LockIfReady(ctx, stringField(in, "sessionKey"))
	return &structpb.Struct{}, nil
}

func (p *PlaySession) state(scope *common.Scope, id, forUserID string) (*structpb.Struct, error) {
	state, err := p.svc.ReadState(scope.Ctx, id, forUserID)
	if err != nil {
		return nil, toStatus(scope, err)
	}

	data, err := json.Marshal(state)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode state: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode state: %v", err)
	}
	return structpb.NewStruct(m)
}

func stringField(in *structpb.Struct, key string) string {
	return in.GetFields()[key].GetStringValue()
}

func toStatus(scope *common.Scope, err error) error {
	code := grpcCode(err)
	if code == codes.Internal || code == codes.Unavailable {
		scope.TraceError(err)
		scope.Log.Errorf("request failed: %v", err)
	}
	return status.Error(code, err.Error())
}
