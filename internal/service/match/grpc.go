package match

import (
	"context"

	"github.com/samber/lo"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/bvilove/datebot/internal/db"
	svcErr "github.com/bvilove/datebot/internal/errors"
	"github.com/bvilove/datebot/internal/preference"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "datebot.match.v1.MatchService"

// FullMethod returns the gRPC path of a MatchService method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// MatchServer is the server API for MatchService. Messages are protobuf
// well-known types so no generated code is needed on either side.
type MatchServer interface {
	RequestMatch(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error)
	SetInitiatorReaction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetPartnerReaction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RecordInitiatorMessage(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	GetProfile(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error)
	UpsertProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeactivateProfile(context.Context, *wrapperspb.Int64Value) (*emptypb.Empty, error)
	CountIncomingLikes(context.Context, *wrapperspb.Int64Value) (*wrapperspb.UInt64Value, error)
	ListIncomingLikes(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListMutual(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// MatchServiceDesc describes MatchService for grpc.Server.RegisterService.
var MatchServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MatchServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("RequestMatch", newInt64, MatchServer.RequestMatch),
		unary("SetInitiatorReaction", newStruct, MatchServer.SetInitiatorReaction),
		unary("SetPartnerReaction", newStruct, MatchServer.SetPartnerReaction),
		unary("RecordInitiatorMessage", newStruct, MatchServer.RecordInitiatorMessage),
		unary("GetProfile", newInt64, MatchServer.GetProfile),
		unary("UpsertProfile", newStruct, MatchServer.UpsertProfile),
		unary("DeactivateProfile", newInt64, MatchServer.DeactivateProfile),
		unary("CountIncomingLikes", newInt64, MatchServer.CountIncomingLikes),
		unary("ListIncomingLikes", newStruct, MatchServer.ListIncomingLikes),
		unary("ListMutual", newStruct, MatchServer.ListMutual),
	},
	Streams: []grpc.StreamDesc{},
}

func newInt64() *wrapperspb.Int64Value { return new(wrapperspb.Int64Value) }
func newStruct() *structpb.Struct      { return new(structpb.Struct) }

// unary builds the method descriptor the generated code would: decode the
// request, then run the handler through the interceptor chain if any.
func unary[Req, Resp proto.Message](
	method string,
	newReq func() Req,
	call func(MatchServer, context.Context, Req) (Resp, error),
) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				resp, err := call(srv.(MatchServer), ctx, req.(Req))
				if err != nil {
					return nil, err
				}
				return resp, nil
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// RegisterMatchServer attaches srv to s.
func RegisterMatchServer(s grpc.ServiceRegistrar, srv MatchServer) {
	s.RegisterService(&MatchServiceDesc, srv)
}

// GRPCHandler adapts Service to MatchServer: it parses requests, maps domain
// errors to status codes and renders responses.
type GRPCHandler struct {
	svc *Service
}

func NewGRPCHandler(svc *Service) *GRPCHandler {
	return &GRPCHandler{svc: svc}
}

var _ MatchServer = (*GRPCHandler)(nil)

func (h *GRPCHandler) RequestMatch(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	if req.GetValue() == 0 {
		return nil, svcErr.InvalidArgument("user id is required")
	}
	out, err := h.svc.RequestMatch(ctx, req.GetValue())
	if err != nil {
		return nil, svcErr.Map(err)
	}

	fields := map[string]any{
		"status":  string(out.Status),
		"resumed": out.Resumed,
	}
	if out.Status == StatusFound {
		partner, err := profileFields(out.Partner, nil, h.svc.appCtx.Cities, h.svc.appCtx.Now())
		if err != nil {
			return nil, svcErr.Map(err)
		}
		fields["dating"] = datingFields(out.Dating)
		fields["partner"] = partner
	}
	return newResponse(fields)
}

func (h *GRPCHandler) SetInitiatorReaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.react(ctx, req, h.svc.SetInitiatorReaction)
}

func (h *GRPCHandler) SetPartnerReaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.react(ctx, req, h.svc.SetPartnerReaction)
}

func (h *GRPCHandler) react(
	ctx context.Context,
	req *structpb.Struct,
	set func(context.Context, int64, bool) (*db.Dating, error),
) (*structpb.Struct, error) {
	id, err := requireInt(req, "dating_id")
	if err != nil {
		return nil, svcErr.InvalidArgument(err.Error())
	}
	liked, err := requireBool(req, "liked")
	if err != nil {
		return nil, svcErr.InvalidArgument(err.Error())
	}
	d, err := set(ctx, id, liked)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return newResponse(datingFields(d))
}

func (h *GRPCHandler) RecordInitiatorMessage(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	id, err := requireInt(req, "dating_id")
	if err != nil {
		return nil, svcErr.InvalidArgument(err.Error())
	}
	msgID, err := requireInt(req, "message_id")
	if err != nil {
		return nil, svcErr.InvalidArgument(err.Error())
	}
	if err := h.svc.RecordInitiatorMessage(ctx, id, msgID); err != nil {
		return nil, svcErr.Map(err)
	}
	return &emptypb.Empty{}, nil
}

func (h *GRPCHandler) GetProfile(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	p, err := h.svc.GetProfile(ctx, req.GetValue())
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return h.renderProfile(p.User, p.Images)
}

func (h *GRPCHandler) UpsertProfile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var resolver preference.CityResolver
	if h.svc.appCtx.Cities != nil {
		resolver = h.svc.appCtx.Cities
	}
	patch, err := profilePatch(req, resolver)
	if err != nil {
		return nil, svcErr.InvalidArgument(err.Error())
	}
	u, err := h.svc.UpsertProfile(ctx, patch)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	p, err := h.svc.GetProfile(ctx, u.ID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return h.renderProfile(p.User, p.Images)
}

func (h *GRPCHandler) DeactivateProfile(ctx context.Context, req *wrapperspb.Int64Value) (*emptypb.Empty, error) {
	if err := h.svc.Deactivate(ctx, req.GetValue()); err != nil {
		return nil, svcErr.Map(err)
	}
	return &emptypb.Empty{}, nil
}

func (h *GRPCHandler) renderProfile(u *db.User, images []db.Image) (*structpb.Struct, error) {
	fields, err := profileFields(u, images, h.svc.appCtx.Cities, h.svc.appCtx.Now())
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return newResponse(fields)
}

func (h *GRPCHandler) CountIncomingLikes(ctx context.Context, req *wrapperspb.Int64Value) (*wrapperspb.UInt64Value, error) {
	n, err := h.svc.CountIncomingLikes(ctx, req.GetValue())
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return wrapperspb.UInt64(uint64(n)), nil
}

func (h *GRPCHandler) ListIncomingLikes(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.list(ctx, req, "likes", h.svc.ListIncomingLikes)
}

func (h *GRPCHandler) ListMutual(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.list(ctx, req, "matches", h.svc.ListMutual)
}

func (h *GRPCHandler) list(
	ctx context.Context,
	req *structpb.Struct,
	key string,
	page func(context.Context, int64, *string, int) ([]db.Dating, *string, error),
) (*structpb.Struct, error) {
	userID, err := requireInt(req, "user_id")
	if err != nil {
		return nil, svcErr.InvalidArgument(err.Error())
	}
	token, hasToken, err := stringField(req, "page_token")
	if err != nil {
		return nil, svcErr.InvalidArgument(err.Error())
	}
	limit, _, err := intField(req, "limit")
	if err != nil {
		return nil, svcErr.InvalidArgument(err.Error())
	}

	var tokenPtr *string
	if hasToken {
		tokenPtr = &token
	}
	datings, next, err := page(ctx, userID, tokenPtr, int(limit))
	if err != nil {
		return nil, svcErr.Map(err)
	}

	fields := map[string]any{
		key: lo.Map(datings, func(d db.Dating, _ int) any { return datingFields(&d) }),
	}
	if next != nil {
		fields["next_page_token"] = *next
	}
	return newResponse(fields)
}

func newResponse(fields map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return s, nil
}
