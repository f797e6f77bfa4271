// Package grpcserver implements the CoachService gRPC server.
//
// It delegates all business logic to the insight and onboarding services
// and handles only the gRPC transport concerns: metadata extraction, error
// mapping, and conversion between domain values and protobuf well-known
// types. Insights travel as google.protobuf.Struct with the same field
// names as the JSON API.
package grpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"jobmate/coach-service/internal/apperr"
	"jobmate/coach-service/internal/insight"
	"jobmate/coach-service/internal/model"
	"jobmate/coach-service/internal/onboarding"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "coach.v1.CoachService"

type InsightService interface {
	GetOrCreate(ctx context.Context, industry string, generate insight.GenerateFunc) (*model.IndustryInsight, error)
}

type OnboardingService interface {
	Status(ctx context.Context, authID string) (onboarding.Status, error)
	Dashboard(ctx context.Context, authID string) (*model.IndustryInsight, error)
}

// CoachServer is the server API for CoachService.
type CoachServer interface {
	GetInsight(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	GetDashboard(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	GetOnboardingStatus(ctx context.Context, req *emptypb.Empty) (*wrapperspb.BoolValue, error)
}

// Server implements CoachServer.
type Server struct {
	insights   InsightService
	onboarding OnboardingService
}

// NewServer constructs a gRPC Server backed by the given services.
func NewServer(insights InsightService, onb OnboardingService) *Server {
	return &Server{insights: insights, onboarding: onb}
}

// Register mounts s on g.
func Register(g grpc.ServiceRegistrar, s CoachServer) {
	g.RegisterService(&serviceDesc, s)
}

// ─── RPC implementations ──────────────────────────────────────────────────────

// GetInsight returns the insight for the requested industry, creating it
// on first request.
func (s *Server) GetInsight(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if _, err := userIDFromCtx(ctx); err != nil {
		return nil, err
	}
	in, err := s.insights.GetOrCreate(ctx, req.GetValue(), nil)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return insightToProto(in)
}

// GetDashboard returns the insight for the caller's industry.
func (s *Server) GetDashboard(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	in, err := s.onboarding.Dashboard(ctx, userID)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return insightToProto(in)
}

// GetOnboardingStatus reports whether the caller has completed onboarding.
func (s *Server) GetOnboardingStatus(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BoolValue, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	st, err := s.onboarding.Status(ctx, userID)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return wrapperspb.Bool(st.IsOnboarded), nil
}

// ─── Service descriptor ──────────────────────────────────────────────────────

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CoachServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetInsight", Handler: getInsightHandler},
		{MethodName: "GetDashboard", Handler: getDashboardHandler},
		{MethodName: "GetOnboardingStatus", Handler: getOnboardingStatusHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "coach/v1/coach.proto",
}

func getInsightHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CoachServer).GetInsight(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetInsight"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CoachServer).GetInsight(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func getDashboardHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CoachServer).GetDashboard(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetDashboard"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CoachServer).GetDashboard(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getOnboardingStatusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CoachServer).GetOnboardingStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetOnboardingStatus"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CoachServer).GetOnboardingStatus(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// userIDFromCtx extracts the x-user-id value forwarded by the Gateway
// via gRPC metadata.
func userIDFromCtx(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing metadata")
	}
	vals := md.Get("x-user-id")
	if len(vals) == 0 || vals[0] == "" {
		return "", status.Error(codes.Unauthenticated, "missing x-user-id metadata")
	}
	return vals[0], nil
}

// toGRPCError maps domain errors to gRPC status errors.
func toGRPCError(err error) error {
	var (
		ve *apperr.ValidationError
		ge *apperr.GenerationError
		se *apperr.StorageError
	)
	switch {
	case errors.As(err, &ve):
		return status.Error(codes.InvalidArgument, ve.Msg)
	case errors.Is(err, apperr.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.As(err, &ge):
		return status.Error(codes.Unavailable, "generation failed, please retry")
	case errors.As(err, &se):
		return status.Error(codes.Unavailable, "storage unavailable, please retry")
	}
	return status.Error(codes.Internal, "internal server error")
}

// insightToProto converts an insight to a Struct through its JSON form, so
// both transports expose identical field names.
func insightToProto(in *model.IndustryInsight) (*structpb.Struct, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode insight")
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, status.Error(codes.Internal, "encode insight")
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode insight: %v", err))
	}
	return s, nil
}
