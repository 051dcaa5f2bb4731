package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rl1809/storefront/internal/core/domain"
)

const inventoryServiceName = "storefront.v1.Inventory"

// InventoryServer is the gRPC surface over items. Messages are
// google.protobuf.Struct values so clients need no generated stubs.
type InventoryServer interface {
	GetItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	BuyItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var inventoryServiceDesc = grpc.ServiceDesc{
	ServiceName: inventoryServiceName,
	HandlerType: (*InventoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetItem", Handler: unaryHandler("GetItem", InventoryServer.GetItem)},
		{MethodName: "BuyItem", Handler: unaryHandler("BuyItem", InventoryServer.BuyItem)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storefront/v1/inventory.proto",
}

func unaryHandler(method string, call func(InventoryServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	fullMethod := "/" + inventoryServiceName + "/" + method
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(InventoryServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(InventoryServer), ctx, req.(*structpb.Struct))
		})
	}
}

func RegisterInventoryServer(s grpc.ServiceRegistrar, srv InventoryServer) {
	s.RegisterService(&inventoryServiceDesc, srv)
}

type GRPCHandler struct {
	inventory   InventoryService
	consumption ConsumptionService
	auth        AuthService
}

func NewGRPCHandler(inventory InventoryService, consumption ConsumptionService, auth AuthService) *GRPCHandler {
	return &GRPCHandler{inventory: inventory, consumption: consumption, auth: auth}
}

func (h *GRPCHandler) GetItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	itemID, err := requiredID(req, "item_id")
	if err != nil {
		return nil, err
	}

	item, err := h.inventory.GetItem(ctx, itemID)
	if err != nil {
		return nil, grpcError(err)
	}
	return itemStruct(item)
}

// BuyItem consumes one unit on behalf of the bearer token in the
// "authorization" metadata.
func (h *GRPCHandler) BuyItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	itemID, err := requiredID(req, "item_id")
	if err != nil {
		return nil, err
	}

	principal, err := h.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	item, _, err := h.consumption.Consume(ctx, itemID, principal.UserID)
	if err != nil {
		return nil, grpcError(err)
	}
	return itemStruct(item)
}

func (h *GRPCHandler) authenticate(ctx context.Context) (domain.Principal, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	values := md.Get("authorization")
	if len(values) == 0 {
		return domain.Principal{}, status.Error(codes.Unauthenticated, "missing bearer token")
	}

	token, ok := strings.CutPrefix(values[0], "Bearer ")
	if !ok || token == "" {
		return domain.Principal{}, status.Error(codes.Unauthenticated, "missing bearer token")
	}

	principal, err := h.auth.Authenticate(ctx, token)
	if err != nil {
		return domain.Principal{}, grpcError(err)
	}
	return principal, nil
}

func requiredID(req *structpb.Struct, field string) (int64, error) {
	v, ok := req.GetFields()[field]
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "%s is required", field)
	}
	n := v.GetNumberValue()
	if n <= 0 || n != float64(int64(n)) {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a positive integer", field)
	}
	return int64(n), nil
}

func itemStruct(item domain.Item) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(map[string]interface{}{
		"id":          item.ID,
		"store_id":    item.StoreID,
		"name":        item.Name,
		"price":       item.Price.String(),
		"description": item.Description,
		"quantity":    item.Quantity,
		"created_at":  item.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode item: %v", err)
	}
	return s, nil
}

func grpcError(err error) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return status.Error(codes.InvalidArgument, verr.Message)
	case errors.Is(err, domain.ErrItemNotFound), errors.Is(err, domain.ErrStoreNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrItemSoldOut):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
