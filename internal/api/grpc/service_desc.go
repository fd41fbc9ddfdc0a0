package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "divecenter.equipment.v1.EquipmentService"

// unary builds the method descriptor for one EquipmentServer method.
func unary[Req, Resp any](name string, call func(EquipmentServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(EquipmentServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(EquipmentServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var EquipmentServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EquipmentServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateEquipment", EquipmentServer.CreateEquipment),
		unary("EditEquipment", EquipmentServer.EditEquipment),
		unary("DeleteEquipment", EquipmentServer.DeleteEquipment),
		unary("GetEquipment", EquipmentServer.GetEquipment),
		unary("GetRentalHistory", EquipmentServer.GetRentalHistory),
		unary("StartRental", EquipmentServer.StartRental),
		unary("CompleteRental", EquipmentServer.CompleteRental),
		unary("RecordUsage", EquipmentServer.RecordUsage),
		unary("FlagForMaintenance", EquipmentServer.FlagForMaintenance),
		unary("CompleteMaintenance", EquipmentServer.CompleteMaintenance),
		unary("MarkInUse", EquipmentServer.MarkInUse),
		unary("ReturnToAvailable", EquipmentServer.ReturnToAvailable),
		unary("NotifyOverdueRentals", EquipmentServer.NotifyOverdueRentals),
		unary("GetCenterSummary", EquipmentServer.GetCenterSummary),
		unary("ListCenterEquipment", EquipmentServer.ListCenterEquipment),
		unary("MaintenanceQueue", EquipmentServer.MaintenanceQueue),
		unary("CreateCenter", EquipmentServer.CreateCenter),
		unary("ListCenters", EquipmentServer.ListCenters),
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterEquipmentServer(s grpc.ServiceRegistrar, srv EquipmentServer) {
	s.RegisterService(&EquipmentServiceDesc, srv)
}
