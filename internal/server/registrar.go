package server

import "google.golang.org/grpc"

// Registrar attaches one service implementation to a server.
type Registrar interface {
	Register(s grpc.ServiceRegistrar)
}
