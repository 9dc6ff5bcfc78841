// Package rpc builds the RPC plan: the server binding of every service
// method to its storage operation, with the domain-type conversion that
// runs before storage is invoked.
package rpc

import (
	"fmt"

	"github.com/syssam/synapse/compiler/gen"
	"github.com/syssam/synapse/compiler/gen/storage"
	"github.com/syssam/synapse/compiler/validate"
)

// Step is one stage of a handler.
type Step uint8

// Handler steps.
const (
	Decode Step = iota + 1
	Convert
	Invoke
	Encode
	Unimplemented
)

var stepNames = [...]string{
	Decode:        "decode",
	Convert:       "convert",
	Invoke:        "invoke",
	Encode:        "encode",
	Unimplemented: "unimplemented",
}

func (s Step) String() string {
	if s > 0 && int(s) < len(stepNames) {
		return stepNames[s]
	}
	return fmt.Sprintf("Step(%d)", uint8(s))
}

// Plan is the RPC plan of one compilation.
type Plan struct {
	Services []*ServicePlan
}

// Service returns the plan of the service with the given qualified name.
func (p *Plan) Service(ident string) *ServicePlan {
	for _, s := range p.Services {
		if s.Service.Ident() == ident {
			return s
		}
	}
	return nil
}

// ServicePlan is the server binding of one service.
type ServicePlan struct {
	Service *gen.Service
	// Server is the name of the server type.
	Server string
	// Storage is the storage interface the server delegates to. It is nil
	// when the service has no storage.
	Storage *storage.ServicePlan
	Methods []*MethodPlan
}

// Method returns the handler with the given RPC name.
func (s *ServicePlan) Method(name string) *MethodPlan {
	for _, m := range s.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// MethodPlan is one handler.
type MethodPlan struct {
	Method *gen.Method
	// Name is the handler name.
	Name     string
	Request  *gen.Message
	Response *gen.Message
	// Conversion is the validation plan applied to the request, if any.
	Conversion *validate.Plan
	// Operation is the storage operation the handler invokes, if any.
	Operation *storage.Operation
	Steps     []Step
}

// Unimplemented reports whether the handler only answers "unimplemented".
func (m *MethodPlan) Unimplemented() bool {
	return len(m.Steps) == 1 && m.Steps[0] == Unimplemented
}

// New binds the RPC services of g to the storage plan and the validation
// plans of the same compilation.
func New(g *gen.Graph, sp *storage.Plan, vps []*validate.Plan) *Plan {
	conversions := make(map[*gen.Message]*validate.Plan, len(vps))
	for _, vp := range vps {
		conversions[vp.Message] = vp
	}
	p := &Plan{}
	for _, s := range g.Services {
		if !s.RPC {
			continue
		}
		srv := &ServicePlan{Service: s, Server: s.ServerName, Storage: sp.Service(s.Ident())}
		for _, m := range s.Methods {
			if m.RPCSkip {
				continue
			}
			mp := &MethodPlan{
				Method:     m,
				Name:       m.RPCName,
				Request:    m.Input,
				Response:   m.Output,
				Conversion: conversions[m.Input],
			}
			if srv.Storage != nil && !m.StorageSkip {
				mp.Operation = srv.Storage.Operation(m.StorageName)
			}
			mp.Steps = steps(mp)
			srv.Methods = append(srv.Methods, mp)
		}
		p.Services = append(p.Services, srv)
	}
	return p
}

func steps(m *MethodPlan) []Step {
	if m.Operation == nil {
		return []Step{Unimplemented}
	}
	s := []Step{Decode}
	if m.Conversion != nil {
		s = append(s, Convert)
	}
	return append(s, Invoke, Encode)
}
