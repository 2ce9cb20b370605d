// Package camundatest provides an in-memory worker.JobClient that records
// the commands a job handler sends.
package camundatest

import (
	"context"
	"sync"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"google.golang.org/grpc"
)

// Sent is one command received by the gateway. CtxErr is the state of the
// command's context when it arrived.
type Sent struct {
	Kind      string
	JobKey    int64
	Retries   int32
	ErrorCode string
	Message   string
	Variables string
	CtxErr    error
}

// JobClient implements worker.JobClient over a recording gateway.
type JobClient struct {
	gateway *gateway
}

func NewJobClient() *JobClient {
	return &JobClient{gateway: &gateway{}}
}

func neverRetry(context.Context, error) bool { return false }

func (c *JobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	return commands.NewCompleteJobCommand(c.gateway, neverRetry)
}

func (c *JobClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	return commands.NewFailJobCommand(c.gateway, neverRetry)
}

func (c *JobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	return commands.NewThrowErrorCommand(c.gateway, neverRetry)
}

// Sent returns every command received so far.
func (c *JobClient) Sent() []Sent {
	c.gateway.mu.Lock()
	defer c.gateway.mu.Unlock()
	return append([]Sent(nil), c.gateway.sent...)
}

// Job builds an activated job carrying variables.
func Job(key int64, jobType string, retries int32, variables string) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:       key,
		Type:      jobType,
		Retries:   retries,
		Variables: variables,
	}}
}

// gateway answers the three job commands; any other call panics on the nil
// embedded client.
type gateway struct {
	pb.GatewayClient

	mu   sync.Mutex
	sent []Sent
}

func (g *gateway) record(s Sent) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, s)
}

func (g *gateway) CompleteJob(ctx context.Context, in *pb.CompleteJobRequest, _ ...grpc.CallOption) (*pb.CompleteJobResponse, error) {
	g.record(Sent{Kind: "complete", JobKey: in.JobKey, Variables: in.Variables, CtxErr: ctx.Err()})
	return &pb.CompleteJobResponse{}, ctx.Err()
}

func (g *gateway) FailJob(ctx context.Context, in *pb.FailJobRequest, _ ...grpc.CallOption) (*pb.FailJobResponse, error) {
	g.record(Sent{Kind: "fail", JobKey: in.JobKey, Retries: in.Retries, Message: in.ErrorMessage, Variables: in.Variables, CtxErr: ctx.Err()})
	return &pb.FailJobResponse{}, ctx.Err()
}

func (g *gateway) ThrowError(ctx context.Context, in *pb.ThrowErrorRequest, _ ...grpc.CallOption) (*pb.ThrowErrorResponse, error) {
	g.record(Sent{Kind: "throw", JobKey: in.JobKey, ErrorCode: in.ErrorCode, Message: in.ErrorMessage, Variables: in.Variables, CtxErr: ctx.Err()})
	return &pb.ThrowErrorResponse{}, ctx.Err()
}
