package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"aivy-conversation/internal/common/config"
	apperrors "aivy-conversation/internal/common/errors"
)

const (
	connectTimeout        = 10 * time.Second
	defaultRequestTimeout = 30 * time.Second
)

// Backoff bounds retries of gateway commands.
type Backoff struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

// delay is the wait before retry n (0-based), doubling up to Max.
func (b Backoff) delay(n int) time.Duration {
	d := b.Base << n
	if d <= 0 || d > b.Max {
		return b.Max
	}
	return d
}

var defaultBackoff = Backoff{Attempts: 3, Base: time.Second, Max: 10 * time.Second}

// Client is the gateway connection shared by workers and the chat service.
type Client struct {
	zb             zbc.Client
	gateway        string
	requestTimeout time.Duration
	backoff        Backoff
}

// NewClient dials the gateway in cfg and checks it answers a topology request.
func NewClient(cfg config.CamundaConfig) (*Client, error) {
	zb, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.BrokerAddress,
		UsePlaintextConnection: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create zeebe client: %w", err)
	}

	c := &Client{
		zb:             zb,
		gateway:        cfg.BrokerAddress,
		requestTimeout: config.GetDuration(cfg.RequestTimeout),
		backoff:        defaultBackoff,
	}
	if c.requestTimeout <= 0 {
		c.requestTimeout = defaultRequestTimeout
	}

	if err := c.HealthCheck(context.Background()); err != nil {
		zb.Close()
		return nil, fmt.Errorf("zeebe gateway %s: %w", cfg.BrokerAddress, err)
	}
	return c, nil
}

func (c *Client) GetClient() zbc.Client {
	return c.zb
}

func (c *Client) Close() error {
	return c.zb.Close()
}

// HealthCheck asks the gateway for the cluster topology.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if _, err := c.zb.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("topology request failed: %w", err)
	}
	return nil
}

// StartProcess creates an instance of the latest deployed version of
// bpmnProcessID and returns its key.
func (c *Client) StartProcess(ctx context.Context, bpmnProcessID string, variables interface{}) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var key int64
	err := c.retry(ctx, "start "+bpmnProcessID, func(ctx context.Context) error {
		cmd, err := c.zb.NewCreateInstanceCommand().
			BPMNProcessId(bpmnProcessID).
			LatestVersion().
			VariablesFromObject(variables)
		if err != nil {
			return err
		}
		resp, err := cmd.Send(ctx)
		if err != nil {
			return err
		}
		key = resp.GetProcessInstanceKey()
		return nil
	})
	return key, err
}

// retry runs fn until it succeeds, fails permanently, or the attempts run
// out. The final failure is returned as a StandardError.
func (c *Client) retry(ctx context.Context, op string, fn func(context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if !transient(err) || attempt >= c.backoff.Attempts {
			return gatewayError(op, attempt+1, err)
		}

		timer := time.NewTimer(c.backoff.delay(attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s cancelled after %d attempts: %w", op, attempt+1, ctx.Err())
		}
	}
}

func transient(err error) bool {
	if s, ok := status.FromError(err); ok && s.Code() != codes.Unknown {
		switch s.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
			return true
		}
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, phrase := range []string{"connection refused", "connection reset", "deadline exceeded", "broken pipe", "timeout"} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

func gatewayError(op string, attempts int, err error) error {
	wrapped := fmt.Errorf("zeebe %s (attempts: %d): %w", op, attempts, err)

	code := codes.Unknown
	if s, ok := status.FromError(err); ok {
		code = s.Code()
	}
	switch code {
	case codes.DeadlineExceeded:
		return apperrors.NewTimeoutError("zeebe", wrapped)
	case codes.NotFound:
		return apperrors.NewResourceNotFoundError("zeebe", wrapped.Error())
	case codes.AlreadyExists, codes.FailedPrecondition:
		return apperrors.NewBusinessRuleError(wrapped.Error(), "rejected by the broker")
	case codes.PermissionDenied, codes.Unauthenticated:
		return apperrors.NewAuthenticationError(wrapped.Error())
	}
	if strings.Contains(strings.ToLower(err.Error()), "deadline exceeded") {
		return apperrors.NewTimeoutError("zeebe", wrapped)
	}
	return apperrors.NewExternalServiceError("zeebe", wrapped)
}
