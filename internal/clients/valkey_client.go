package clients

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"
)

var (
	valkeyInstance *ValkeyClient
	valkeyErr      error
	valkeyOnce     sync.Once
)

type ValkeyOptions struct {
	Address  string
	Password string
	TLS      bool
}

type ValkeyClient struct {
	Client valkey.Client
}

// InitValkey connects once per process and pings the server.
func InitValkey(opts ValkeyOptions) (*ValkeyClient, error) {
	valkeyOnce.Do(func() {
		clientOpts := valkey.ClientOption{
			InitAddress:      []string{opts.Address},
			Password:         opts.Password,
			ConnWriteTimeout: 5 * time.Second,
			SelectDB:         0,
		}
		if opts.TLS {
			clientOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}

		client, err := valkey.NewClient(clientOpts)
		if err != nil {
			valkeyErr = fmt.Errorf("[ValkeyClient] failed to create Valkey: %w", err)
			return
		}

		vc := &ValkeyClient{Client: client}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := vc.Ping(ctx); err != nil {
			client.Close()
			valkeyErr = fmt.Errorf("[ValkeyClient] failed to ping Valkey: %w", err)
			return
		}

		slog.Info("[ValkeyClient] Successfully connected to valkey", slog.String("address", opts.Address))
		valkeyInstance = vc
	})
	return valkeyInstance, valkeyErr
}

func (vc *ValkeyClient) Ping(ctx context.Context) error {
	return vc.Client.Do(ctx, vc.Client.B().Ping().Build()).Error()
}

func (vc *ValkeyClient) Close() {
	if vc != nil && vc.Client != nil {
		vc.Client.Close()
	}
}

// Get returns the string at key. A missing key reports found=false and no
// error.
func (vc *ValkeyClient) Get(ctx context.Context, key string) (string, bool, error) {
	res := vc.DoWithRetry(ctx, func() valkey.Completed {
		return vc.Client.B().Get().Key(key).Build()
	}, 2)
	val, err := res.ToString()
	if valkey.IsValkeyNil(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (vc *ValkeyClient) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	seconds := int64(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return vc.DoWithRetry(ctx, func() valkey.Completed {
		return vc.Client.B().Set().Key(key).Value(value).ExSeconds(seconds).Build()
	}, 2).Error()
}

// DoWithRetry retries connection-level failures only. A nil reply is a
// result, not a failure. build is called per attempt since completed
// commands are recycled after use.
func (vc *ValkeyClient) DoWithRetry(ctx context.Context, build func() valkey.Completed, retries int) valkey.ValkeyResult {
	var result valkey.ValkeyResult
	for i := 0; i < retries; i++ {
		result = vc.Client.Do(ctx, build())
		err := result.Error()
		if err == nil || valkey.IsValkeyNil(err) || !isConnectionError(err) {
			return result
		}

		slog.Warn("[ValkeyClient] Do failed",
			slog.Int("attempt", i+1),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return result
		case <-time.After(250 * time.Millisecond):
		}
	}
	return result
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "i/o timeout")
}
