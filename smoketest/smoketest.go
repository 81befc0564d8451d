// Package smoketest checks that a Kenaz server answers realtime queries.
package smoketest

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	kenazhttp "github.com/aukilabs/kenaz/http"
	"github.com/aukilabs/kenaz/messages"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"

	defaultTimeout = 10 * time.Second
)

type Options struct {
	Endpoint   string
	UserAgent  string
	SendResult func(context.Context, Result) error
}

// Request describes the server to test.
type Request struct {
	Endpoint string        `json:"endpoint"`
	Token    string        `json:"token,omitempty"`
	SceneID  uint32        `json:"scene_id"`
	Timeout  time.Duration `json:"timeout,omitempty"`
}

type Result struct {
	FromEndpoint    string  `json:"from_endpoint"`
	ToEndpoint      string  `json:"to_endpoint"`
	SceneID         uint32  `json:"scene_id"`
	Status          string  `json:"status"`
	LatencyMilliSec float64 `json:"latency_ms"`
	Hit             bool    `json:"hit"`
	Error           string  `json:"error,omitempty"`
}

type testCtxKey string

var testCtxKeyValue testCtxKey = "test-context"

type testContext struct {
	context.Context
	Cancel func()
}

func HandleSmokeTest(ctx context.Context, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			kenazhttp.WriteError(w, messages.ErrorCodeInternal, errors.New("reading body failed").Wrap(err))
			return
		}

		var req Request
		if err := json.Unmarshal(b, &req); err != nil {
			kenazhttp.WriteError(w, messages.ErrorCodeBadRequest, errors.New("decoding body failed").Wrap(err))
			return
		}

		go func() {
			defer func() {
				// if context is of testContext
				// cancel context on exit to signal function exited
				// this is used for testing
				if tctx := ctx.Value(testCtxKeyValue); tctx != nil {
					testCtx := tctx.(testContext)
					if testCtx.Cancel != nil {
						testCtx.Cancel()
					}
				}
			}()

			res, err := RunSmokeTest(ctx, RunOptions{
				FromEndpoint: opts.Endpoint,
				ToEndpoint:   req.Endpoint,
				Token:        req.Token,
				SceneID:      req.SceneID,
				Timeout:      req.Timeout,
				UserAgent:    opts.UserAgent,
			})
			if err != nil {
				logs.Warn(err)
			}

			if err := opts.SendResult(ctx, res); err != nil {
				logs.WithTag("from_endpoint", opts.Endpoint).
					WithTag("to_endpoint", req.Endpoint).
					Warn(errors.New("sending smoke test result failed").Wrap(err))
			}
		}()

		w.WriteHeader(http.StatusOK)
	}
}

type RunOptions struct {
	FromEndpoint string
	ToEndpoint   string
	Token        string
	SceneID      uint32
	Timeout      time.Duration
	UserAgent    string
}

// RunSmokeTest connects to a Kenaz server, pings it, joins a scene and casts a
// ray through the scene bounds.
func RunSmokeTest(ctx context.Context, opts RunOptions) (Result, error) {
	res := Result{
		FromEndpoint: opts.FromEndpoint,
		ToEndpoint:   opts.ToEndpoint,
		SceneID:      opts.SceneID,
		Status:       StatusFailed,
	}

	hit, latency, err := runSmokeTest(ctx, opts)
	if err != nil {
		res.Error = err.Error()
		return res, errors.New("smoke test failed").
			WithTag("to_endpoint", opts.ToEndpoint).
			WithTag("scene_id", opts.SceneID).
			Wrap(err)
	}

	res.Status = StatusSuccess
	res.LatencyMilliSec = float64(latency) / float64(time.Millisecond)
	res.Hit = hit
	return res, nil
}

func runSmokeTest(ctx context.Context, opts RunOptions) (bool, time.Duration, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	conn, err := dial(opts, timeout)
	if err != nil {
		return false, 0, err
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	conn.SetDeadline(time.Now().Add(timeout))

	start := time.Now()
	if err := send(conn, 1, messages.PingRequest{}); err != nil {
		return false, 0, err
	}
	if _, err := expect(conn, 1, messages.MsgTypePingResponse); err != nil {
		return false, 0, err
	}
	latency := time.Since(start)

	if err := send(conn, 2, messages.SceneJoinRequest{SceneID: opts.SceneID}); err != nil {
		return false, 0, err
	}
	msg, err := expect(conn, 2, messages.MsgTypeSceneJoinResponse)
	if err != nil {
		return false, 0, err
	}

	var join messages.SceneJoinResponse
	if err := msg.DataTo(&join); err != nil {
		return false, 0, err
	}

	lower, upper := join.Scene.Min, join.Scene.Max
	if err := send(conn, 3, messages.RaycastRequest{
		Origin:    messages.Vector{(lower[0] + upper[0]) / 2, (lower[1] + upper[1]) / 2, upper[2] + 1},
		Direction: messages.Vector{0, 0, -1},
	}); err != nil {
		return false, 0, err
	}
	if msg, err = expect(conn, 3, messages.MsgTypeRaycastResponse); err != nil {
		return false, 0, err
	}

	var raycast messages.RaycastResponse
	if err := msg.DataTo(&raycast); err != nil {
		return false, 0, err
	}
	return raycast.Hit != nil, latency, nil
}

func dial(opts RunOptions, timeout time.Duration) (*websocket.Conn, error) {
	endpoint := opts.ToEndpoint
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		endpoint = "wss://" + strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		endpoint = "ws://" + strings.TrimPrefix(endpoint, "http://")
	}

	origin := opts.FromEndpoint
	if origin == "" {
		origin = "http://localhost"
	}

	config, err := websocket.NewConfig(endpoint, origin)
	if err != nil {
		return nil, errors.New("invalid endpoint").
			WithTag("endpoint", opts.ToEndpoint).
			Wrap(err)
	}

	config.Dialer = &net.Dialer{Timeout: timeout}
	if opts.UserAgent != "" {
		config.Header.Set("User-Agent", opts.UserAgent)
	}
	if opts.Token != "" {
		config.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	conn, err := websocket.DialConfig(config)
	if err != nil {
		return nil, errors.New("dialing server failed").
			WithTag("endpoint", endpoint).
			Wrap(err)
	}
	return conn, nil
}

func send(conn *websocket.Conn, requestID uint32, p messages.Payload) error {
	msg, err := messages.MsgFromPayload(requestID, p)
	if err != nil {
		return err
	}

	_, err = messages.Send(conn, msg)
	return err
}

// expect waits for the response of the given request.
func expect(conn *websocket.Conn, requestID uint32, msgType messages.MsgType) (messages.Msg, error) {
	for {
		msg, _, err := messages.Receive(conn)
		if err != nil {
			return messages.Msg{}, errors.New("receiving message failed").
				WithTag("expected_msg_type", msgType).
				Wrap(err)
		}

		if msg.RequestID != requestID {
			continue
		}

		switch msg.Type {
		case msgType:
			return msg, nil

		case messages.MsgTypeErrorResponse:
			var res messages.ErrorResponse
			msg.DataTo(&res)
			return messages.Msg{}, errors.Newf("server responded %s", res.Code).
				WithTag("expected_msg_type", msgType).
				WithTag("message", res.Message)
		}
	}
}
