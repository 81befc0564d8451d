package websocket

import (
	"context"
	"maps"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/kenaz/messages"
	"github.com/aukilabs/kenaz/modules"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/net/websocket"
)

const (
	errTypeLabel        = "error_type"
	msgTypeLabel        = "msg_type"
	moduleLabel         = "module"
	publicEndpointLabel = "public_endpoint"
	resultLabel         = "result"
	sceneNameLabel      = "scene_name"

	defaultModule = "kenaz"
)

var (
	wsConnectedClients = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ws_connected_clients",
		Help: "The number of connected clients.",
	}, []string{
		publicEndpointLabel,
	})

	wsSceneJoins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_scene_joins",
		Help: "The number of times a client joined a scene.",
	}, []string{
		publicEndpointLabel,
		sceneNameLabel,
	})

	wsReceivedMsgs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_received_msgs",
		Help: "The number of messages received from WebSocket connections.",
	}, []string{
		publicEndpointLabel,
		msgTypeLabel,
	})

	wsReceivedBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_received_bytes",
		Help: "The number of bytes received from WebSocket connections.",
	}, []string{
		publicEndpointLabel,
		msgTypeLabel,
	})

	wsReceiveError = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_receive_errors",
		Help: "The errors that occured while receiving a websocket message.",
	}, []string{
		publicEndpointLabel,
		errTypeLabel,
	})

	wsSentMsgs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_sent_msgs",
		Help: "The number of messages sent to WebSocket connections.",
	}, []string{
		publicEndpointLabel,
		msgTypeLabel,
	})

	wsSentBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_sent_bytes",
		Help: "The number of bytes sent to WebSocket connections.",
	}, []string{
		publicEndpointLabel,
		msgTypeLabel,
	})

	wsSendError = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_send_errors",
		Help: "The errors that occured while sending a websocket message.",
	}, []string{
		publicEndpointLabel,
		errTypeLabel,
		msgTypeLabel,
	})

	wsMsgLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "ws_msg_latency",
		Help: "The time to process a WebSocket msg.",
	}, []string{
		publicEndpointLabel,
		msgTypeLabel,
		moduleLabel,
		sceneNameLabel,
	})

	wsQueryResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_query_results",
		Help: "The outcome of the queries answered by the modules.",
	}, []string{
		publicEndpointLabel,
		msgTypeLabel,
		sceneNameLabel,
		resultLabel,
	})
)

func HandlerWithMetrics(h Handler, publicEndpoint string) Handler {
	return &handlerWithMetrics{
		Handler:        h,
		publicEndpoint: publicEndpoint,
	}
}

type handlerWithMetrics struct {
	Handler

	publicEndpoint string
}

func (h *handlerWithMetrics) HandleConnect(conn *websocket.Conn) {
	wsConnectedClients.
		With(prometheus.Labels{
			publicEndpointLabel: h.publicEndpoint,
		}).
		Inc()

	h.Handler.HandleConnect(conn)
}

func (h *handlerWithMetrics) HandlePing(ctx context.Context, sender messages.ResponseSender, msg messages.Msg) error {
	return h.measureLatency(msg, defaultModule, func() error {
		return h.Handler.HandlePing(ctx, sender, msg)
	})
}

func (h *handlerWithMetrics) HandleSceneJoin(ctx context.Context, sender messages.ResponseSender, msg messages.Msg) error {
	previous := h.CurrentScene()

	err := h.measureLatency(msg, defaultModule, func() error {
		return h.Handler.HandleSceneJoin(ctx, sender, msg)
	})

	if scene := h.CurrentScene(); scene != nil && scene != previous {
		wsSceneJoins.
			With(prometheus.Labels{
				publicEndpointLabel: h.publicEndpoint,
				sceneNameLabel:      scene.Name,
			}).
			Inc()
	}
	return err
}

func (h *handlerWithMetrics) HandleDisconnect(err error) {
	wsConnectedClients.
		With(prometheus.Labels{
			publicEndpointLabel: h.publicEndpoint,
		}).
		Dec()

	h.Handler.HandleDisconnect(err)
}

func (h *handlerWithMetrics) HandleWithModule(ctx context.Context, module modules.Module, sender messages.ResponseSender, msg messages.Msg) error {
	counted := resultCounter{
		ResponseSender: sender,
		labels: prometheus.Labels{
			publicEndpointLabel: h.publicEndpoint,
			msgTypeLabel:        msg.TypeString(),
			sceneNameLabel:      h.sceneName(),
		},
	}

	return h.measureLatency(msg, module.Name(), func() error {
		return h.Handler.HandleWithModule(ctx, module, counted, msg)
	})
}

func (h *handlerWithMetrics) Receiver() messages.Receiver {
	receive := h.Handler.Receiver()

	return func() (messages.Msg, int, error) {
		msg, n, err := receive()
		if err != nil {
			wsReceiveError.
				With(prometheus.Labels{
					publicEndpointLabel: h.publicEndpoint,
					errTypeLabel:        errors.Type(err),
				}).
				Inc()
		} else {
			wsReceivedMsgs.
				With(prometheus.Labels{
					publicEndpointLabel: h.publicEndpoint,
					msgTypeLabel:        msg.TypeString(),
				}).
				Inc()
		}

		if n != 0 {
			wsReceivedBytes.
				With(prometheus.Labels{
					publicEndpointLabel: h.publicEndpoint,
					msgTypeLabel:        msg.TypeString(),
				}).
				Add(float64(n))
		}

		return msg, n, err
	}
}

func (h *handlerWithMetrics) Sender() messages.Sender {
	sender := h.Handler.Sender()

	return func(msg messages.Msg) (int, error) {
		msgType := msg.TypeString()

		n, err := sender(msg)
		if err != nil {
			wsSendError.
				With(prometheus.Labels{
					publicEndpointLabel: h.publicEndpoint,
					msgTypeLabel:        msgType,
					errTypeLabel:        errors.Type(err),
				}).
				Inc()
		}

		if n != 0 {
			wsSentMsgs.
				With(prometheus.Labels{
					publicEndpointLabel: h.publicEndpoint,
					msgTypeLabel:        msgType,
				}).
				Inc()
			wsSentBytes.
				With(prometheus.Labels{
					publicEndpointLabel: h.publicEndpoint,
					msgTypeLabel:        msgType,
				}).
				Add(float64(n))
		}

		return n, err
	}
}

func (h *handlerWithMetrics) measureLatency(msg messages.Msg, module string, f func() error) error {
	start := time.Now()

	err := f()
	if errors.IsType(err, messages.ErrTypeMsgSkip) {
		return err
	}

	wsMsgLatency.With(prometheus.Labels{
		publicEndpointLabel: h.publicEndpoint,
		msgTypeLabel:        msg.TypeString(),
		moduleLabel:         module,
		sceneNameLabel:      h.sceneName(),
	}).Observe(time.Since(start).Seconds())

	return err
}

func (h *handlerWithMetrics) sceneName() string {
	if scene := h.CurrentScene(); scene != nil {
		return scene.Name
	}
	return ""
}

// resultCounter counts the query responses sent by a module by outcome.
type resultCounter struct {
	messages.ResponseSender

	labels prometheus.Labels
}

func (c resultCounter) Send(requestID uint32, p messages.Payload) {
	if result, ok := queryResult(p); ok {
		labels := maps.Clone(c.labels)
		labels[resultLabel] = result
		wsQueryResults.With(labels).Inc()
	}
	c.ResponseSender.Send(requestID, p)
}

// queryResult returns the outcome of a query response. It fails for payloads
// that do not answer a query.
func queryResult(p messages.Payload) (string, bool) {
	switch p := p.(type) {
	case messages.RaycastResponse:
		return hitResult(p.Hit), true

	case messages.NearestResponse:
		return hitResult(p.Hit), true

	case messages.OverlapResponse:
		if len(p.Pairs) == 0 {
			return "none", true
		}
		return "overlap", true

	case messages.LeafUpdateResponse:
		return "updated", true

	case messages.ErrorResponse:
		return string(p.Code), true

	default:
		return "", false
	}
}

func hitResult(hit *messages.Hit) string {
	if hit == nil {
		return "miss"
	}
	return "hit"
}
