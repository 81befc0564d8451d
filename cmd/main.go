package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/pprof"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/aukilabs/kenaz/featureflag"
	kenazhttp "github.com/aukilabs/kenaz/http"
	"github.com/aukilabs/kenaz/mesh"
	"github.com/aukilabs/kenaz/models"
	"github.com/aukilabs/kenaz/modules"
	"github.com/aukilabs/kenaz/modules/nearest"
	"github.com/aukilabs/kenaz/modules/overlap"
	"github.com/aukilabs/kenaz/modules/raycast"
	"github.com/aukilabs/kenaz/report"
	"github.com/aukilabs/kenaz/smoketest"
	kwebsocket "github.com/aukilabs/kenaz/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

var (
	// The Kenaz version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "kenaz_info",
		Help:        "Kenaz information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr               string        `cli:""        env:"KENAZ_ADDR"                  help:"Listening address for client connections."`
	AdminAddr          string        `cli:""        env:"KENAZ_ADMIN_ADDR"            help:"Admin listening address."`
	PublicEndpoint     string        `cli:""        env:"KENAZ_PUBLIC_ENDPOINT"       help:"The public endpoint where this Kenaz server is reachable."`
	AuthToken          string        `cli:""        env:"KENAZ_AUTH_TOKEN"            help:"The bearer token required from clients. Empty disables authentication."`
	Scenes             []string      `cli:""        env:"KENAZ_SCENES"                help:"Comma separated OBJ files loaded as scenes, optionally prefixed by a scene name (name=path)."`
	TreeType           int           `cli:""        env:"KENAZ_TREE_TYPE"             help:"The maximum number of children of a scene tree branch (2-32)."`
	Axis               int           `cli:""        env:"KENAZ_AXIS"                  help:"The number of k-DOP bounds of a scene tree node (6|8|14|18|26)."`
	Epsilon            float64       `cli:""        env:"KENAZ_EPSILON"               help:"The margin added around scene triangle bounds."`
	LogLevel           string        `cli:""        env:"KENAZ_LOG_LEVEL"             help:"Log level (debug|info|warning|error)."`
	LogIndent          bool          `cli:""        env:"KENAZ_LOG_INDENT"            help:"Indent logs."`
	ClientIdleTimeout  time.Duration `cli:",hidden" env:"KENAZ_CLIENT_IDLE_TIMEOUT"   help:"Time until an idle client will be disconnected"`
	LogSummaryInterval time.Duration `cli:",hidden" env:"KENAZ_LOG_SUMMARY_INTERVAL"  help:"The duration between each log summary by connection."`
	Events             eventsConfig  `cli:",hidden" env:"-"                           help:"Event pusher configuration."`
	ReportEndpoint     string        `cli:",hidden" env:"KENAZ_REPORT_ENDPOINT"       help:"Endpoint to where smoke test results are forwarded. Empty logs the results."`
	FeatureFlags       []string      `cli:",hidden" env:"KENAZ_FEATURE_FLAGS"         help:"Comma separated feature flags"`
	Version            bool          `cli:""        env:"-"                           help:"Show version."`
	Help               bool          `cli:""        env:"-"                           help:"Show help."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"KENAZ_EVENTS_ENDPOINT"       help:"Endpoint to where events are pushed. Empty disables event pushing."`
	FlushInterval time.Duration `cli:",hidden" env:"KENAZ_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"KENAZ_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"KENAZ_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func (c config) treeOptions() mesh.TreeOptions {
	return mesh.TreeOptions{
		TreeType: c.TreeType,
		Axis:     c.Axis,
		Epsilon:  c.Epsilon,
	}
}

func main() {
	treeOpts := mesh.DefaultTreeOptions()

	conf := config{
		Addr:               ":4100",
		AdminAddr:          ":18191",
		PublicEndpoint:     "http://localhost:4100",
		TreeType:           treeOpts.TreeType,
		Axis:               treeOpts.Axis,
		Epsilon:            treeOpts.Epsilon,
		LogLevel:           logs.InfoLevel.String(),
		ClientIdleTimeout:  time.Minute * 5,
		LogSummaryInterval: time.Minute,
		Events: eventsConfig{
			FlushInterval: events.DefaultFlushInterval,
			BatchSize:     events.DefaultBatchSize,
			QueueSize:     events.DefaultQueueSize,
		},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts Kenaz server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	transport := metrics.HTTPTransport(http.DefaultTransport)

	if conf.Events.Endpoint != "" {
		eventsPusher := events.Pusher{
			Endpoint:      conf.Events.Endpoint,
			FlushInterval: conf.Events.FlushInterval,
			BatchSize:     conf.Events.BatchSize,
			QueueSize:     conf.Events.QueueSize,
			Transport:     transport,
		}
		go eventsPusher.Start()
		defer eventsPusher.Close()

		eventsLogger := events.Logger{
			Pusher:           &eventsPusher,
			SDKType:          "kenaz",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	var scenes models.SceneStore
	var ready atomic.Bool

	featureFlags := featureflag.New(conf.FeatureFlags)

	withAuth := func(h http.HandlerFunc) http.Handler {
		return kenazhttp.HandleWithCORS(kenazhttp.VerifyAuthTokenHandler(conf.AuthToken, h))
	}

	var service http.ServeMux
	service.Handle("/health", kenazhttp.HandleWithCORS(http.HandlerFunc(kenazhttp.HandleHealthCheck)))
	service.Handle("/version", kenazhttp.HandleWithCORS(kenazhttp.HandleVersion(version)))
	service.Handle("/ready", kenazhttp.HandleWithCORS(kenazhttp.HandleReadyCheck(ready.Load)))

	sendSmokeTestResult := func(ctx context.Context, res smoketest.Result) error {
		logs.WithTag("result", res).Info("smoke test finished")
		return nil
	}
	if conf.ReportEndpoint != "" {
		reportHandler := report.ReportHandler{
			Endpoint:   conf.ReportEndpoint,
			Transport:  transport,
			ResultChan: make(chan smoketest.Result, 64),
		}
		reportHandler.HandleResults(ctx)
		sendSmokeTestResult = reportHandler.SendResult
	}

	service.Handle("/smoke-test", withAuth(smoketest.HandleSmokeTest(ctx, smoketest.Options{
		Endpoint:   conf.PublicEndpoint,
		UserAgent:  fmt.Sprintf("Kenaz %s", version),
		SendResult: sendSmokeTestResult,
	})))

	sceneHandler := kenazhttp.SceneHandler{
		Scenes:       &scenes,
		FeatureFlags: featureFlags,
	}
	sceneHandler.Register(&service, withAuth)

	service.Handle("/", kenazhttp.HandleWithCORS(websocket.Server{
		Handshake: kenazhttp.VerifyAuthToken(conf.AuthToken),
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			var rh kwebsocket.Handler = &kwebsocket.RealtimeHandler{
				ClientIdleTimeout: conf.ClientIdleTimeout,
				Scenes:            &scenes,
				Modules: []modules.Module{
					&raycast.Module{FeatureFlags: featureFlags},
					&nearest.Module{FeatureFlags: featureFlags},
					&overlap.Module{FeatureFlags: featureFlags, Scenes: &scenes},
				},
			}
			h := kwebsocket.HandlerWithLogs(rh, conf.LogSummaryInterval)
			h = kwebsocket.HandlerWithMetrics(h, conf.PublicEndpoint)
			defer h.Close()

			kwebsocket.Handle(ctx, conn, h)
		},
	}))

	service.Handle("/ping", websocket.Server{
		Handler: func(ws *websocket.Conn) {
			defer ws.Close()
			io.Copy(ws, ws)
		},
	})

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", kenazhttp.HandleHealthCheck)
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))
	admin.HandleFunc("/ready", kenazhttp.HandleReadyCheck(ready.Load))

	go func() {
		if err := loadScenes(&scenes, conf.Scenes, conf.treeOptions()); err != nil {
			logs.Fatal(errors.New("loading scenes failed").Wrap(err))
		}
		ready.Store(true)
	}()

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("endpoint", conf.PublicEndpoint).
		WithTag("scenes", len(conf.Scenes)).
		WithTag("feature_flags", featureFlags.List()).
		Info("starting kenaz server")

	kenazhttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			kenazhttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)
}

// loadScenes loads the given scene files. A file can be prefixed by the scene
// name followed by '='. The file name without extension is used otherwise.
func loadScenes(scenes *models.SceneStore, files []string, opts mesh.TreeOptions) error {
	for _, f := range files {
		name, path, ok := strings.Cut(f, "=")
		if !ok {
			path = f
			name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}

		start := time.Now()
		scene, err := models.LoadScene(scenes.NewID(), name, path, opts)
		if err != nil {
			return err
		}

		if err := scenes.Add(scene); err != nil {
			return err
		}

		logs.WithTag("scene_id", scene.ID).
			WithTag("scene_name", scene.Name).
			WithTag("duration", time.Since(start)).
			Debug("scene added")
	}
	return nil
}

func validateConfig(conf config) error {
	if _, err := url.ParseRequestURI(conf.PublicEndpoint); err != nil {
		return errors.New("invalid public endpoint").Wrap(err)
	}

	if err := conf.treeOptions().Validate(); err != nil {
		return err
	}

	if conf.ReportEndpoint != "" {
		if _, err := url.ParseRequestURI(conf.ReportEndpoint); err != nil {
			return errors.New("invalid report endpoint").Wrap(err)
		}
	}

	if unknown := featureflag.Unknown(conf.FeatureFlags); len(unknown) != 0 {
		return errors.New("unknown feature flags").
			WithTag("feature_flags", unknown)
	}

	if conf.ClientIdleTimeout <= 0 {
		return errors.New("client idle timeout must be positive").
			WithTag("client_idle_timeout", conf.ClientIdleTimeout)
	}

	if conf.LogSummaryInterval <= 0 {
		return errors.New("log summary interval must be positive").
			WithTag("log_summary_interval", conf.LogSummaryInterval)
	}

	return nil
}
