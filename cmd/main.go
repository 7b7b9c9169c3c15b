package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/pprof"
	"net/url"
	"os"
	"reflect"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/aukilabs/spatial/featureflag"
	shttp "github.com/aukilabs/spatial/http"
	"github.com/aukilabs/spatial/models"
	"github.com/aukilabs/spatial/octree"
	"github.com/aukilabs/spatial/quadtree"
	"github.com/aukilabs/spatial/smoketest"
	swebsocket "github.com/aukilabs/spatial/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

var (
	// The server version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "spatial_info",
		Help:        "Spatial server information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr               string        `cli:""        env:"SPATIAL_ADDR"                 help:"Listening address for client connections."`
	AdminAddr          string        `cli:""        env:"SPATIAL_ADMIN_ADDR"           help:"Admin listening address."`
	PublicEndpoint     string        `cli:""        env:"SPATIAL_PUBLIC_ENDPOINT"      help:"The public endpoint where this server is reachable."`
	AuthToken          string        `cli:""        env:"SPATIAL_AUTH_TOKEN"           help:"Bearer token required by the scene API and streams. Empty disables authentication."`
	LogLevel           string        `cli:""        env:"SPATIAL_LOG_LEVEL"            help:"Log level (debug|info|warning|error)."`
	LogIndent          bool          `cli:""        env:"SPATIAL_LOG_INDENT"           help:"Indent logs."`
	ClientIdleTimeout  time.Duration `cli:",hidden" env:"SPATIAL_CLIENT_IDLE_TIMEOUT"  help:"Time until an idle client will be disconnected"`
	LogSummaryInterval time.Duration `cli:",hidden" env:"SPATIAL_LOG_SUMMARY_INTERVAL" help:"The duration between each log summary by connection."`
	Scene              sceneConfig   `cli:",hidden" env:"-"                            help:"Scene index configuration."`
	Events             eventsConfig  `cli:",hidden" env:"-"                            help:"Event pusher configuration."`
	FeatureFlags       []string      `cli:",hidden" env:"SPATIAL_FEATURE_FLAGS"        help:"Comma separated feature flags"`
	Version            bool          `cli:""        env:"-"                            help:"Show version."`
	Help               bool          `cli:""        env:"-"                            help:"Show help."`
}

type sceneConfig struct {
	WorldHalfEdge        float64 `cli:",hidden" env:"SPATIAL_SCENE_WORLD_HALF_EDGE"         help:"Half of the edge of the world cube centered on the origin."`
	VolumeSplitThreshold int     `cli:",hidden" env:"SPATIAL_SCENE_VOLUME_SPLIT_THRESHOLD"  help:"The number of entities an octree node holds before splitting."`
	GroundSplitThreshold int     `cli:",hidden" env:"SPATIAL_SCENE_GROUND_SPLIT_THRESHOLD"  help:"The number of entities a quadtree node holds before splitting."`
	MaxDepth             int     `cli:",hidden" env:"SPATIAL_SCENE_MAX_DEPTH"               help:"The maximum depth of the scene trees."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"SPATIAL_EVENTS_ENDPOINT"       help:"Endpoint to where events are pushed."`
	FlushInterval time.Duration `cli:",hidden" env:"SPATIAL_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"SPATIAL_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"SPATIAL_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	conf := config{
		Addr:               ":4000",
		AdminAddr:          ":18190",
		PublicEndpoint:     "http://localhost:4000",
		LogLevel:           logs.InfoLevel.String(),
		ClientIdleTimeout:  time.Minute * 5,
		LogSummaryInterval: time.Minute,
		Scene: sceneConfig{
			WorldHalfEdge:        models.DefaultWorldHalfEdge,
			VolumeSplitThreshold: octree.DefaultSplitThreshold,
			GroundSplitThreshold: quadtree.DefaultSplitThreshold,
			MaxDepth:             octree.DefaultMaxDepth,
		},
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
		Help("Starts the spatial server.").
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
			SDKType:          "spatial",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	featureFlags := featureflag.New(conf.FeatureFlags)

	sceneConf := models.SceneConfig{
		WorldHalfEdge:        conf.Scene.WorldHalfEdge,
		VolumeSplitThreshold: conf.Scene.VolumeSplitThreshold,
		GroundSplitThreshold: conf.Scene.GroundSplitThreshold,
		MaxDepth:             conf.Scene.MaxDepth,
		DisableGroundIndex:   featureFlags.IsSet(featureflag.FlagDisableGroundIndex),
	}
	if _, err := models.NewScene(0, sceneConf); err != nil {
		logs.Fatal(errors.New("invalid scene configuration").Wrap(err))
	}

	var scenes models.SceneStore

	var api http.ServeMux
	sceneHandler := shttp.SceneHandler{
		Scenes:       &scenes,
		SceneConfig:  sceneConf,
		FeatureFlags: featureFlags,
	}
	sceneHandler.Register(&api)

	readinessCheck := func() bool {
		return ctx.Err() == nil
	}

	var service http.ServeMux
	service.Handle("/scenes", shttp.VerifyAuthTokenHandler(conf.AuthToken, &api))
	service.Handle("/scenes/", shttp.VerifyAuthTokenHandler(conf.AuthToken, &api))
	service.Handle("/health", http.HandlerFunc(shttp.HandleHealthCheck))
	service.Handle("/ready", shttp.HandleReadyCheck(readinessCheck))
	service.Handle("/version", shttp.HandleVersion(version))

	service.HandleFunc("/smoke-test", shttp.VerifyAuthTokenHandler(conf.AuthToken, smoketest.HandleSmokeTest(ctx, smoketest.Options{
		Endpoint:  conf.PublicEndpoint,
		UserAgent: fmt.Sprintf("Spatial %s", version),
		SendResult: func(ctx context.Context, res smoketest.Result) error {
			logs.WithTag("to_endpoint", res.ToEndpoint).
				WithTag("success", res.Success).
				WithTag("latency_ms", res.LatencyMilliSec).
				WithTag("error", res.Error).
				Info("smoke test done")
			return nil
		},
	})))

	service.Handle(swebsocket.StreamPattern, websocket.Server{
		Handshake: shttp.VerifyAuthToken(conf.AuthToken),
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			var rh swebsocket.Handler = &swebsocket.RealtimeHandler{
				ClientIdleTimeout: conf.ClientIdleTimeout,
				Scenes:            &scenes,
				FeatureFlags:      featureFlags,
			}
			h := swebsocket.HandlerWithLogs(rh, conf.LogSummaryInterval)
			h = swebsocket.HandlerWithMetrics(h, conf.PublicEndpoint)
			defer h.Close()

			swebsocket.Handle(ctx, conn, h)
		},
	})

	service.Handle("/ping", websocket.Server{
		Handler: func(ws *websocket.Conn) {
			defer ws.Close()
			io.Copy(ws, ws)
		},
	})

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", shttp.HandleHealthCheck)
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))
	admin.HandleFunc("/ready", shttp.HandleReadyCheck(readinessCheck))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("endpoint", conf.PublicEndpoint).
		WithTag("auth", conf.AuthToken != "").
		WithTag("feature_flags", featureFlags.Flags()).
		Info("starting spatial server")

	shttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.Addr, Handler: shttp.HandleWithCORS(metrics.HTTPHandler(&service,
			shttp.MetricsPathFormatter))},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)
}

func validateConfig(conf config) error {
	if _, err := url.ParseRequestURI(conf.PublicEndpoint); err != nil {
		return errors.New("invalid public endpoint").Wrap(err)
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
