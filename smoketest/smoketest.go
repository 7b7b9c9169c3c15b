// Package smoketest checks that a spatial server serves its HTTP API and its
// realtime stream end to end.
package smoketest

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/spatial/messages"
	"github.com/aukilabs/spatial/models"
	swebsocket "github.com/aukilabs/spatial/websocket"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

const (
	DefaultTimeout = time.Second * 10
)

type Options struct {
	// The endpoint of the server that runs the smoke tests.
	Endpoint  string
	UserAgent string

	// Called with the result of each smoke test.
	SendResult func(context.Context, Result) error
}

// Request is the body of a smoke test request. Timeout is in milliseconds.
type Request struct {
	Endpoint string `json:"endpoint"`
	Token    string `json:"token,omitempty"`
	Timeout  int64  `json:"timeout,omitempty"`
}

type Result struct {
	FromEndpoint    string  `json:"from_endpoint"`
	ToEndpoint      string  `json:"to_endpoint"`
	Success         bool    `json:"success"`
	Error           string  `json:"error,omitempty"`
	LatencyMilliSec float64 `json:"latency_ms"`
}

// HandleSmokeTest starts a smoke test against the endpoint in the request
// body. The test runs in the background and its result is passed to
// opts.SendResult.
func HandleSmokeTest(ctx context.Context, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Endpoint == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		timeout := time.Duration(req.Timeout) * time.Millisecond
		if timeout <= 0 {
			timeout = DefaultTimeout
		}

		go func() {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			res, err := Run(ctx, RunOptions{
				FromEndpoint:    opts.Endpoint,
				ToEndpoint:      req.Endpoint,
				ToEndpointToken: req.Token,
				UserAgent:       opts.UserAgent,
			})
			if err != nil {
				logs.WithTag("to_endpoint", req.Endpoint).Warn(err)
			}
			instrumentSmokeTest(res)

			if err := opts.SendResult(ctx, res); err != nil {
				logs.WithTag("from_endpoint", opts.Endpoint).
					WithTag("to_endpoint", req.Endpoint).
					Warn(errors.New("sending smoke test result failed").Wrap(err))
			}
		}()

		w.WriteHeader(http.StatusAccepted)
	}
}

type RunOptions struct {
	FromEndpoint    string
	ToEndpoint      string
	ToEndpointToken string
	UserAgent       string
	Client          *http.Client
}

// Run creates a scene on the target endpoint, joins it over a websocket, adds
// an entity and queries it back. The scene is deleted before returning.
func Run(ctx context.Context, opts RunOptions) (Result, error) {
	res := Result{
		FromEndpoint: opts.FromEndpoint,
		ToEndpoint:   opts.ToEndpoint,
	}

	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}

	start := time.Now()
	err := run(ctx, opts)
	res.LatencyMilliSec = float64(time.Since(start)) / float64(time.Millisecond)

	if err != nil {
		res.Error = err.Error()
		return res, errors.New("smoke test failed").
			WithTag("to_endpoint", opts.ToEndpoint).
			Wrap(err)
	}

	res.Success = true
	return res, nil
}

func run(ctx context.Context, opts RunOptions) error {
	endpoint := strings.TrimSuffix(opts.ToEndpoint, "/")

	var scene models.SceneState
	if err := doJSON(ctx, opts, http.MethodPost, endpoint+"/scenes", nil, &scene); err != nil {
		return errors.New("creating scene failed").Wrap(err)
	}

	defer func() {
		// The scene is deleted even when ctx is done.
		url := fmt.Sprintf("%s/scenes/%v", endpoint, scene.ID)
		if err := doJSON(context.Background(), opts, http.MethodDelete, url, nil, nil); err != nil {
			logs.WithTag("scene_id", scene.ID).
				Warn(errors.New("deleting smoke test scene failed").Wrap(err))
		}
	}()

	conn, err := dial(ctx, endpoint, scene.ID, opts)
	if err != nil {
		return errors.New("dialing scene stream failed").Wrap(err)
	}
	defer conn.Close()

	var entityID uint32

	return swebsocket.NewScenario(conn).
		Receive(swebsocket.FilterByType(messages.TypeSceneJoined)).
		Send(messages.EntityAdd{
			Header: messages.Header{Type: messages.TypeEntityAdd, RequestID: 1},
			Radius: 1,
			Pose:   models.Pose{RW: 1},
		}).
		Receive(swebsocket.FilterByRequestID(1), checkNotError, func(msg messages.Msg) error {
			var res messages.EntityAddResponse
			if err := msg.DataTo(&res); err != nil {
				return err
			}
			entityID = res.EntityID
			return nil
		}).
		Send(messages.Query{
			Header: messages.Header{Type: messages.TypeQuery, RequestID: 2},
			Query:  models.Query{Type: models.QueryTypeSphere, Radius: 2},
		}).
		Receive(swebsocket.FilterByRequestID(2), checkNotError, func(msg messages.Msg) error {
			var res messages.QueryResponse
			if err := msg.DataTo(&res); err != nil {
				return err
			}

			for _, e := range res.Entities {
				if e.ID == entityID {
					return nil
				}
			}
			return errors.New("added entity not found by query").
				WithTag("entity_id", entityID)
		}).
		Run(ctx)
}

func checkNotError(msg messages.Msg) error {
	if msg.Type != messages.TypeError {
		return nil
	}

	var res messages.Error
	if err := msg.DataTo(&res); err != nil {
		return err
	}
	return errors.New(res.Message).
		WithType(res.ErrorType).
		WithTag("request_id", msg.RequestID)
}

func dial(ctx context.Context, endpoint string, sceneID uint32, opts RunOptions) (*websocket.Conn, error) {
	wsEndpoint := strings.Replace(endpoint, "http", "ws", 1)

	origin := opts.FromEndpoint
	if origin == "" {
		origin = endpoint
	}

	config, err := websocket.NewConfig(fmt.Sprintf("%s/scenes/%v/stream", wsEndpoint, sceneID), origin)
	if err != nil {
		return nil, err
	}

	setHeaders(config.Header, opts)
	return config.DialContext(ctx)
}

func doJSON(ctx context.Context, opts RunOptions, method, url string, body, res any) error {
	var b bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&b).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, &b)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	setHeaders(req.Header, opts)

	resp, err := opts.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return errors.New("unexpected status code").
			WithTag("method", method).
			WithTag("url", url).
			WithTag("status_code", resp.StatusCode)
	}

	if res == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(res)
}

func setHeaders(h http.Header, opts RunOptions) {
	if opts.UserAgent != "" {
		h.Set("User-Agent", opts.UserAgent)
	}
	if opts.ToEndpointToken != "" {
		h.Set("Authorization", "Bearer "+opts.ToEndpointToken)
	}
}
