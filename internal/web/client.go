package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"github.com/konstantinfoerster/doc-analyzer-go/internal/aio"
	"github.com/rs/zerolog/log"
)

var ErrRequestCancelled = errors.New("request cancelled")

type Config struct {
	Delay         time.Duration `yaml:"delay"`
	Timeout       time.Duration `yaml:"timeout"`
	Retries       int32         `yaml:"retries"`
	Retrieables   []int         `yaml:"retrieables"`
	RetryDelay    time.Duration `yaml:"retryDelay"`
	// ExpectedCodes are the status codes accepted as success, defaults to 200 only.
	// Other codes fail with an ExternalAPIError even if the body is valid, list them
	// here to accept every status with a decodable body.
	ExpectedCodes []int `yaml:"expectedCodes"`
}

func DefaultConfig() Config {
	return Config{
		Retries:       0,
		Retrieables:   []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout},
		RetryDelay:    time.Second,
		ExpectedCodes: []int{http.StatusOK},
	}
}

type Response struct {
	Body       io.ReadCloser
	MimeType   MimeType
	StatusCode int
}

// BodyFunc produces a fresh request body and its content-type for every attempt.
type BodyFunc func() (io.ReadCloser, string, error)

func NewPostOpts() PostOptions {
	return PostOptions{
		Header:      make(map[string]string),
		StatusCodes: []int{http.StatusOK},
	}
}

type PostOptions struct {
	Header      map[string]string
	StatusCodes []int
}

func (o PostOptions) WithHeader(k, v string) PostOptions {
	o.Header[k] = v

	return o
}

func (o PostOptions) WithExpectedCodes(statusCode ...int) PostOptions {
	if len(statusCode) == 0 {
		return o
	}
	o.StatusCodes = statusCode

	return o
}

type Client interface {
	Post(ctx context.Context, url string, body BodyFunc, opts PostOptions) (*Response, error)
}

func NewClient(cfg Config, client *http.Client) Client {
	if client == nil {
		panic("missing net/http client")
	}

	return &httpClient{
		cfg:    cfg,
		client: client,
	}
}

type httpClient struct {
	cfg    Config
	client *http.Client
}

func (c *httpClient) Post(ctx context.Context, url string, body BodyFunc, opts PostOptions) (*Response, error) {
	return WithRetry(ctx, c.cfg, func() (*http.Response, error) {
		content, contentType, err := body()
		if err != nil {
			return nil, fmt.Errorf("request body creation failed for url %s, %w", url, err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, content)
		if err != nil {
			aio.Close(content)

			return nil, fmt.Errorf("request creation failed for url %s, %w", url, err)
		}

		req.Header.Set(HeaderUserAgent, DefaultUserAgent)
		if contentType != "" {
			req.Header.Set(HeaderContentType, contentType)
		}
		for k, v := range opts.Header {
			req.Header.Set(k, v)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request execution failed for url %s, %w", url, err)
		}

		if !slices.Contains(opts.StatusCodes, resp.StatusCode) {
			defer aio.Close(resp.Body)

			return nil, NewHTTPErr(url, resp)
		}

		return resp, nil
	})
}

func WithRetry(ctx context.Context, cfg Config, exec func() (*http.Response, error)) (*Response, error) {
	t := time.NewTimer(cfg.Delay)
	defer t.Stop()

	var counter atomic.Int32
	for {
		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRequestCancelled, ctx.Err())
		case <-t.C:
			resp, err := exec()
			if err != nil {
				if resp != nil {
					aio.Close(resp.Body)
				}

				if IsStatusCode(err, cfg.Retrieables...) {
					if counter.Load() >= cfg.Retries {
						return nil, err
					}

					log.Info().Str("err", err.Error()).Msgf("request attempt %d after err", counter.Load()+1)
					counter.Add(1)

					t.Reset(cfg.RetryDelay)

					continue
				}

				return nil, err
			}

			return &Response{
				Body:       resp.Body,
				MimeType:   NewMimeType(resp.Header.Get(HeaderContentType)),
				StatusCode: resp.StatusCode,
			}, nil
		}
	}
}
