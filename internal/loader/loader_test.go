package loader

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nomadcxx/movieindexd/internal/logging"
)

// fakeTransport answers every request with a canned response, recording the
// request bodies it was sent so tests can assert on bulk payload shape.
type fakeTransport struct {
	bulkResponse   string
	createResponse func(index string) (int, string)
	requests       []*http.Request
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.requests = append(f.requests, req)

	if strings.Contains(req.URL.Path, "/_bulk") {
		return &http.Response{
			StatusCode: 200,
			Body:       io.NopCloser(strings.NewReader(f.bulkResponse)),
			Header:     http.Header{"Content-Type": []string{"application/json"}},
		}, nil
	}

	status, body := 200, `{"acknowledged":true}`
	if f.createResponse != nil {
		status, body = f.createResponse(strings.Trim(req.URL.Path, "/"))
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}, nil
}

func newTestClient(t *testing.T, transport *fakeTransport) *elasticsearch.Client {
	t.Helper()
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://elastic.test:9200"},
		Transport: transport,
	})
	require.NoError(t, err)
	return client
}

func docsChan(docs ...map[string]any) <-chan map[string]any {
	ch := make(chan map[string]any, len(docs))
	for _, d := range docs {
		ch <- d
	}
	close(ch)
	return ch
}

const successfulBulkResponse = `{"errors": false, "items": [{"index": {"_id": "m1", "status": 201}}]}`
const partialFailureBulkResponse = `{"errors": true, "items": [{"index": {"_id": "m1", "status": 400, "error": {"reason": "mapper_parsing_exception"}}}]}`

func TestLoader_Load_AllSucceed(t *testing.T) {
	transport := &fakeTransport{bulkResponse: successfulBulkResponse}
	client := newTestClient(t, transport)
	l := New(client, logging.Nop())

	docs := docsChan(map[string]any{"_id": "m1", "title": "Arrival"})
	anyFailed, err := l.Load(context.Background(), "movies", docs)
	require.NoError(t, err)
	assert.False(t, anyFailed)
}

func TestLoader_Load_PartialFailureDoesNotErrorOverallLoad(t *testing.T) {
	transport := &fakeTransport{bulkResponse: partialFailureBulkResponse}
	client := newTestClient(t, transport)
	l := New(client, logging.Nop())

	docs := docsChan(map[string]any{"_id": "m1", "title": "Arrival"})
	anyFailed, err := l.Load(context.Background(), "movies", docs)
	require.NoError(t, err)
	assert.True(t, anyFailed)
}

func TestLoader_Bootstrap_IgnoresAlreadyExists(t *testing.T) {
	transport := &fakeTransport{
		createResponse: func(index string) (int, string) {
			return 400, `{"error": {"type": "resource_already_exists_exception", "reason": "index already exists"}}`
		},
	}
	client := newTestClient(t, transport)
	l := New(client, logging.Nop())

	err := l.Bootstrap(context.Background())
	require.NoError(t, err)
}

func TestLoader_Bootstrap_CreatesAllThreeIndexes(t *testing.T) {
	transport := &fakeTransport{
		createResponse: func(index string) (int, string) { return 200, `{"acknowledged":true}` },
	}
	client := newTestClient(t, transport)
	l := New(client, logging.Nop())

	err := l.Bootstrap(context.Background())
	require.NoError(t, err)

	var created []string
	for _, req := range transport.requests {
		if req.Method == http.MethodPut {
			created = append(created, req.URL.Path)
		}
	}
	assert.Len(t, created, 3)
}

func TestLoader_Bootstrap_PropagatesGenuineError(t *testing.T) {
	transport := &fakeTransport{
		createResponse: func(index string) (int, string) {
			return 500, `{"error": {"type": "internal_server_error", "reason": "boom"}}`
		},
	}
	client := newTestClient(t, transport)
	l := New(client, logging.Nop())

	err := l.Bootstrap(context.Background())
	require.Error(t, err)
}
