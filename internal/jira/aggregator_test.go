package jira

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wahlandcase/commitgate/internal/models"
)

// fakeTransport records every call and answers with canned responses
type fakeTransport struct {
	getBody  []byte
	postBody []byte
	err      error

	gets  []string
	posts []string
	jql   []string
}

func (f *fakeTransport) Get(_ context.Context, path string) ([]byte, error) {
	f.gets = append(f.gets, path)
	if f.err != nil {
		return nil, f.err
	}
	return f.getBody, nil
}

func (f *fakeTransport) Post(_ context.Context, path string, body any) ([]byte, error) {
	f.posts = append(f.posts, path)
	if req, ok := body.(searchRequest); ok {
		f.jql = append(f.jql, req.JQL)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.postBody, nil
}

func (f *fakeTransport) calls() int {
	return len(f.gets) + len(f.posts)
}

func found() *fakeTransport {
	return &fakeTransport{
		getBody:  []byte(`{"key":"TEST"}`),
		postBody: []byte(`{"issues":[{}]}`),
	}
}

func notFound() *fakeTransport {
	return &fakeTransport{
		err:      &NotFoundError{Resource: "x"},
		postBody: []byte(`{"issues":[]}`),
	}
}

func failing(err error) *fakeTransport {
	return &fakeTransport{err: err}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAggregator(transports ...*fakeTransport) *Aggregator {
	names := []string{"L1", "L2", "L3", "L4"}
	backends := make([]*Backend, 0, len(transports))
	for i, tr := range transports {
		backends = append(backends, NewBackend(names[i], tr))
	}
	return NewAggregator(backends, WithLogger(quietLogger()))
}

var testKey = models.NewIssueKey("TEST", "123")

func TestIssueExists_FirstSuccessWins(t *testing.T) {
	l1, l2, l3 := notFound(), found(), found()
	agg := newTestAggregator(l1, l2, l3)

	ok, err := agg.IssueExists(context.Background(), testKey)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, []string{"/issue/TEST-123?fields=summary"}, l1.gets)
	assert.Equal(t, 1, l2.calls())
	assert.Zero(t, l3.calls(), "no backend after the first success is contacted")
}

func TestIssueExists_AllNotFound(t *testing.T) {
	agg := newTestAggregator(notFound(), notFound())

	ok, err := agg.IssueExists(context.Background(), testKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIssueExists_ErrorThenSuccess(t *testing.T) {
	agg := newTestAggregator(failing(&StatusError{Code: 500, Text: "Internal Server Error"}), found())

	ok, err := agg.IssueExists(context.Background(), testKey)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIssueExists_MixedFailureReportsEveryBackend(t *testing.T) {
	e1 := &StatusError{Code: 500, Text: "Internal Server Error"}
	agg := newTestAggregator(failing(e1), notFound())

	ok, err := agg.IssueExists(context.Background(), testKey)
	assert.False(t, ok)

	var aggErr *AggregatedLookupError
	require.ErrorAs(t, err, &aggErr)
	require.Len(t, aggErr.Errors, 2)

	assert.Equal(t, "L1", aggErr.Errors[0].Backend.Name)
	assert.Same(t, e1, aggErr.Errors[0].Err)

	assert.Equal(t, "L2", aggErr.Errors[1].Backend.Name)
	synthesized, isStatus := aggErr.Errors[1].Err.(*StatusError)
	require.True(t, isStatus)
	assert.Equal(t, 404, synthesized.Code)
	assert.Equal(t, "TEST-123: JIRA issue does not exist", synthesized.Text)

	assert.Equal(t, []string{
		"L1: Internal Server Error",
		"L2: TEST-123: JIRA issue does not exist",
	}, aggErr.PrintableErrors())
}

func TestIssueExists_UnclassifiedErrorBecomesUnknown(t *testing.T) {
	agg := newTestAggregator(failing(errors.New("boom")))

	_, err := agg.IssueExists(context.Background(), testKey)

	var aggErr *AggregatedLookupError
	require.ErrorAs(t, err, &aggErr)
	require.Len(t, aggErr.Errors, 1)
	assert.IsType(t, &UnknownError{}, aggErr.Errors[0].Err)
	assert.Equal(t, []string{"L1: internal error: boom, check logs"}, aggErr.PrintableErrors())
}

func TestIssueExists_NoBackends(t *testing.T) {
	agg := NewAggregator(nil)

	assert.False(t, agg.HasBackends())
	_, err := agg.IssueExists(context.Background(), testKey)
	assert.ErrorIs(t, err, ErrNoBackends)
}

func TestProjectExists(t *testing.T) {
	t.Run("matching key", func(t *testing.T) {
		l1 := &fakeTransport{getBody: []byte(`{"key":"TEST","name":"Test"}`)}
		agg := newTestAggregator(l1)

		ok, err := agg.ProjectExists(context.Background(), "TEST")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []string{"/project/TEST"}, l1.gets)
	})

	t.Run("different key falls through", func(t *testing.T) {
		l1 := &fakeTransport{getBody: []byte(`{"key":"OTHER"}`)}
		l2 := &fakeTransport{getBody: []byte(`{"key":"TEST"}`)}
		agg := newTestAggregator(l1, l2)

		ok, err := agg.ProjectExists(context.Background(), "TEST")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 1, l2.calls())
	})

	t.Run("unknown project", func(t *testing.T) {
		agg := newTestAggregator(notFound())

		ok, err := agg.ProjectExists(context.Background(), "TEST")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("malformed body", func(t *testing.T) {
		agg := newTestAggregator(&fakeTransport{getBody: []byte(`not json`)}, notFound())

		_, err := agg.ProjectExists(context.Background(), "TEST")
		var aggErr *AggregatedLookupError
		require.ErrorAs(t, err, &aggErr)
		require.Len(t, aggErr.Errors, 2)
		assert.IsType(t, &UnknownError{}, aggErr.Errors[0].Err)
		assert.Equal(t, "L2: TEST: JIRA project does not exist", aggErr.PrintableErrors()[1])
	})
}

func TestIssueMatchesQuery_RequestContainsKeyAndQuery(t *testing.T) {
	l1 := found()
	agg := newTestAggregator(l1)

	ok, err := agg.IssueMatchesQuery(context.Background(), "project = TEST", testKey)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, []string{"/search?fields=summary&validateQuery=false"}, l1.posts)
	assert.Equal(t, []string{"issueKey=TEST-123 and (project = TEST)"}, l1.jql)
}

func TestIssueMatchesQuery(t *testing.T) {
	tests := []struct {
		name       string
		transports []*fakeTransport
		want       bool
		wantErrs   []string
	}{
		{
			name:       "no issues returned",
			transports: []*fakeTransport{notFound()},
			want:       false,
		},
		{
			name:       "fallthrough after no match",
			transports: []*fakeTransport{notFound(), found()},
			want:       true,
		},
		{
			name:       "fallthrough after error",
			transports: []*fakeTransport{failing(&TransportError{Message: "timeout"}), found()},
			want:       true,
		},
		{
			name: "old backend reporting the missing issue is a non-match",
			transports: []*fakeTransport{failing(&StatusError{
				Code:        400,
				Text:        "An issue with key 'TEST-123' does not exist for field 'issueKey'.",
				Diagnostics: []string{"An issue with key 'TEST-123' does not exist for field 'issueKey'."},
			})},
			want: false,
		},
		{
			name: "diagnostic not naming the issue is an error",
			transports: []*fakeTransport{failing(&StatusError{
				Code:        400,
				Text:        "Field 'foo' does not exist",
				Diagnostics: []string{"Field 'foo' does not exist"},
			})},
			wantErrs: []string{"L1: Field 'foo' does not exist"},
		},
		{
			name: "several diagnostics are an error",
			transports: []*fakeTransport{failing(&StatusError{
				Code:        400,
				Text:        "TEST-123 unknown, Field 'foo' does not exist",
				Diagnostics: []string{"TEST-123 unknown", "Field 'foo' does not exist"},
			})},
			wantErrs: []string{"L1: TEST-123 unknown, Field 'foo' does not exist"},
		},
		{
			name: "not found shown where some errors",
			transports: []*fakeTransport{
				failing(&TransportError{Message: "connection refused"}),
				notFound(),
			},
			wantErrs: []string{
				"L1: connection refused",
				"L2: TEST-123: JIRA issue does not match JQL query: project = TEST",
			},
		},
		{
			name: "all errors are captured",
			transports: []*fakeTransport{
				failing(&TransportError{Message: "request failed", Cause: errors.New("dial tcp: no route to host")}),
				failing(&AuthRequiredError{ReauthURI: "https://jira.example.com/login"}),
			},
			wantErrs: []string{
				"L1: dial tcp: no route to host",
				"L2: Could not authenticate. Please authenticate at https://jira.example.com/login to link your account",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := newTestAggregator(tt.transports...)

			ok, err := agg.IssueMatchesQuery(context.Background(), "project = TEST", testKey)
			if tt.wantErrs != nil {
				var aggErr *AggregatedLookupError
				require.ErrorAs(t, err, &aggErr)
				assert.Equal(t, tt.wantErrs, aggErr.PrintableErrors())
				assert.False(t, ok)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestCheckQuery(t *testing.T) {
	t.Run("valid on first backend", func(t *testing.T) {
		l1, l2 := found(), found()
		agg := newTestAggregator(l1, l2)

		assert.Nil(t, agg.CheckQuery(context.Background(), "status = Open"))
		assert.Equal(t, []string{"status = Open"}, l1.jql)
		assert.Zero(t, l2.calls())
	})

	t.Run("valid on a later backend", func(t *testing.T) {
		agg := newTestAggregator(failing(&StatusError{Code: 400, Text: "bad field"}), found())

		assert.Nil(t, agg.CheckQuery(context.Background(), "cf[10000] = x"))
	})

	t.Run("invalid everywhere", func(t *testing.T) {
		agg := newTestAggregator(
			failing(&StatusError{Code: 400, Text: "Error in the JQL Query"}),
			failing(&TransportError{Message: "unreachable"}),
		)

		assert.Equal(t, []string{
			"L1: Error in the JQL Query",
			"L2: unreachable",
		}, agg.CheckQuery(context.Background(), "status =="))
	})

	t.Run("no backends", func(t *testing.T) {
		agg := NewAggregator(nil)
		assert.Equal(t, []string{ErrNoBackends.Error()}, agg.CheckQuery(context.Background(), "x"))
	})
}

func TestAggregator_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	backends := []*Backend{
		NewBackend("L1", notFound()),
		NewBackend("L2", failing(&StatusError{Code: 500, Text: "oops"})),
		NewBackend("L3", found()),
	}
	agg := NewAggregator(backends, WithLogger(quietLogger()), WithMetrics(metrics))

	ok, err := agg.IssueExists(context.Background(), testKey)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LookupsTotal.WithLabelValues(opIssueExists, "L1", outcomeNotFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LookupsTotal.WithLabelValues(opIssueExists, "L2", outcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LookupsTotal.WithLabelValues(opIssueExists, "L3", outcomeFound)))
}

func TestSearchRequest_JSON(t *testing.T) {
	data, err := json.Marshal(searchRequest{JQL: "issueKey=TEST-123 and (project = TEST)"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"jql":"issueKey=TEST-123 and (project = TEST)"}`, string(data))
}
