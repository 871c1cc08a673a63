package yamllog

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rickchristie/relay"
	"github.com/rickchristie/relay/events"
	"github.com/rickchristie/relay/internal/tt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var fixedTime = time.Date(2025, 2, 15, 14, 30, 0, 0, time.UTC)

func newTestLogger(buf *bytes.Buffer) *Logger {
	return NewWithWriter(buf).WithClock(func() time.Time { return fixedTime })
}

// parseEntry splits one logged entry into its header and YAML document.
func parseEntry(t *testing.T, out string) (string, map[string]any) {
	t.Helper()
	out = strings.TrimPrefix(out, "\n")
	header, body, found := strings.Cut(out, "\n")
	require.True(t, found, "entry must have a header line")

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(body), &doc))
	return header, doc
}

func TestLogger_HeaderAndRunIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	run := relay.Run{ID: uuid.MustParse("11111111-1111-1111-1111-111111111111")}

	err := logger.OnChainStart(context.Background(), &relay.ChainStartEvent{
		Run:    run,
		Inputs: map[string]any{"question": "why?"},
	})
	require.NoError(t, err)

	header, doc := parseEntry(t, buf.String())
	assert.Equal(t, ">>> [relay:chain:start]: 2025-02-15 14:30:00.000", header)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", doc["run_id"])
	assert.NotContains(t, doc, "parent_run_id")

	event := doc["event"].(map[string]any)
	assert.Equal(t, map[string]any{"question": "why?"}, event["inputs"])
}

func TestLogger_LogsEveryKind(t *testing.T) {
	for _, kind := range relay.Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			var buf bytes.Buffer
			logger := newTestLogger(&buf)

			require.NoError(t, tt.Deliver(context.Background(), logger, tt.SampleEvent(kind)))

			header, doc := parseEntry(t, buf.String())
			assert.Contains(t, header, "["+string(kind)+"]")
			assert.Contains(t, doc, "event")
		})
	}
}

func TestLogger_PayloadContent(t *testing.T) {
	tests := []struct {
		kind relay.Kind
		key  string
		want any
	}{
		{relay.KindCallNewToken, "token", "hel"},
		{relay.KindCallError, "error", tt.ErrSample.Error()},
		{relay.KindToolStart, "input", "weather in Jakarta"},
		{relay.KindToolEnd, "output", "sunny"},
		{relay.KindAgentAction, "tool", "search"},
		{relay.KindAgentFinish, "log", "Final Answer: sunny"},
		{relay.KindText, "text", "prompt text"},
	}

	for _, tc := range tests {
		t.Run(string(tc.kind), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, tt.Deliver(context.Background(), newTestLogger(&buf), tt.SampleEvent(tc.kind)))

			_, doc := parseEntry(t, buf.String())
			event := doc["event"].(map[string]any)
			assert.Equal(t, tc.want, event[tc.key])
		})
	}
}

func TestLogger_CallMessagesAndChoices(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	ctx := context.Background()

	require.NoError(t, tt.Deliver(ctx, logger, tt.SampleEvent(relay.KindCallStart)))
	_, doc := parseEntry(t, buf.String())
	messages := doc["event"].(map[string]any)["messages"].([]any)
	require.Len(t, messages, 1)
	assert.Equal(t, map[string]any{"role": "human", "content": "hello"}, messages[0])

	buf.Reset()
	require.NoError(t, tt.Deliver(ctx, logger, tt.SampleEvent(relay.KindCallEnd)))
	_, doc = parseEntry(t, buf.String())
	choices := doc["event"].(map[string]any)["choices"].([]any)
	require.Len(t, choices, 1)
	assert.Equal(t, "hello back", choices[0].(map[string]any)["content"])
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestLogger_WriteFailurePropagatesThroughRegistry(t *testing.T) {
	logger := NewWithWriter(failingWriter{}).WithFilter(relay.Filter{AlwaysVerbose: true})
	after := tt.NewMockObserver("after").WithFilter(relay.Filter{AlwaysVerbose: true})
	registry := events.New(logger, after)

	err := registry.EmitText(context.Background(), &relay.TextEvent{Text: "x"}, false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 0, after.CallCount())
}

func TestLogger_WithFilter(t *testing.T) {
	logger := New().WithFilter(relay.Filter{IgnoreCall: true})

	assert.True(t, logger.IgnoreCallEvents())
	assert.False(t, logger.AlwaysVerbose())
}
