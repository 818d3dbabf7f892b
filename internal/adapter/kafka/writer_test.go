package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/snowpack-etl/internal/domain"
	"github.com/couchcryptid/snowpack-etl/internal/observability"
	"github.com/couchcryptid/snowpack-etl/internal/pipeline"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testWriter(fw *fakeWriter) *Writer {
	return &Writer{
		writer:  fw,
		topic:   "snowpack-observations",
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: observability.NewMetricsForTesting(),
	}
}

func testRow() domain.Row {
	date := time.Date(2018, time.January, 1, 0, 0, 0, 0, time.UTC)
	swe := 310.0
	return domain.Row{
		Station: domain.Station{StationID: "1051", Name: "Echo Peak", State: "CA"},
		Observation: domain.Observation{
			Key:              domain.ObservationKey("1051", date),
			StationID:        "1051",
			Date:             date,
			SnowWaterEquivMM: &swe,
			LoadedAt:         time.Date(2021, time.May, 16, 12, 30, 0, 0, time.UTC),
		},
	}
}

func TestSerializeToMessage(t *testing.T) {
	row := testRow()

	msg, err := serializeToMessage(row)
	require.NoError(t, err)

	assert.Equal(t, []byte(row.Observation.Key), msg.Key)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "station_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("1051"), msg.Headers[0].Value)
	assert.Equal(t, "observation_date", msg.Headers[1].Key)
	assert.Equal(t, []byte("2018-01-01"), msg.Headers[1].Value)
	assert.Equal(t, "loaded_at", msg.Headers[2].Key)
	assert.Equal(t, []byte("2021-05-16T12:30:00Z"), msg.Headers[2].Value)

	var event ObservationEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, row.Station, event.Station)
	assert.Equal(t, row.Edge(), event.Edge)
	require.NotNil(t, event.Observation.SnowWaterEquivMM)
	assert.InDelta(t, 310.0, *event.Observation.SnowWaterEquivMM, 1e-9)
	assert.Contains(t, string(msg.Value), `"snow_water_equiv_mm":310`)
	assert.NotContains(t, string(msg.Value), "snow_depth_cm", "nil measurements are omitted")
}

func TestWriter_LoadBatch(t *testing.T) {
	fw := &fakeWriter{}
	w := testWriter(fw)

	rows := []domain.Row{testRow(), testRow()}
	rows[1].Observation.Key = "obs-other"

	res, err := w.LoadBatch(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, pipeline.LoadResult{EventsPublished: 2}, res)
	require.Len(t, fw.msgs, 2)
	assert.Equal(t, []byte("obs-other"), fw.msgs[1].Key)

	require.NoError(t, w.Close())
	assert.True(t, fw.closed)
}

func TestWriter_LoadBatch_Empty(t *testing.T) {
	fw := &fakeWriter{}
	res, err := testWriter(fw).LoadBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, res)
	assert.Empty(t, fw.msgs)
}

func TestWriter_LoadBatch_Error(t *testing.T) {
	boom := errors.New("leader not available")
	_, err := testWriter(&fakeWriter{err: boom}).LoadBatch(context.Background(), []domain.Row{testRow()})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "publish to snowpack-observations")
}
