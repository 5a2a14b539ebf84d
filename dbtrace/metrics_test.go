package dbtrace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewMetrics(t *testing.T) {
	mp := sdkmetric.NewMeterProvider()
	defer mp.Shutdown(context.Background())

	m, err := newMetrics(mp.Meter("test"))
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.NotNil(t, m.operationDuration)
}

func TestRecordOperationDuration(t *testing.T) {
	type args struct {
		duration  time.Duration
		operation string
		err       error
	}

	tests := []struct {
		name       string
		args       args
		wantStatus string
	}{
		{
			name: "given successful operation, then records with ok status",
			args: args{
				duration:  100 * time.Millisecond,
				operation: "execute",
				err:       nil,
			},
			wantStatus: "ok",
		},
		{
			name: "given failed operation, then records with error status",
			args: args{
				duration:  50 * time.Millisecond,
				operation: "commit",
				err:       assert.AnError,
			},
			wantStatus: "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := sdkmetric.NewManualReader()
			mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
			defer mp.Shutdown(context.Background())

			m, err := newMetrics(mp.Meter("test"))
			require.NoError(t, err)

			ctx := context.Background()
			m.recordOperationDuration(ctx, tt.args.duration, tt.args.operation, tt.args.err)

			var rm metricdata.ResourceMetrics
			require.NoError(t, reader.Collect(ctx, &rm))
			require.NotEmpty(t, rm.ScopeMetrics)
			require.NotEmpty(t, rm.ScopeMetrics[0].Metrics)

			metric := rm.ScopeMetrics[0].Metrics[0]
			assert.Equal(t, "db.client.operation.duration", metric.Name)

			hist, ok := metric.Data.(metricdata.Histogram[float64])
			require.True(t, ok)
			require.Len(t, hist.DataPoints, 1)

			dp := hist.DataPoints[0]
			assert.Equal(t, uint64(1), dp.Count)
			assert.InDelta(t, tt.args.duration.Seconds(), dp.Sum, 1e-9)

			op, _ := dp.Attributes.Value("db.operation")
			assert.Equal(t, tt.args.operation, op.AsString())

			status, _ := dp.Attributes.Value("status")
			assert.Equal(t, tt.wantStatus, status.AsString())
		})
	}
}

func TestRecordOperationDuration_NilMetrics(t *testing.T) {
	t.Run("given nil metrics, then does not panic", func(t *testing.T) {
		var m *metrics

		assert.NotPanics(t, func() {
			m.recordOperationDuration(context.Background(), time.Second, "execute", nil)
		})
	})
}

func TestRecordOperationDuration_NilHistogram(t *testing.T) {
	t.Run("given nil histogram, then does not panic", func(t *testing.T) {
		m := &metrics{operationDuration: nil}

		assert.NotPanics(t, func() {
			m.recordOperationDuration(context.Background(), time.Second, "execute", nil)
		})
	})
}

func TestCursorOperations_RecordDuration(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	cursor := WrapCursor(&mockCursor{}, WithMeterProvider(mp))
	require.NoError(t, cursor.Execute(context.Background(), "select 1"))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.NotEmpty(t, rm.ScopeMetrics)
	require.NotEmpty(t, rm.ScopeMetrics[0].Metrics)
	assert.Equal(t, "db.client.operation.duration", rm.ScopeMetrics[0].Metrics[0].Name)
}
