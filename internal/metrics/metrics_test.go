package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/docerrors"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/pipeline"
)

func TestObserveRunStatus(t *testing.T) {
	r := New()

	r.ObserveRun("default", 10*time.Millisecond, nil)
	r.ObserveRun("default", time.Millisecond, docerrors.Invalid("primary", "document is missing"))
	r.ObserveRun("default", time.Millisecond, docerrors.Malformed("secondary", "no usable records"))
	r.ObserveRun("default", time.Millisecond, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues(StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues(StatusInvalid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues(StatusMalformed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues(StatusError)))
	assert.Equal(t, 1, testutil.CollectAndCount(r.runDuration))
}

func TestObserveDocumentAndUnmatched(t *testing.T) {
	r := New()

	r.ObserveDocument(pipeline.RolePrimary, pipeline.DocumentStats{Records: 5, Dropped: 1, Skipped: 2})
	r.ObserveDocument(pipeline.RolePrimary, pipeline.DocumentStats{Records: 3})
	r.ObserveUnmatched(2)

	assert.Equal(t, 8.0, testutil.ToFloat64(r.records.WithLabelValues(pipeline.RolePrimary)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.dropped.WithLabelValues(pipeline.RolePrimary)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.skipped.WithLabelValues(pipeline.RolePrimary)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.unmatched))
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.ObserveUnmatched(1)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "reconciler_unmatched_secondary_total 1")
}
