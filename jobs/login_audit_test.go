package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/campus/internal/jobs"
	"github.com/odyssey-erp/campus/internal/rbac"
	"github.com/odyssey-erp/campus/internal/session"
)

type recorderStub struct {
	got []session.LoginActivity
	err error
}

func (r *recorderStub) RecordLogin(_ context.Context, a session.LoginActivity) error {
	if r.err != nil {
		return r.err
	}
	r.got = append(r.got, a)
	return nil
}

type prunerStub struct {
	now       time.Time
	retention time.Duration
}

func (p *prunerStub) Prune(_ context.Context, now time.Time, retention time.Duration) (int64, error) {
	p.now, p.retention = now, retention
	return 4, nil
}

func sampleActivity() session.LoginActivity {
	return session.LoginActivity{
		UserID:    "u-1",
		Email:     "dina@campus.test",
		Role:      rbac.RoleFaculty,
		LoginTime: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		SessionID: "session_abc",
		IPAddress: "10.0.0.1",
	}
}

func TestLoginAuditTaskCarriesActivity(t *testing.T) {
	task, err := NewLoginAuditTask(sampleActivity())
	require.NoError(t, err)
	assert.Equal(t, TaskLoginAudit, task.Type())

	var payload LoginAuditPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, sampleActivity(), payload)
}

func TestLoginAuditJobRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	rec := &recorderStub{}
	job := NewLoginAuditJob(rec, nil, metrics)

	task, err := NewLoginAuditTask(sampleActivity())
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	require.Len(t, rec.got, 1)
	assert.Equal(t, "session_abc", rec.got[0].SessionID)
	count, err := testutil.GatherAndCount(reg, "campus_jobs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLoginAuditJobSkipsBadPayload(t *testing.T) {
	job := NewLoginAuditJob(&recorderStub{}, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	err := job.Handle(context.Background(), asynq.NewTask(TaskLoginAudit, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	data, _ := json.Marshal(session.LoginActivity{Email: "x@campus.test"})
	err = job.Handle(context.Background(), asynq.NewTask(TaskLoginAudit, data))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestLoginAuditJobRetriesStoreErrors(t *testing.T) {
	boom := errors.New("db down")
	job := NewLoginAuditJob(&recorderStub{err: boom}, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewLoginAuditTask(sampleActivity())
	require.NoError(t, err)
	assert.ErrorIs(t, job.Handle(context.Background(), task), boom)
}

func TestLoginPruneJob(t *testing.T) {
	pruner := &prunerStub{}
	job := NewLoginPruneJob(pruner, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	fixed := time.Date(2026, 6, 1, 2, 0, 0, 0, time.UTC)
	job.clock = func() time.Time { return fixed }

	task, err := NewLoginPruneTask(30)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, fixed, pruner.now)
	assert.Equal(t, 30*24*time.Hour, pruner.retention)

	task, err = NewLoginPruneTask(0)
	require.NoError(t, err)
	assert.ErrorIs(t, job.Handle(context.Background(), task), asynq.SkipRetry)
}

func TestHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, nil).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Queues, 2)
	assert.Equal(t, QueueAudit, body.Queues[0].Queue)
	assert.Equal(t, QueueMaintenance, body.Queues[1].Queue)
	assert.Zero(t, body.Queues[0].Pending)
}
