package monitor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"geotrace/internal/client"
	"geotrace/internal/config"
	"geotrace/internal/models"
)

func TestWatchTracesTargetsEveryInterval(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.URL.Query().Get("target"))
		mu.Unlock()
		w.Write([]byte("data: {\"hop_number\":1,\"ip\":\"10.0.0.1\"}\n\n"))
	}))
	defer srv.Close()

	mock := clock.NewMock()
	db := &syncDB{}
	mon := New(config.Default(), client.New(srv.URL, zap.NewNop()), db, &recordingSink{}, zap.NewNop(), WithClock(mock))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		mon.Watch(ctx, []string{"example.org", "example.net"}, time.Minute)
		close(done)
	}()

	require.Eventually(t, func() bool { return db.count() == 2 }, 5*time.Second, 5*time.Millisecond)
	mock.Add(time.Minute)
	require.Eventually(t, func() bool { return db.count() == 4 }, 5*time.Second, 5*time.Millisecond)

	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"example.org", "example.net", "example.org", "example.net"}, seen)
}

type syncDB struct {
	memoryDB
	mu     sync.Mutex
	pruned atomic.Int64
	err    error
}

func (d *syncDB) SaveTrace(s models.TraceSummary, hops []models.HopRecord) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.memoryDB.SaveTrace(s, hops)
}

func (d *syncDB) PruneTraces(days int) (int64, error) {
	if d.err != nil {
		return 0, d.err
	}
	d.pruned.Inc()
	return 3, nil
}

func (d *syncDB) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.summaries)
}

func TestMaintenancePerform(t *testing.T) {
	db := &syncDB{}
	NewMaintenance(db, 90, time.Hour, nil).Perform()
	assert.EqualValues(t, 1, db.pruned.Load())

	failing := &syncDB{err: errors.New("database is locked")}
	NewMaintenance(failing, 90, time.Hour, nil).Perform()
	assert.EqualValues(t, 0, failing.pruned.Load())
}

func TestMaintenanceRunPrunesOnStart(t *testing.T) {
	db := &syncDB{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewMaintenance(db, 90, time.Hour, nil).Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return db.pruned.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
