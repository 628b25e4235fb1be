package sink

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/minio/minio-go/v7"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/autopeer-io/fleetsim/internal/device"
	"github.com/autopeer-io/fleetsim/pkg/log"
	pkgmqtt "github.com/autopeer-io/fleetsim/pkg/mqtt"
	"github.com/autopeer-io/fleetsim/pkg/mqtt/topic"
)

func testReport() *device.Report {
	return &device.Report{
		DeviceID:   "dev-1",
		DeviceType: "Counter",
		Timestamp:  1_700_000_000_123,
		Data:       map[string]any{"current_count": 5, "count_limit": 10},
	}
}

func TestConsoleLogsReport(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	c := NewConsole(log.NewFromZap(zap.New(core)))

	require.NoError(t, c.Publish(context.Background(), testReport()))

	entries := logs.FilterMessage("Telemetry").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "dev-1", fields["deviceID"])
	assert.Equal(t, "Counter", fields["deviceType"])
}

type fakeMQTT struct {
	pkgmqtt.Client
	topic   string
	qos     int
	payload []byte
	err     error
}

func (f *fakeMQTT) Publish(_ context.Context, t string, qos int, _ bool, payload []byte) error {
	f.topic, f.qos, f.payload = t, qos, payload
	return f.err
}

func TestMQTTPublish(t *testing.T) {
	client := &fakeMQTT{}
	s := NewMQTT(client, topic.NewTopicBuilder("fleetsim/v1"), 1)

	require.NoError(t, s.Publish(context.Background(), testReport()))
	assert.Equal(t, "fleetsim/v1/telemetry/dev-1", client.topic)
	assert.Equal(t, 1, client.qos)

	back, err := device.Decode(client.payload)
	require.NoError(t, err)
	assert.Equal(t, "dev-1", back.DeviceID)

	client.err = errors.New("not connected")
	assert.ErrorContains(t, s.Publish(context.Background(), testReport()), "not connected")
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublish(t *testing.T) {
	w := &fakeWriter{}
	k := &Kafka{writer: w}

	require.NoError(t, k.Publish(context.Background(), testReport()))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("dev-1"), w.msgs[0].Key)
	assert.Equal(t, "device_type", w.msgs[0].Headers[0].Key)

	w.err = errors.New("leader not available")
	assert.Error(t, k.Publish(context.Background(), testReport()))

	require.NoError(t, k.Close())
	assert.True(t, w.closed)
}

type fakeNATS struct {
	subject string
	data    []byte
}

func (f *fakeNATS) Publish(subject string, data []byte) error {
	f.subject, f.data = subject, data
	return nil
}

func TestNATSPublish(t *testing.T) {
	conn := &fakeNATS{}
	n := &NATS{conn: conn, prefix: "fleetsim.telemetry"}

	r := testReport()
	r.DeviceID = "node.a-*1"
	require.NoError(t, n.Publish(context.Background(), r))
	assert.Equal(t, "fleetsim.telemetry.node_a-_1", conn.subject)
	assert.NotEmpty(t, conn.data)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.Publish(ctx, r), context.Canceled)
	assert.NoError(t, n.Close())
}

type fakeStore struct {
	exists  bool
	made    string
	bucket  string
	key     string
	body    []byte
	putOpts minio.PutObjectOptions
}

func (f *fakeStore) BucketExists(context.Context, string) (bool, error) { return f.exists, nil }

func (f *fakeStore) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.made = bucket
	return nil
}

func (f *fakeStore) PutObject(_ context.Context, bucket, key string, r io.Reader, _ int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.bucket, f.key, f.body, f.putOpts = bucket, key, body, opts
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: int64(len(body))}, nil
}

func TestArchivePublish(t *testing.T) {
	store := &fakeStore{}
	a := &Archive{store: store, bucket: "telemetry", prefix: "fleetsim"}

	require.NoError(t, a.CheckBucket(context.Background()))
	assert.Equal(t, "telemetry", store.made)

	require.NoError(t, a.Publish(context.Background(), testReport()))
	assert.Equal(t, "telemetry", store.bucket)
	assert.Equal(t, "fleetsim/dev-1/1700000000123.json", store.key)
	assert.Equal(t, "application/json", store.putOpts.ContentType)
	assert.Contains(t, string(store.body), `"device_id":"dev-1"`)
}

type fakeExec struct {
	sql  []string
	args [][]any
}

func (f *fakeExec) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql = append(f.sql, sql)
	f.args = append(f.args, args)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestPostgresPublish(t *testing.T) {
	db := &fakeExec{}
	p := newPostgres(db, "device_telemetry")

	require.NoError(t, p.CreateTable(context.Background(), "device_telemetry"))
	require.NoError(t, p.Publish(context.Background(), testReport()))

	require.Len(t, db.sql, 2)
	assert.Contains(t, db.sql[0], "CREATE TABLE IF NOT EXISTS device_telemetry")
	assert.Contains(t, db.sql[1], "INSERT INTO device_telemetry")

	args := db.args[1]
	assert.Equal(t, "dev-1", args[0])
	assert.Equal(t, "Counter", args[1])
	assert.Equal(t, time.UnixMilli(1_700_000_000_123).UTC(), args[2])
	assert.JSONEq(t, `{"current_count":5,"count_limit":10}`, args[3].(string))
}

func TestFanout(t *testing.T) {
	ctrl := gomock.NewController(t)
	ok := device.NewMockSink(ctrl)
	bad := device.NewMockSink(ctrl)

	r := testReport()
	ok.EXPECT().Publish(gomock.Any(), r).Return(nil)
	bad.EXPECT().Publish(gomock.Any(), r).Return(errors.New("down"))

	f := NewFanout(map[string]device.Sink{"ok": ok, "bad": bad})
	err := f.Publish(context.Background(), r)
	assert.ErrorContains(t, err, "down")
}

func TestCloseAll(t *testing.T) {
	w := &fakeWriter{}
	err := CloseAll(map[string]device.Sink{
		"console": NewConsole(log.NewNopLogger()),
		"kafka":   &Kafka{writer: w},
	})
	assert.NoError(t, err)
	assert.True(t, w.closed)
}
