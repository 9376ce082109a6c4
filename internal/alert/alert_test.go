package alert

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prayer-alerts/config"
)

var testCfg = config.AlertConfig{AppName: "Prayer Times", Icon: "mosque", TitleFormat: "Telah masuk waktu solat %s", ExpireSeconds: 60}

type fakeSurface struct {
	mu        sync.Mutex
	channels  []Channel
	posted    []Alert
	createErr error
	postErr   error
}

func (f *fakeSurface) CreateChannel(_ context.Context, ch Channel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = append(f.channels, ch)
	return f.createErr
}

func (f *fakeSurface) Post(_ context.Context, a Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posted = append(f.posted, a)
	return f.postErr
}

func TestNotifier_PostPrayerAlert(t *testing.T) {
	s := &fakeSurface{}
	n := NewNotifier(s, testCfg, zerolog.Nop())

	require.NoError(t, n.PostPrayerAlert(context.Background(), "Subuh"))

	require.Len(t, s.posted, 1)
	a := s.posted[0]
	assert.Equal(t, "Telah masuk waktu solat Subuh", a.Title)
	assert.Empty(t, a.Body)
	assert.Equal(t, time.Minute, a.Expire)
	assert.Equal(t, "adhan_channel", a.Channel.ID)
	assert.Equal(t, "Azan Notifications", a.Channel.Name)
	assert.True(t, a.Channel.Critical)
}

func TestNotifier_ChannelCreatedOnce(t *testing.T) {
	s := &fakeSurface{}
	n := NewNotifier(s, testCfg, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, n.PostPrayerAlert(context.Background(), "Asar"))
		}()
	}
	wg.Wait()

	assert.Len(t, s.channels, 1)
	assert.Len(t, s.posted, 5)
}

func TestNotifier_ChannelErrorDoesNotBlockPost(t *testing.T) {
	s := &fakeSurface{createErr: errors.New("no server")}
	n := NewNotifier(s, testCfg, zerolog.Nop())

	require.NoError(t, n.PostPrayerAlert(context.Background(), "Isyak"))
	assert.Len(t, s.posted, 1)
}

func TestNotifier_PostError(t *testing.T) {
	s := &fakeSurface{postErr: errors.New("bus closed")}
	n := NewNotifier(s, testCfg, zerolog.Nop())

	err := n.PostPrayerAlert(context.Background(), "Zohor")
	assert.ErrorIs(t, err, s.postErr)
}

// fakeBus answers notification-server method calls.
type fakeBus struct {
	method string
	args   []interface{}
	err    error
	body   []interface{}
}

func (f *fakeBus) CallWithContext(_ context.Context, method string, _ dbus.Flags, args ...interface{}) *dbus.Call {
	f.method = method
	f.args = args
	return &dbus.Call{Method: method, Args: args, Err: f.err, Body: f.body}
}

func TestDBusSurface_Post(t *testing.T) {
	bus := &fakeBus{body: []interface{}{uint32(42)}}
	s := newDBusSurface(bus, testCfg)

	err := s.Post(context.Background(), Alert{Channel: PrayerChannel, Title: "Telah masuk waktu solat Maghrib", Expire: time.Minute})
	require.NoError(t, err)

	assert.Equal(t, "org.freedesktop.Notifications.Notify", bus.method)
	require.Len(t, bus.args, 8)
	assert.Equal(t, "Prayer Times", bus.args[0])
	assert.Equal(t, "mosque", bus.args[2])
	assert.Equal(t, "Telah masuk waktu solat Maghrib", bus.args[3])
	assert.Equal(t, int32(60000), bus.args[7])

	hints := bus.args[6].(map[string]dbus.Variant)
	assert.Equal(t, urgencyCritical, hints["urgency"].Value())
	assert.Equal(t, "x-prayer.alarm", hints["category"].Value())
}

func TestDBusSurface_Errors(t *testing.T) {
	bus := &fakeBus{err: errors.New("org.freedesktop.DBus.Error.ServiceUnknown")}
	s := newDBusSurface(bus, testCfg)

	assert.Error(t, s.CreateChannel(context.Background(), PrayerChannel))
	assert.Error(t, s.Post(context.Background(), Alert{Channel: PrayerChannel}))
	assert.NoError(t, s.Close())
}

func TestDBusSurface_CreateChannelReadsCapabilities(t *testing.T) {
	bus := &fakeBus{body: []interface{}{[]string{"body", "actions"}}}
	s := newDBusSurface(bus, testCfg)

	require.NoError(t, s.CreateChannel(context.Background(), PrayerChannel))
	assert.Equal(t, "org.freedesktop.Notifications.GetCapabilities", bus.method)
	assert.Equal(t, []string{"body", "actions"}, s.caps)
}

func TestCommandSurface_Post(t *testing.T) {
	var gotName string
	var gotArgs []string
	s := &CommandSurface{bin: "/usr/bin/notify-send", appName: "Prayer Times", run: func(_ context.Context, name string, args ...string) error {
		gotName, gotArgs = name, args
		return nil
	}}

	require.NoError(t, s.Post(context.Background(), Alert{Channel: PrayerChannel, Title: "Telah masuk waktu solat Asar", Expire: 30 * time.Second}))
	assert.Equal(t, "/usr/bin/notify-send", gotName)
	assert.Equal(t, []string{
		"-a", "Prayer Times",
		"-t", "30000",
		"-h", "string:category:x-prayer.alarm",
		"-u", "critical",
		"Telah masuk waktu solat Asar",
	}, gotArgs)
}

func TestCommandSurface_RunError(t *testing.T) {
	s := &CommandSurface{bin: "dunstify", run: func(context.Context, string, ...string) error { return errors.New("exit status 1") }}
	assert.Error(t, s.Post(context.Background(), Alert{Channel: PrayerChannel}))
}
