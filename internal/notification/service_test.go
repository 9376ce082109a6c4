package notification

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prayer-alerts/config"
	"prayer-alerts/internal/model"
)

func TestService_RunDisabled(t *testing.T) {
	svc := NewService(config.DispatchConfig{Enabled: false}, nil, zerolog.Nop())
	assert.NoError(t, svc.Run(context.Background()))
}

func TestService_RunInvalidSchedule(t *testing.T) {
	d := newTestDispatcher(newTestStore(t), &fakeGateway{}, snapshot)
	svc := NewService(config.DispatchConfig{Enabled: true, Schedule: "every now and then"}, d, zerolog.Nop())
	assert.Error(t, svc.Run(context.Background()))
}

func TestService_RunDispatchesAtStartup(t *testing.T) {
	s := newTestStore(t)
	registerTokens(t, s, "A")
	require.NoError(t, s.CreateAdminNotification(context.Background(), &model.AdminNotification{ID: "a1", Type: model.AdminTypeImmediate}))

	g := &fakeGateway{}
	d := newTestDispatcher(s, g, snapshot)
	svc := NewService(config.DispatchConfig{Enabled: true, Schedule: "@every 1h"}, d, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Run(ctx) }()

	assert.Eventually(t, func() bool { return len(g.Calls()) == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop after cancellation")
	}
}
