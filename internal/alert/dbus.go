package alert

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"prayer-alerts/config"
)

const (
	notificationsName = "org.freedesktop.Notifications"
	notificationsPath = dbus.ObjectPath("/org/freedesktop/Notifications")

	urgencyCritical = byte(2)
)

// caller is the part of dbus.BusObject the surface uses.
type caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// DBusSurface posts through the desktop notification service on the
// session bus.
type DBusSurface struct {
	conn    *dbus.Conn
	obj     caller
	appName string
	icon    string
	caps    []string
}

// NewDBusSurface connects to the session bus.
func NewDBusSurface(cfg config.AlertConfig) (*DBusSurface, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	s := newDBusSurface(conn.Object(notificationsName, notificationsPath), cfg)
	s.conn = conn
	return s, nil
}

func newDBusSurface(obj caller, cfg config.AlertConfig) *DBusSurface {
	return &DBusSurface{obj: obj, appName: cfg.AppName, icon: cfg.Icon}
}

// CreateChannel checks the notification service is running. Desktop
// notification servers have no channel registry; the channel is carried as
// hints on every alert.
func (s *DBusSurface) CreateChannel(ctx context.Context, _ Channel) error {
	var caps []string
	if err := s.obj.CallWithContext(ctx, notificationsName+".GetCapabilities", 0).Store(&caps); err != nil {
		return fmt.Errorf("query notification server: %w", err)
	}
	s.caps = caps
	return nil
}

// Post sends Notify and discards the returned notification id.
func (s *DBusSurface) Post(ctx context.Context, a Alert) error {
	hints := map[string]dbus.Variant{
		"category": dbus.MakeVariant(a.Channel.Category),
		"resident": dbus.MakeVariant(false),
	}
	if a.Channel.Critical {
		hints["urgency"] = dbus.MakeVariant(urgencyCritical)
	}

	var id uint32
	call := s.obj.CallWithContext(ctx, notificationsName+".Notify", 0,
		s.appName,
		uint32(0),
		s.icon,
		a.Title,
		a.Body,
		[]string{},
		hints,
		int32(a.Expire.Milliseconds()),
	)
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

// Close releases the bus connection.
func (s *DBusSurface) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
