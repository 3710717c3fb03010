package link

import (
	"context"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	bluezService  = "org.bluez"
	deviceIface   = "org.bluez.Device1"
	managedObjMth = "org.freedesktop.DBus.ObjectManager.GetManagedObjects"

	// A2DP sink service class, advertised by speakers and headphones.
	audioSinkUUID = "0000110b-0000-1000-8000-00805f9b34fb"
)

// Device is one BlueZ Device1 object.
type Device struct {
	Path      string
	Address   string
	Name      string
	Connected bool
	AudioSink bool
}

// Querier lists the Bluetooth devices known to the host.
type Querier interface {
	Devices(ctx context.Context) ([]Device, error)
}

// BlueZ queries bluetoothd over the system bus.
type BlueZ struct{}

// Devices calls GetManagedObjects on org.bluez and returns every Device1.
func (BlueZ) Devices(ctx context.Context) ([]Device, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("link: system bus: %w", err)
	}
	defer conn.Close()

	call := conn.Object(bluezService, "/").CallWithContext(ctx, managedObjMth, 0)
	if call.Err != nil {
		return nil, fmt.Errorf("link: managed objects: %w", call.Err)
	}
	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	if err := call.Store(&objects); err != nil {
		return nil, fmt.Errorf("link: managed objects: %w", err)
	}
	return parseDevices(objects), nil
}

func parseDevices(objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant) []Device {
	var out []Device
	for path, ifaces := range objects {
		props, ok := ifaces[deviceIface]
		if !ok {
			continue
		}
		d := Device{Path: string(path)}
		if v, ok := props["Address"].Value().(string); ok {
			d.Address = v
		}
		if v, ok := props["Alias"].Value().(string); ok {
			d.Name = v
		} else if v, ok := props["Name"].Value().(string); ok {
			d.Name = v
		}
		if v, ok := props["Connected"].Value().(bool); ok {
			d.Connected = v
		}
		if uuids, ok := props["UUIDs"].Value().([]string); ok {
			for _, u := range uuids {
				if strings.EqualFold(u, audioSinkUUID) {
					d.AudioSink = true
					break
				}
			}
		}
		out = append(out, d)
	}
	return out
}
