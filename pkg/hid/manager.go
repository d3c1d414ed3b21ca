package hid

import (
	"errors"
	"fmt"
	"sync"
	"time"

	hidapi "github.com/sstallion/go-hid"
)

// ErrNoDevice is returned when no attached device matches the request.
var ErrNoDevice = errors.New("hid: no matching device")

type hidapiManager struct{}

var initOnce sync.Once

// NewManager returns a Manager backed by the hidapi library.
func NewManager() Manager {
	initOnce.Do(func() {
		_ = hidapi.Init()
	})
	return &hidapiManager{}
}

func (m *hidapiManager) Open(id Identification) (Device, error) {
	dev, err := hidapi.OpenFirst(id.VendorID, id.ProductID)
	if err != nil {
		return nil, fmt.Errorf("open %04x:%04x: %w", id.VendorID, id.ProductID, err)
	}
	return newHandle(dev, Info{VendorID: id.VendorID, ProductID: id.ProductID}), nil
}

func (m *hidapiManager) OpenMatching(match func(Info) bool) (Device, error) {
	var found *Info
	_ = hidapi.Enumerate(hidapi.VendorIDAny, hidapi.ProductIDAny, func(di *hidapi.DeviceInfo) error {
		info := toInfo(di)
		if match(info) {
			found = &info
			return errors.New("stop") // terminates enumeration early
		}
		return nil
	})
	if found == nil {
		return nil, ErrNoDevice
	}

	dev, err := hidapi.OpenPath(found.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", found.Path, err)
	}
	return &handle{dev: dev, info: *found}, nil
}

func (m *hidapiManager) List() ([]Info, error) {
	var infos []Info
	err := hidapi.Enumerate(hidapi.VendorIDAny, hidapi.ProductIDAny, func(di *hidapi.DeviceInfo) error {
		infos = append(infos, toInfo(di))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return infos, nil
}

func toInfo(di *hidapi.DeviceInfo) Info {
	return Info{
		Path:         di.Path,
		VendorID:     di.VendorID,
		ProductID:    di.ProductID,
		Manufacturer: di.MfrStr,
		Product:      di.ProductStr,
		Serial:       di.SerialNbr,
	}
}

// handle wraps an open hidapi device.
type handle struct {
	dev  *hidapi.Device
	info Info
}

func newHandle(dev *hidapi.Device, info Info) *handle {
	if s, err := dev.GetMfrStr(); err == nil {
		info.Manufacturer = s
	}
	if s, err := dev.GetProductStr(); err == nil {
		info.Product = s
	}
	if s, err := dev.GetSerialNbr(); err == nil {
		info.Serial = s
	}
	return &handle{dev: dev, info: info}
}

func (h *handle) Write(p []byte) (int, error) {
	return h.dev.Write(p)
}

func (h *handle) ReadWithTimeout(p []byte, timeout time.Duration) (int, error) {
	return h.dev.ReadWithTimeout(p, timeout)
}

func (h *handle) Close() error {
	return h.dev.Close()
}

func (h *handle) Info() Info {
	return h.info
}
