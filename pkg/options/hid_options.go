package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/macropad-io/macropad/pkg/hid"
)

var _ IOptions = (*HidOptions)(nil)

// Known macropad hardware revisions, tried in this order.
var defaultIdentifications = []hid.Identification{
	{VendorID: 0x1189, ProductID: 0x8890}, // v2 keypad
	{VendorID: 0x2E8A, ProductID: 0x2083}, // v1 prototype
}

// HidOptions contains configuration for device discovery and link timing.
type HidOptions struct {
	// VendorID/ProductID override the built-in identification list with a
	// single pair. Zero means use the built-ins.
	VendorID  uint16 `json:"vendor-id" mapstructure:"vendor-id"`
	ProductID uint16 `json:"product-id" mapstructure:"product-id"`

	PingPeriod        time.Duration `json:"ping-period" mapstructure:"ping-period"`
	ReadTimeout       time.Duration `json:"read-timeout" mapstructure:"read-timeout"`
	ReconnectInterval time.Duration `json:"reconnect-interval" mapstructure:"reconnect-interval"`
}

// NewHidOptions creates a new HidOptions with default values.
func NewHidOptions() *HidOptions {
	return &HidOptions{
		PingPeriod:        4 * time.Second,
		ReadTimeout:       100 * time.Millisecond,
		ReconnectInterval: time.Second,
	}
}

// Identifications resolves the candidate list, honoring an override pair.
func (o *HidOptions) Identifications() []hid.Identification {
	if o.VendorID != 0 || o.ProductID != 0 {
		return []hid.Identification{{VendorID: o.VendorID, ProductID: o.ProductID}}
	}
	return defaultIdentifications
}

// Validate is used to parse and validate the parameters entered by the user
// at the command line when the program starts.
func (o *HidOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	if (o.VendorID == 0) != (o.ProductID == 0) {
		errors = append(errors, fmt.Errorf("hid.vendor-id and hid.product-id must be set together"))
	}
	if o.PingPeriod <= 0 {
		errors = append(errors, fmt.Errorf("hid.ping-period must be positive"))
	}
	if o.ReadTimeout <= 0 {
		errors = append(errors, fmt.Errorf("hid.read-timeout must be positive"))
	}
	if o.ReconnectInterval <= 0 {
		errors = append(errors, fmt.Errorf("hid.reconnect-interval must be positive"))
	}

	return errors
}

// AddFlags adds flags for HidOptions to the specified FlagSet.
func (o *HidOptions) AddFlags(fs *pflag.FlagSet) {
	fs.Uint16Var(&o.VendorID, "hid.vendor-id", o.VendorID, "USB vendor ID override (requires hid.product-id).")
	fs.Uint16Var(&o.ProductID, "hid.product-id", o.ProductID, "USB product ID override (requires hid.vendor-id).")

	fs.DurationVar(&o.PingPeriod, "hid.ping-period", o.PingPeriod, "Keep-alive interval on an idle link.")
	fs.DurationVar(&o.ReadTimeout, "hid.read-timeout", o.ReadTimeout, "Poll timeout of the report read loop.")
	fs.DurationVar(&o.ReconnectInterval, "hid.reconnect-interval", o.ReconnectInterval, "Delay between connection attempts.")
}
