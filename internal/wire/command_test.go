package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLedEncode(t *testing.T) {
	report := SetLed{LED: 2, Color: ColorGreen}.Encode(9)
	assert.Equal(t, [CommandReportSize]byte{0x01, 2, 0x00, 0x0A, 0x00, 0x00, 0, 9}, report)
}

func TestSetLedUnknownColorIsOff(t *testing.T) {
	report := SetLed{LED: 0, Color: LedColor("mauve")}.Encode(0)
	assert.Equal(t, [CommandReportSize]byte{0x01, 0, 0, 0, 0, 0, 0, 0}, report)
}

func TestSimpleCommands(t *testing.T) {
	tests := []struct {
		cmd Command
		id  byte
	}{
		{Ping(), 0xF0},
		{PrepareUpdate(), 0xE0},
		{Reset(), 0xE1},
	}

	for _, tt := range tests {
		t.Run(tt.cmd.String(), func(t *testing.T) {
			report := tt.cmd.Encode(0x33)
			assert.Equal(t, tt.id, report[0])
			assert.Equal(t, byte(0x33), report[7])
			for i := 1; i < 7; i++ {
				assert.Zero(t, report[i])
			}
		})
	}
}

func TestUpdateConfigEncode(t *testing.T) {
	tests := []struct {
		name string
		cmd  UpdateConfig
		want [2]byte // serial console, filesystem wire values
	}{
		{"untouched", NewUpdateConfig(), [2]byte{0, 0}},
		{"console on", NewUpdateConfig().WithSerialConsole(true), [2]byte{2, 0}},
		{"console off", NewUpdateConfig().WithSerialConsole(false), [2]byte{1, 0}},
		{"filesystem on", NewUpdateConfig().WithFilesystem(true), [2]byte{0, 2}},
		{"both", NewUpdateConfig().WithSerialConsole(true).WithFilesystem(false), [2]byte{2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := tt.cmd.Encode(0)
			assert.Equal(t, CmdUpdateConfig, report[0])
			assert.Equal(t, tt.want[0], report[1])
			assert.Equal(t, tt.want[1], report[2])
		})
	}
}
