//go:build cgo

package enginegomidi

import _ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
