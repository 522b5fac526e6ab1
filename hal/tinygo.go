//go:build tinygo && baremetal

package hal

import (
	"machine"
	"time"
)

const keyPollPeriod = 20 * time.Millisecond

type picoHAL struct {
	con *uartConsole
	led pinLED
	t   *tickerTime
}

// New returns a Pico 2 (RP2350) HAL.
//
// UART0 on GP0 (TX) / GP1 (RX) at 115200 8N1 carries the log and doubles
// as the keyboard. The on-board LED lights while a task other than idle
// holds the CPU. There is no display, so the run is reported on the log.
func New() HAL {
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GP0,
		RX:       machine.GP1,
	})

	pin := machine.LED
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	con := &uartConsole{uart: uart, keys: make(chan KeyEvent, 8)}
	go con.poll(keyPollPeriod)

	return &picoHAL{
		con: con,
		led: pinLED(pin),
		t:   startTicker(DefaultTickPeriod),
	}
}

func (h *picoHAL) Logger() Logger   { return h.con }
func (h *picoHAL) LED() LED         { return h.led }
func (h *picoHAL) Display() Display { return nil }
func (h *picoHAL) Input() Input     { return h.con }
func (h *picoHAL) Time() Time       { return h.t }

var crlf = []byte{'\r', '\n'}

// uartConsole is the log sink and the key source. Received bytes become
// key presses; ESC maps to KeyEscape.
type uartConsole struct {
	uart *machine.UART
	keys chan KeyEvent
}

func (c *uartConsole) WriteLineString(s string) {
	for i := 0; i < len(s); i++ {
		c.uart.WriteByte(s[i])
	}
	c.uart.Write(crlf)
}

func (c *uartConsole) WriteLineBytes(b []byte) {
	c.uart.Write(b)
	c.uart.Write(crlf)
}

func (c *uartConsole) Keyboard() Keyboard      { return c }
func (c *uartConsole) Events() <-chan KeyEvent { return c.keys }

func (c *uartConsole) poll(period time.Duration) {
	for {
		for c.uart.Buffered() > 0 {
			b, err := c.uart.ReadByte()
			if err != nil {
				break
			}
			ev := KeyEvent{Press: true, Rune: rune(b)}
			if b == 0x1b {
				ev.Code = KeyEscape
			}
			select {
			case c.keys <- ev:
			default:
			}
		}
		time.Sleep(period)
	}
}

type pinLED machine.Pin

func (l pinLED) High() { machine.Pin(l).High() }
func (l pinLED) Low()  { machine.Pin(l).Low() }
