package board

// Button identifies one of the board's six momentary buttons, numbered 1
// (leftmost) through 6.
type Button uint8

// ButtonCount is the number of buttons on the board.
const ButtonCount = 6

// EdgeDetector converts raw "currently pressed" level samples into
// rising-edge button presses. It keeps one latch per button: a latch is true
// iff the button was seen pressed on the previous sample and has not since
// been seen released.
//
// The zero value is ready for use. Not safe for concurrent use.
type EdgeDetector struct {
	latched [ButtonCount]bool
}

// Detect updates all six latches from the raw mask and reports at most one
// newly pressed button.
//
// Per button: pressed with the latch already set is a held press and reports
// nothing; pressed with the latch clear sets the latch and is a rising edge;
// not pressed clears the latch. When several buttons rise in the same sample
// the lowest-numbered one wins — the others' latches are still set, so their
// edge is consumed and will not be reported until their own future
// release/press cycle.
func (d *EdgeDetector) Detect(mask byte) (Button, bool) {
	var pressed Button

	for n := 1; n <= ButtonCount; n++ {
		bit := byte(1) << (6 - n)
		down := mask&bit != 0

		switch {
		case down && d.latched[n-1]:
			// Held since the previous sample; not a new press.
		case down:
			d.latched[n-1] = true
			if pressed == 0 {
				pressed = Button(n)
			}
		default:
			d.latched[n-1] = false
		}
	}

	return pressed, pressed != 0
}

// Reset clears all latches.
func (d *EdgeDetector) Reset() {
	d.latched = [ButtonCount]bool{}
}
