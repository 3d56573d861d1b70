// Package input wraps the OS input-injection primitives behind the
// control server's Injector interface.
package input

import (
	"log"

	"github.com/go-vgo/robotgo"
)

// Robot injects events through robotgo.
type Robot struct{}

func NewRobot() *Robot {
	return &Robot{}
}

func (Robot) MouseMove(x, y int) {
	robotgo.Move(x, y)
}

func (Robot) MouseButton(button string, press bool) {
	dir := "up"
	if press {
		dir = "down"
	}
	if err := robotgo.Toggle(button, dir); err != nil {
		log.Println("[input] mouse toggle:", err)
	}
}

func (Robot) MouseScroll(dx, dy int) {
	robotgo.Scroll(dx, dy)
}

func (Robot) KeyToggle(key string, press bool) {
	dir := "up"
	if press {
		dir = "down"
	}
	if err := robotgo.KeyToggle(key, dir); err != nil {
		log.Println("[input] key toggle:", err)
	}
}
