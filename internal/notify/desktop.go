package notify

import "github.com/gen2brain/beeep"

// DesktopAlert shows a local desktop notification with sound.
type DesktopAlert struct{}

func (DesktopAlert) SendDesktop(title, body string) error {
	return beeep.Alert(title, body, "")
}
