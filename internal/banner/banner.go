package banner

import (
	"github.com/charmbracelet/lipgloss"
)

func GetString() string {
	renderer := lipgloss.DefaultRenderer()

	style := renderer.NewStyle().
		Foreground(lipgloss.Color("#04B575")).
		Bold(true)

	ascii := `
       _       _     _                 _
      | | ___ | |__ | | ___   __ _  __| |
   _  | |/ _ \| '_ \| |/ _ \ / _' |/ _' |
  | |_| | (_) | |_) | | (_) | (_| | (_| |
   \___/ \___/|_.__/|_|\___/ \__,_|\__,_|`

	return "\n" + style.Render(ascii) + "\n"
}
