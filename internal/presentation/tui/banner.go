package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the ASCII art banner.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text  string
		color string
	}{
		{`   ___          _                         _`, "#4a90e2"},
		{`  / __|__ _ _ _| |_ ___  __ _ _ _ __ _ _ __| |_ _  _`, "#7b6fd6"},
		{` | (__/ _' | '_|  _/ _ \/ _' | '_/ _' | '_ \ ' \ || |`, "#9b59b6"},
		{`  \___\__,_|_|  \__\___/\__, |_| \__,_| .__/_||_\_, |`, "#c0569e"},
		{`                        |___/         |_|       |__/`, "#e67e22"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
