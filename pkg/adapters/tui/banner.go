package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the attach banner to w in the terminal's color profile.
func PrintBanner(w io.Writer, profile termenv.Profile) {
	lines := []struct {
		text  string
		color string
	}{
		{`  ___  ___  _   _ _ __ ___ ___| |_ ___   ___ | |`, "#818cf8"},
		{` / __|/ _ \| | | | '__/ __/ _ \ __/ _ \ / _ \| |`, "#a78bfa"},
		{` \__ \ (_) | |_| | | | (_|  __/ || (_) | (_) | |`, "#c084fc"},
		{` |___/\___/ \__,_|_|  \___\___|\__\___/ \___/|_|`, "#e879f9"},
	}
	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(profile.Color(l.color)))
	}
	fmt.Fprintln(w)
}
