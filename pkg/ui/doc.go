// Package ui is the API page scripts are written against.
//
// A script is a plain function that declares widgets top to bottom. Each call
// returns the value the user last committed for that widget, so the script can
// branch on it directly:
//
//	func greet(ui *ui.UIBuilder) error {
//		name := ui.TextInput("Name", nil)
//		if name != "" {
//			ui.Markdown("Hello, " + name + "!")
//		}
//		return nil
//	}
//
// The script runs again from the top after every commit.
package ui
