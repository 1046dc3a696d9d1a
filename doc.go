/*
Package sourcetool builds internal tools as plain Go functions.

A page is a script that describes its UI top to bottom on every run. The Host
executes the script, diffs the widgets it produced against the previous run
and sends only what changed to the relay, which forwards it to every browser
or terminal attached to the session. When a user edits a value the Client
commits it, the relay routes it back, and the Host runs the script again with
the new value in place.

# Concept

Widgets are identified by their position in the tree (their path) and their
kind, not by a name. A script that renders the same widgets in the same order
keeps its values across runs; moving a widget or changing its kind resets it.

# Usage

	st := sourcetool.New(sourcetool.WithAPIKey(os.Getenv("SOURCETOOL_API_KEY")))

	st.Page("/users", "Users", func(b *ui.UIBuilder) error {
		name := b.TextInput("Name", nil)
		if b.Button("Greet", nil) {
			b.Markdown("Hello **" + name + "**")
		}
		return nil
	})

	// Blocks, reconnecting with backoff whenever the relay goes away.
	log.Fatal(st.Listen(ctx, "ws://localhost:8080/ws/host"))

# Packages

  - pkg/ui: the script API, one method per widget.
  - pkg/host: the Host runtime behind New.
  - pkg/relay and pkg/adapters/http: the relay server.
  - pkg/client: the value commit pipeline used by front ends.
  - pkg/adapters/script: pages written in JavaScript.
  - cmd/sourcetool: the serve, host and attach commands.
*/
package sourcetool
