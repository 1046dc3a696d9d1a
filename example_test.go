package sourcetool_test

import (
	"context"
	"fmt"
	"log"

	"github.com/trysourcetool/sourcetool"
	"github.com/trysourcetool/sourcetool/pkg/ui"
)

func Example() {
	st := sourcetool.New(sourcetool.WithAPIKey("dev-key"))

	err := st.Page("/users", "Users", func(b *ui.UIBuilder) error {
		name := b.TextInput("Name", &ui.TextInputOptions{Placeholder: "Ada"})
		if name != "" {
			b.Markdown(fmt.Sprintf("Hello **%s**", name))
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	if err := st.Listen(context.Background(), "ws://localhost:8080/ws/host"); err != nil {
		log.Fatal(err)
	}
}
