// Command prefabctl inspects and edits the prefab instances of saved
// scenes.
package main

import (
	"os"

	_ "mirgo/internal/components"
	_ "mirgo/internal/scripts"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
