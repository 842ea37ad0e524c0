// Command transit-ace runs the game from the repository root. It is the same
// program as cmd/game.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tatianab/transit-ace/internal/app"
)

func main() {
	if err := app.Run(context.Background()); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
