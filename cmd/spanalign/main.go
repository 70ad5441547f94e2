// cmd/spanalign/main.go
package main

import (
	cmd "github.com/xlingqa/spanalign/internal/cli"
)

// main starts the spanalign CLI by delegating to the cobra root command.
func main() {
	cmd.Execute()
}
