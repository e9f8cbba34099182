package main

import (
	"context"
	"fmt"
	"os"

	"github.com/paraglidehq/snowflake/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "snowflake:", err)
		os.Exit(1)
	}
}
