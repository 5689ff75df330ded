package main

import (
	"fmt"
	"os"

	"github.com/wordbattle/duel-server-go/internal/util"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "Usage: go run scripts/sign-token.go <secret> <user-id>\n")
		os.Exit(1)
	}

	fmt.Println(util.SignUserToken(os.Args[1], os.Args[2]))
}
