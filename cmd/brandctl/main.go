// brandctl inspects brand keys and chain scores without a running server.
package main

import "github.com/smallbiznis/shopfinder/internal/cli"

func main() {
	cli.Execute()
}
