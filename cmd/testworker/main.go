// Command testworker builds the test worker as a waPC module.
package main

import (
	sdk "github.com/tarmac-project/bindings"
	"github.com/tarmac-project/bindings/internal/testworker"
	"github.com/tarmac-project/bindings/router"
)

func main() {
	w := testworker.New(router.Config{})
	if _, err := sdk.New(sdk.Config{Handler: w.Handler()}); err != nil {
		return
	}
}
