//go:build tinygo && baremetal

package main

import (
	"osal/app"
	"osal/hal"
)

func main() {
	app.Run(hal.New())
}
