package app

import (
	"fmt"
	"strings"

	"osal/hal"
	"osal/kernel"
)

func installFaultHandler(h hal.HAL, k *kernel.Kernel) {
	k.SetFaultHandler(func(info kernel.FaultInfo) {
		l := h.Logger()
		if l == nil {
			return
		}
		l.WriteLineString(fmt.Sprintf("osal fault: thread=%d name=%s value=%v", info.Thread, info.Name, info.Value))
		if len(info.Stack) == 0 {
			l.WriteLineString("stack: unavailable")
			return
		}
		for _, line := range strings.Split(string(info.Stack), "\n") {
			if line == "" {
				continue
			}
			l.WriteLineString(line)
		}
	})
}
