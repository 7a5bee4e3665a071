// Command broker boots the VPN subscription broker: the webhook listener
// and the Scheduler Fleet, wired by internal/broker via go.uber.org/fx.
// Unlike the teacher's cmd/server/main.go, there is no deployment-mode
// switch here — this domain has exactly one runnable shape (see
// internal/broker's package doc for why).
package main

import (
	"github.com/vpnbroker/broker/internal/broker"
	"go.uber.org/fx"
)

func main() {
	fx.New(broker.Module).Run()
}
