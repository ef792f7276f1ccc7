package worker

import (
	"github.com/spec-kit/agency-listings/internal/service"
)

// StartEventRelay registers the broker relay on the dispatcher.
func StartEventRelay(relay *service.EventRelayService) {
	if relay == nil {
		return
	}
	relay.RegisterHandlers()
}
