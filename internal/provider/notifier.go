package provider

import (
	"errors"

	"github.com/FractalBrew/geckocpp/internal/errdefs"
	"github.com/FractalBrew/geckocpp/internal/fspath"
)

// hostNotifier forwards workspace events to the host. Registration is
// local state: staleness notices only flow while a provider registration
// is live, mirroring how an editor only listens after registration.
type hostNotifier struct {
	s *Server
}

// RegisterProvider implements workspace.Notifier.
func (n *hostNotifier) RegisterProvider() {
	n.s.setRegistered(true)
}

// UnregisterProvider implements workspace.Notifier.
func (n *hostNotifier) UnregisterProvider() {
	n.s.setRegistered(false)
}

// ConfigurationsStale implements workspace.Notifier.
func (n *hostNotifier) ConfigurationsStale() {
	if !n.s.isRegistered() {
		return
	}
	_ = n.s.SendNotification("geckocpp/configurationsStale", nil)
}

// BrowseStale implements workspace.Notifier.
func (n *hostNotifier) BrowseStale() {
	if !n.s.isRegistered() {
		return
	}
	_ = n.s.SendNotification("geckocpp/browseStale", nil)
}

// BuildRequired implements workspace.Notifier. The notice always flows,
// registered or not: an unbuilt tree is exactly the case where no folder
// is recognized yet.
func (n *hostNotifier) BuildRequired(root fspath.Path, reason error) {
	params := BuildRequiredParams{
		URI:     uriFromPath(root),
		Message: reason.Error(),
	}
	var coded *errdefs.Error
	if errors.As(reason, &coded) {
		params.Message = coded.Message
		params.SuggestedFixes = coded.SuggestedFixes
	}
	_ = n.s.SendNotification("geckocpp/buildRequired", params)
}
