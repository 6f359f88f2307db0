// Package cmd provides common initialization functions for command-line
// applications.
package cmd

import (
	"log/slog"
	"net/http"

	"github.com/dealerdesk/automation/pkg/actions/callwebhook"
	"github.com/dealerdesk/automation/pkg/actions/createdeal"
	"github.com/dealerdesk/automation/pkg/actions/createtask"
	"github.com/dealerdesk/automation/pkg/actions/createticket"
	"github.com/dealerdesk/automation/pkg/actions/updaterecord"
	"github.com/dealerdesk/automation/pkg/persistence"
	"github.com/dealerdesk/automation/pkg/registry"
)

func registerNativeActions(reg *registry.Registry, store persistence.EntityStore, httpClient *http.Client) {
	reg.Register(updaterecord.NewFactory(store))
	reg.Register(createtask.NewFactory(store))
	reg.Register(createdeal.NewFactory(store))
	reg.Register(createticket.NewFactory(store))
	reg.Register(callwebhook.NewFactory(httpClient))
}

// NewRegistry builds the action registry with every built-in action type
// registered against the given entity store.
func NewRegistry(logger *slog.Logger, store persistence.EntityStore) *registry.Registry {
	reg := registry.NewRegistry(logger)

	registerNativeActions(reg, store, nil)

	return reg
}
